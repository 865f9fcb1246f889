package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Scenario is one kernel execution scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kernels is the CUE kernels directory, relative to the scenario file.
	Kernels string `yaml:"kernels"`

	// Backend is the target language. Defaults to opencl.
	Backend string `yaml:"backend,omitempty"`

	// Buffers declares the buffers the flow uses, in allocation order.
	Buffers []BufferDecl `yaml:"buffers"`

	// Flow is submitted as one command group.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// BufferDecl declares one buffer.
type BufferDecl struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Mode   string `yaml:"mode,omitempty"`
	Length int    `yaml:"length"`
}

// FlowStep is a write, run or read. Exactly one of Write, Run and Read is set.
type FlowStep struct {
	// Write names the destination buffer.
	Write string `yaml:"write,omitempty"`

	// Run names the kernel to launch.
	Run string `yaml:"run,omitempty"`

	// Read names the source buffer.
	Read string `yaml:"read,omitempty"`

	// Offset is the first element of a transfer.
	Offset int `yaml:"offset,omitempty"`

	// Length is the element count of a transfer. Defaults to len(Data) for
	// writes and to the rest of the buffer for reads.
	Length *int `yaml:"length,omitempty"`

	// Data holds the elements to write.
	Data []any `yaml:"data,omitempty"`

	// Range is the launch size, one entry per dimension.
	Range []int `yaml:"range,omitempty"`

	// Args are buffer names bound to the kernel parameters in order.
	Args []string `yaml:"args,omitempty"`
}

// Kind returns "write", "run" or "read".
func (s FlowStep) Kind() string {
	switch {
	case s.Write != "":
		return "write"
	case s.Run != "":
		return "run"
	case s.Read != "":
		return "read"
	default:
		return ""
	}
}

// Assertion validates the outcome of a flow.
type Assertion struct {
	// Type is buffer_equals, trace_order, error_code or compiles.
	Type string `yaml:"type"`

	// Buffer and Values are used by buffer_equals.
	Buffer string `yaml:"buffer,omitempty"`
	Values []any  `yaml:"values,omitempty"`

	// Tolerance is the absolute per-component tolerance of buffer_equals.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Commands is the expected command order (used by trace_order).
	Commands []string `yaml:"commands,omitempty"`

	// Code and Step are used by error_code. Step is optional.
	Code string `yaml:"code,omitempty"`
	Step *int   `yaml:"step,omitempty"`

	// Count is used by compiles.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBufferEquals = "buffer_equals"
	AssertTraceOrder   = "trace_order"
	AssertErrorCode    = "error_code"
	AssertCompiles     = "compiles"
)

// LoadScenario reads and parses a scenario YAML file. The kernels path is
// resolved relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(scenario.Kernels) {
		scenario.Kernels = filepath.Join(filepath.Dir(path), scenario.Kernels)
	}
	if _, err := os.Stat(scenario.Kernels); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: kernels directory not found: %s", scenario.Kernels)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Backend == "" {
		scenario.Backend = string(backend.OpenCL)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Kernels == "" {
		return fmt.Errorf("kernels is required")
	}
	if _, err := backend.Parse(s.Backend); err != nil {
		return err
	}
	if len(s.Buffers) == 0 {
		return fmt.Errorf("buffers list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	kinds := make(map[string]ir.Kind, len(s.Buffers))
	for i, b := range s.Buffers {
		if b.Name == "" {
			return fmt.Errorf("buffers[%d]: name is required", i)
		}
		if _, dup := kinds[b.Name]; dup {
			return fmt.Errorf("buffers[%d]: duplicate buffer %q", i, b.Name)
		}
		kind, err := ir.ParseKind(b.Type)
		if err != nil || !kind.Storable() {
			return fmt.Errorf("buffers[%d]: unsupported type %q", i, b.Type)
		}
		if _, err := ir.ParseAccessMode(b.Mode); err != nil {
			return fmt.Errorf("buffers[%d]: %w", i, err)
		}
		if b.Length <= 0 {
			return fmt.Errorf("buffers[%d]: length must be positive", i)
		}
		kinds[b.Name] = kind
	}

	for i, step := range s.Flow {
		if err := validateStep(step, kinds); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, kinds); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step FlowStep, kinds map[string]ir.Kind) error {
	set := 0
	for _, v := range []string{step.Write, step.Run, step.Read} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of write, run or read is required")
	}

	switch step.Kind() {
	case "write":
		kind, ok := kinds[step.Write]
		if !ok {
			return fmt.Errorf("unknown buffer %q", step.Write)
		}
		if _, err := parseValues(kind, step.Data); err != nil {
			return fmt.Errorf("data: %w", err)
		}
	case "read":
		if _, ok := kinds[step.Read]; !ok {
			return fmt.Errorf("unknown buffer %q", step.Read)
		}
	case "run":
		if len(step.Range) < 1 || len(step.Range) > 3 {
			return fmt.Errorf("range must have 1 to 3 entries")
		}
		for _, name := range step.Args {
			if _, ok := kinds[name]; !ok {
				return fmt.Errorf("unknown buffer %q", name)
			}
		}
	}
	return nil
}

func validateAssertion(a Assertion, kinds map[string]ir.Kind) error {
	switch a.Type {
	case AssertBufferEquals:
		kind, ok := kinds[a.Buffer]
		if !ok {
			return fmt.Errorf("unknown buffer %q for buffer_equals", a.Buffer)
		}
		if _, err := parseValues(kind, a.Values); err != nil {
			return fmt.Errorf("values: %w", err)
		}
		if a.Tolerance < 0 {
			return fmt.Errorf("tolerance must be non-negative")
		}
	case AssertTraceOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("commands list is required for trace_order")
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("code is required for error_code")
		}
	case AssertCompiles:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for compiles")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
