package harness

import (
	"context"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Snapshot is the deterministic part of a Result, compared against golden
// files. Program keys and error messages are left out.
type Snapshot struct {
	ScenarioName string
	Backend      string
	Trace        []TraceEvent
	Buffers      map[string][]string
	Failure      *Failure
}

// NewSnapshot captures result for scenario s.
func NewSnapshot(s *Scenario, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: s.Name,
		Backend:      s.Backend,
		Trace:        result.Trace,
		Buffers:      result.Buffers,
		Failure:      result.Failure,
	}
}

// Value converts the snapshot to an IR value for canonical JSON.
func (s Snapshot) Value() ir.Value {
	trace := make(ir.Array, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = ir.Object{
			"seq":     ir.Int64(ev.Seq),
			"command": ir.String(ev.Command),
			"target":  ir.String(ev.Target),
			"detail":  ir.String(ev.Detail),
		}
	}

	names := make([]string, 0, len(s.Buffers))
	for name := range s.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)
	buffers := ir.Object{}
	for _, name := range names {
		vals := make(ir.Array, len(s.Buffers[name]))
		for i, v := range s.Buffers[name] {
			vals[i] = ir.String(v)
		}
		buffers[name] = vals
	}

	obj := ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"backend":       ir.String(s.Backend),
		"trace":         trace,
		"buffers":       buffers,
	}
	if s.Failure != nil {
		obj["failure"] = ir.Object{
			"step": ir.Int64(s.Failure.Step),
			"code": ir.String(s.Failure.Code),
		}
	}
	return obj
}

// MarshalSnapshot returns the canonical JSON of a snapshot.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	return ir.MarshalCanonical(s.Value())
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(NewSnapshot(scenario, result))
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
