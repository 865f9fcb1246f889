package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/compute"
	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/driver/host"
	"github.com/aquavit/Brahma-sub001/internal/ir"
	"github.com/aquavit/Brahma-sub001/internal/kernelfile"
	"github.com/aquavit/Brahma-sub001/internal/query"
	"github.com/aquavit/Brahma-sub001/internal/testutil"
)

// Option configures Run.
type Option func(*runner)

// WithArchive records every translation into a.
func WithArchive(a compute.Archive) Option {
	return func(r *runner) {
		r.archive = a
	}
}

// WithLogger sets the logger passed to the provider. Logs are discarded by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type runner struct {
	archive compute.Archive
	logger  *slog.Logger
	clock   *testutil.DeterministicClock
}

// Run executes a scenario against the host driver and evaluates its
// assertions.
//
// Each run gets a fresh driver and provider with sequential ids, so the same
// scenario always produces the same trace. Kernels are compiled before the
// flow is built; the whole flow is then submitted as a single group.
//
// A failure of the kernels themselves (translation, compilation) or of the
// flow (range, access, context loss) is reported in Result.Failure, not as
// an error. The returned error covers scenarios that cannot be run at all.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	r := &runner{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:  testutil.NewDeterministicClock(),
	}
	for _, opt := range opts {
		opt(r)
	}

	loaded, errs := kernelfile.Load(s.Kernels, kernelfile.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load kernels: %w", errors.Join(errs...))
	}
	target, err := backend.Parse(s.Backend)
	if err != nil {
		return nil, err
	}

	providerOpts := []compute.Option{
		compute.WithLogger(r.logger),
		compute.WithIDGenerator(testutil.NewSequentialIDs("provider")),
	}
	if r.archive != nil {
		providerOpts = append(providerOpts, compute.WithArchive(r.archive))
	}
	provider, err := compute.NewProvider(host.New(), []driver.Device{host.DefaultDevice}, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	defer provider.Close()

	result := NewResult()
	kernels, err := r.compileKernels(provider, loaded, target, s.Flow, result)
	if err != nil {
		return nil, err
	}
	if result.Failure == nil {
		if err := r.executeFlow(ctx, provider, s, kernels, result); err != nil {
			return nil, err
		}
	}
	result.Compiles = provider.Stats().Compiles

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// compileKernels builds every kernel the flow runs, in first-use order.
// The first translation or compilation failure is recorded with Step -1.
func (r *runner) compileKernels(p *compute.Provider, loaded *kernelfile.LoadResult, target backend.Backend, flow []FlowStep, result *Result) (map[string]*compute.Kernel, error) {
	kernels := make(map[string]*compute.Kernel)
	for _, step := range flow {
		if step.Run == "" {
			continue
		}
		if _, seen := kernels[step.Run]; seen {
			continue
		}
		def, ok := loaded.Kernel(step.Run)
		if !ok {
			return nil, fmt.Errorf("unknown kernel %q", step.Run)
		}

		k, err := query.Parse(def)
		if err != nil {
			result.Failure = newFailure(-1, err)
			return kernels, nil
		}
		prog, err := p.Compile(k, target)
		if err != nil {
			result.Failure = newFailure(-1, err)
			return kernels, nil
		}
		kernel, err := compute.Bind(prog)
		if err != nil {
			return nil, err
		}
		result.Sources[step.Run] = prog.Source()
		result.Keys[step.Run] = prog.Key()
		kernels[step.Run] = kernel
	}
	return kernels, nil
}

// pending is a built command plus what to record once it completes.
type pending struct {
	cmd    compute.Command
	kind   string
	target string
	detail string
	rows   func() [][]float64
	elem   ir.Kind
}

func (r *runner) executeFlow(ctx context.Context, p *compute.Provider, s *Scenario, kernels map[string]*compute.Kernel, result *Result) error {
	buffers := make(map[string]hostBuffer, len(s.Buffers))
	kinds := make(map[string]ir.Kind, len(s.Buffers))
	for _, decl := range s.Buffers {
		kind, err := ir.ParseKind(decl.Type)
		if err != nil {
			return err
		}
		mode, err := ir.ParseAccessMode(decl.Mode)
		if err != nil {
			return err
		}
		buf, err := newHostBuffer(p, kind, mode, decl.Length)
		if err != nil {
			return fmt.Errorf("buffer %s: %w", decl.Name, err)
		}
		defer buf.close()
		buffers[decl.Name] = buf
		kinds[decl.Name] = kind
	}

	steps := make([]pending, 0, len(s.Flow))
	for i, step := range s.Flow {
		pd, err := buildStep(step, buffers, kinds, kernels)
		if err != nil {
			result.Failure = newFailure(i, err)
			return nil
		}
		steps = append(steps, pd)
	}

	queue, err := p.NewQueue()
	if err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	defer queue.Close()

	cmds := make([]compute.Command, len(steps))
	for i, pd := range steps {
		cmds[i] = pd.cmd
	}

	completed := len(steps)
	if err := queue.Add(ctx, cmds...); err != nil {
		var ce *compute.CommandError
		if errors.As(err, &ce) {
			completed = ce.Index
			result.Failure = newFailure(ce.Index, err)
		} else {
			completed = 0
			result.Failure = newFailure(-1, err)
		}
	}

	for _, pd := range steps[:completed] {
		result.AddTrace(r.clock.Next(), pd.kind, pd.target, pd.detail)
		if pd.rows == nil {
			continue
		}
		rows := pd.rows()
		formatted := make([]string, len(rows))
		for j, row := range rows {
			formatted[j] = formatRow(pd.elem, row)
		}
		result.values[pd.target] = rows
		result.Buffers[pd.target] = formatted
	}
	return nil
}

func buildStep(step FlowStep, buffers map[string]hostBuffer, kinds map[string]ir.Kind, kernels map[string]*compute.Kernel) (pending, error) {
	switch step.Kind() {
	case "write":
		buf := buffers[step.Write]
		rows, err := parseValues(kinds[step.Write], step.Data)
		if err != nil {
			return pending{}, compute.NewArgumentError("write %s: %v", step.Write, err)
		}
		length := len(rows)
		if step.Length != nil {
			length = *step.Length
		}
		cmd, err := buf.write(step.Offset, length, rows)
		if err != nil {
			return pending{}, err
		}
		return pending{cmd: cmd, kind: "write", target: step.Write, detail: span(step.Offset, length)}, nil

	case "read":
		buf := buffers[step.Read]
		length := buf.buffer().Len() - step.Offset
		if step.Length != nil {
			length = *step.Length
		}
		cmd, rows, err := buf.read(step.Offset, length)
		if err != nil {
			return pending{}, err
		}
		return pending{cmd: cmd, kind: "read", target: step.Read, detail: span(step.Offset, length), rows: rows, elem: kinds[step.Read]}, nil

	case "run":
		rng, err := newRange(step.Range)
		if err != nil {
			return pending{}, err
		}
		args := make([]compute.AnyBuffer, len(step.Args))
		for i, name := range step.Args {
			args[i] = buffers[name].buffer()
		}
		cmd, err := kernels[step.Run].Run(rng, args...)
		if err != nil {
			return pending{}, err
		}
		return pending{cmd: cmd, kind: "run", target: step.Run, detail: fmt.Sprint(rng)}, nil
	}
	return pending{}, compute.NewArgumentError("empty flow step")
}

func newRange(sizes []int) (compute.Range, error) {
	switch len(sizes) {
	case 1:
		return compute.NewRange1D(sizes[0])
	case 2:
		return compute.NewRange2D(sizes[0], sizes[1])
	case 3:
		return compute.NewRange3D(sizes[0], sizes[1], sizes[2])
	default:
		return nil, compute.NewArgumentError("range must have 1 to 3 entries, got %d", len(sizes))
	}
}

func span(offset, length int) string {
	return fmt.Sprintf("[%d:%d]", offset, offset+length)
}

func newFailure(step int, err error) *Failure {
	return &Failure{Step: step, Code: ErrorCode(err), Message: err.Error()}
}

// ErrorCode returns the code of a runtime or translation error, CANCELLED
// for context errors and UNKNOWN otherwise.
func ErrorCode(err error) string {
	var rt *compute.Error
	if errors.As(err, &rt) {
		return string(rt.Code)
	}
	var te *ir.TranslationError
	if errors.As(err, &te) {
		return string(te.Code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELLED"
	}
	return "UNKNOWN"
}
