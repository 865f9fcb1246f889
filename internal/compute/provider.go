package compute

import (
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Translation is one freshly translated program, as recorded in an Archive.
type Translation struct {
	ProviderID string
	Key        string
	Backend    string
	KernelName string
	Source     string
}

// Archive records translations for later inspection. It is never read back
// as a cache.
type Archive interface {
	Record(t Translation) error
}

// Stats counts provider activity.
type Stats struct {
	// Compiles is the number of native program builds.
	Compiles int

	// CacheHits is the number of Compile calls served from the cache.
	CacheHits int

	// Programs is the number of cached programs.
	Programs int
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithArchive records every fresh translation in a.
func WithArchive(a Archive) Option {
	return func(p *Provider) {
		p.archive = a
	}
}

// WithRenderContext makes rc current before native calls when it is not.
func WithRenderContext(rc driver.RenderContext) Option {
	return func(p *Provider) {
		p.render = rc
	}
}

// WithIDGenerator sets the generator for provider and queue ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Provider) {
		p.ids = g
	}
}

// Provider owns a native context and the compiled-program cache for it.
//
// A Provider is not safe for concurrent use; callers serialize Compile,
// buffer creation, queue submission and Close.
type Provider struct {
	id      string
	driver  driver.Driver
	ctx     driver.Context
	devices []driver.Device

	programs map[string]*Program
	stats    Stats

	logger  *slog.Logger
	archive Archive
	render  driver.RenderContext
	ids     IDGenerator

	closed bool
	lost   bool
}

// NewProvider creates a native context over devices.
func NewProvider(drv driver.Driver, devices []driver.Device, opts ...Option) (*Provider, error) {
	if drv == nil {
		return nil, NewArgumentError("nil driver")
	}
	if len(devices) == 0 {
		return nil, NewArgumentError("at least one device is required")
	}

	p := &Provider{
		driver:   drv,
		devices:  slices.Clone(devices),
		programs: make(map[string]*Program),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:      UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.id = p.ids.Generate()

	if err := p.makeCurrent(); err != nil {
		return nil, err
	}
	ctx, err := drv.CreateContext(p.devices)
	if err != nil {
		return nil, newError(ErrCodeNative, err, "create context on %s", drv.Name())
	}
	p.ctx = ctx

	p.logger.Debug("provider created",
		"provider", p.id,
		"driver", drv.Name(),
		"devices", len(p.devices),
	)
	return p, nil
}

// ID returns the provider id.
func (p *Provider) ID() string { return p.id }

// Devices returns the devices the context was created over.
func (p *Provider) Devices() []driver.Device { return slices.Clone(p.devices) }

// Stats returns activity counters.
func (p *Provider) Stats() Stats {
	s := p.stats
	s.Programs = len(p.programs)
	return s
}

// Compile returns the program for k on backend b, translating and building
// it only when no structurally identical kernel was compiled before.
//
// Translation failures are returned as *ir.TranslationError; a rejected
// native build is a COMPILATION error carrying the driver's log.
func (p *Provider) Compile(k *ir.Kernel, b backend.Backend) (*Program, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if k == nil {
		return nil, NewArgumentError("nil kernel")
	}
	translator, err := backend.For(b)
	if err != nil {
		return nil, NewArgumentError("%v", err)
	}

	key, err := ir.Key(k, string(b))
	if err != nil {
		return nil, err
	}
	if prog, ok := p.programs[key]; ok {
		p.stats.CacheHits++
		p.logger.Debug("program cache hit", "provider", p.id, "key", shortKey(key), "kernel", k.Name)
		return prog, nil
	}

	src, err := translator.Translate(k)
	if err != nil {
		return nil, err
	}

	if err := p.makeCurrent(); err != nil {
		return nil, err
	}
	kernel := cloneKernel(k)
	native, err := p.ctx.CompileProgram(driver.Source{Backend: string(b), Text: src, Kernel: kernel})
	if err != nil {
		var be *driver.BuildError
		if errors.As(err, &be) {
			return nil, newError(ErrCodeCompilation, be, "kernel %s on %s", k.Name, b)
		}
		return nil, p.driverError(err, "compile kernel %s", k.Name)
	}

	prog := &Program{
		provider: p,
		key:      key,
		backend:  b,
		kernel:   kernel,
		source:   src,
		native:   native,
	}
	p.programs[key] = prog
	p.stats.Compiles++
	p.logger.Debug("program compiled",
		"provider", p.id,
		"key", shortKey(key),
		"backend", string(b),
		"kernel", k.Name,
	)

	if p.archive != nil {
		err := p.archive.Record(Translation{
			ProviderID: p.id,
			Key:        key,
			Backend:    string(b),
			KernelName: k.Name,
			Source:     src,
		})
		if err != nil {
			// The archive is an inspection log; compilation already succeeded.
			p.logger.Warn("archive record failed", "provider", p.id, "key", shortKey(key), "error", err)
		}
	}
	return prog, nil
}

// Close releases every cached program and the native context. It is
// idempotent; later calls on the provider fail with DISPOSED_OBJECT.
func (p *Provider) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, key := range sortedKeys(p.programs) {
		if err := p.programs[key].native.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	p.programs = map[string]*Program{}
	if err := p.ctx.Release(); err != nil {
		errs = append(errs, err)
	}
	p.logger.Debug("provider closed", "provider", p.id)
	if err := errors.Join(errs...); err != nil {
		return newError(ErrCodeNative, err, "release provider %s", p.id)
	}
	return nil
}

// checkOpen reports whether the provider can accept new work.
func (p *Provider) checkOpen() error {
	if p.closed {
		return NewDisposedError("provider")
	}
	if p.lost {
		return newError(ErrCodeDeviceContextLost, driver.ErrContextLost, "provider %s", p.id)
	}
	return nil
}

func (p *Provider) makeCurrent() error {
	if p.render == nil || p.render.IsCurrent() {
		return nil
	}
	if err := p.render.MakeCurrent(); err != nil {
		return newError(ErrCodeNative, err, "make render context current")
	}
	return nil
}

// driverError maps a driver failure onto the runtime taxonomy. Context loss
// marks the provider lost.
func (p *Provider) driverError(err error, format string, args ...any) *Error {
	switch {
	case errors.Is(err, driver.ErrContextLost):
		p.lost = true
		return newError(ErrCodeDeviceContextLost, err, format, args...)
	case errors.Is(err, driver.ErrAccessViolation):
		return newError(ErrCodeDeviceAccessViolation, err, format, args...)
	case errors.Is(err, driver.ErrOutOfBounds):
		return newError(ErrCodeRange, err, format, args...)
	case errors.Is(err, driver.ErrReleased):
		return newError(ErrCodeDisposedObject, err, format, args...)
	default:
		return newError(ErrCodeNative, err, format, args...)
	}
}

func cloneKernel(k *ir.Kernel) *ir.Kernel {
	c := *k
	c.Params = slices.Clone(k.Params)
	c.Body = slices.Clone(k.Body)
	return &c
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
