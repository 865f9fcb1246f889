// Package host implements the driver boundary on the CPU.
//
// Programs are "compiled" by checking the submitted source against the
// translation of the IR it came from; launches interpret the IR once per
// coordinate in row-major order. Buffer access modes and out-of-bounds
// accesses are enforced as device faults, and a context can be invalidated to
// exercise context-loss handling.
package host

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Platform is the platform name of the default host device.
const Platform = "brahma-host"

// DefaultDevice is the device a Driver exposes unless configured otherwise.
var DefaultDevice = driver.Device{
	ID:       "host-0",
	Name:     "Host reference device",
	Vendor:   "Brahma",
	Platform: Platform,
	Type:     driver.DeviceTypeCPU,
	Backends: []string{string(backend.OpenCL), string(backend.HLSL), string(backend.GLSL)},
}

// Option configures a Driver.
type Option func(*Driver)

// WithDevices replaces the device list.
func WithDevices(devices ...driver.Device) Option {
	return func(d *Driver) {
		d.devices = devices
	}
}

// Driver is the host reference driver.
type Driver struct {
	devices  []driver.Device
	compiles atomic.Int64
	launches atomic.Int64

	mu       sync.Mutex
	contexts []*Context
}

// New creates a host driver.
func New(opts ...Option) *Driver {
	d := &Driver{devices: []driver.Device{DefaultDevice}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns "host".
func (d *Driver) Name() string { return "host" }

// Compiles returns the number of program builds performed by all contexts.
func (d *Driver) Compiles() int64 { return d.compiles.Load() }

// Launches returns the number of kernel launches executed by all queues.
func (d *Driver) Launches() int64 { return d.launches.Load() }

// Enumerate lists devices matching c.
func (d *Driver) Enumerate(c driver.Criteria) ([]driver.Device, error) {
	var out []driver.Device
	for _, dev := range d.devices {
		if !c.Match(dev) {
			continue
		}
		out = append(out, dev)
		if c.Max > 0 && len(out) == c.Max {
			break
		}
	}
	return out, nil
}

// CreateContext creates a context over devices of one platform.
func (d *Driver) CreateContext(devices []driver.Device) (driver.Context, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("host: no devices")
	}
	for _, dev := range devices {
		if !d.known(dev) {
			return nil, fmt.Errorf("host: unknown device %q", dev.ID)
		}
		if dev.Platform != devices[0].Platform {
			return nil, fmt.Errorf("host: %w: %q and %q", driver.ErrPlatformMismatch, devices[0].Platform, dev.Platform)
		}
	}
	c := &Context{driver: d, devices: append([]driver.Device(nil), devices...)}
	d.mu.Lock()
	d.contexts = append(d.contexts, c)
	d.mu.Unlock()
	return c, nil
}

// InvalidateAll simulates loss of every context the driver has created.
func (d *Driver) InvalidateAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.contexts {
		c.Invalidate()
	}
}

func (d *Driver) known(dev driver.Device) bool {
	for _, own := range d.devices {
		if own.ID == dev.ID {
			return true
		}
	}
	return false
}

// Context is a host context.
type Context struct {
	driver   *Driver
	devices  []driver.Device
	lost     atomic.Bool
	mu       sync.Mutex
	released bool
}

// Invalidate simulates loss of the native context. Every later call fails
// with driver.ErrContextLost.
func (c *Context) Invalidate() {
	c.lost.Store(true)
}

func (c *Context) check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return driver.ErrReleased
	}
	if c.lost.Load() {
		return driver.ErrContextLost
	}
	return nil
}

// Devices returns the context's devices.
func (c *Context) Devices() []driver.Device { return c.devices }

// CompileProgram checks src against the translation of src.Kernel.
func (c *Context) CompileProgram(src driver.Source) (driver.Program, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if !c.supports(src.Backend) {
		return nil, &driver.BuildError{Backend: src.Backend, Log: "no device in the context accepts this backend"}
	}
	if src.Kernel == nil {
		return nil, &driver.BuildError{Backend: src.Backend, Log: "host driver requires the kernel IR"}
	}
	b, err := backend.Parse(src.Backend)
	if err != nil {
		return nil, &driver.BuildError{Backend: src.Backend, Log: err.Error()}
	}
	want, err := backend.Translate(src.Kernel, b)
	if err != nil {
		return nil, &driver.BuildError{Backend: src.Backend, Log: err.Error()}
	}
	if want != src.Text {
		return nil, &driver.BuildError{Backend: src.Backend, Log: "source does not match the kernel it was translated from"}
	}
	c.driver.compiles.Add(1)
	return &program{ctx: c, kernel: src.Kernel}, nil
}

func (c *Context) supports(name string) bool {
	for _, dev := range c.devices {
		if dev.Supports(name) {
			return true
		}
	}
	return false
}

// AllocBuffer allocates zeroed host memory.
func (c *Context) AllocBuffer(byteSize int, mode ir.AccessMode) (driver.Memory, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if byteSize <= 0 {
		return nil, fmt.Errorf("host: buffer size must be positive, got %d", byteSize)
	}
	return &memory{ctx: c, data: make([]byte, byteSize), mode: mode}, nil
}

// NewQueue creates a queue.
func (c *Context) NewQueue() (driver.Queue, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return &queue{ctx: c}, nil
}

// Release releases the context. It is idempotent.
func (c *Context) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	return nil
}

type program struct {
	ctx      *Context
	kernel   *ir.Kernel
	released atomic.Bool
}

func (p *program) Release() error {
	p.released.Store(true)
	return nil
}

type memory struct {
	ctx      *Context
	data     []byte
	mode     ir.AccessMode
	released atomic.Bool
}

func (m *memory) Size() int           { return len(m.data) }
func (m *memory) Mode() ir.AccessMode { return m.mode }

func (m *memory) Release() error {
	m.released.Store(true)
	return nil
}

type queue struct {
	ctx      *Context
	released atomic.Bool
}

func (q *queue) Release() error {
	q.released.Store(true)
	return nil
}

// EnqueueAndWait executes ops synchronously in order.
func (q *queue) EnqueueAndWait(ctx context.Context, ops []driver.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.released.Load() {
		return driver.ErrReleased
	}
	for i, op := range ops {
		if err := q.ctx.check(); err != nil {
			return &driver.EnqueueError{Index: i, Cause: err}
		}
		if err := q.execute(op); err != nil {
			return &driver.EnqueueError{Index: i, Cause: err}
		}
	}
	return nil
}

func (q *queue) execute(op driver.Op) error {
	switch o := op.(type) {
	case driver.WriteOp:
		m, err := q.memory(o.Memory)
		if err != nil {
			return err
		}
		if o.Offset < 0 || o.Offset+len(o.Data) > len(m.data) {
			return fmt.Errorf("%w: write of %d bytes at %d into %d", driver.ErrOutOfBounds, len(o.Data), o.Offset, len(m.data))
		}
		copy(m.data[o.Offset:], o.Data)
		return nil

	case driver.ReadOp:
		m, err := q.memory(o.Memory)
		if err != nil {
			return err
		}
		if o.Offset < 0 || o.Offset+len(o.Dst) > len(m.data) {
			return fmt.Errorf("%w: read of %d bytes at %d from %d", driver.ErrOutOfBounds, len(o.Dst), o.Offset, len(m.data))
		}
		copy(o.Dst, m.data[o.Offset:])
		return nil

	case driver.RunOp:
		p, ok := o.Program.(*program)
		if !ok || p.ctx != q.ctx {
			return fmt.Errorf("host: program does not belong to this context")
		}
		if p.released.Load() {
			return driver.ErrReleased
		}
		if len(o.Args) != len(p.kernel.Params) {
			return fmt.Errorf("host: kernel takes %d buffers, got %d", len(p.kernel.Params), len(o.Args))
		}
		args := make([]*memory, len(o.Args))
		for i, a := range o.Args {
			m, err := q.memory(a)
			if err != nil {
				return fmt.Errorf("argument %d: %w", i, err)
			}
			args[i] = m
		}
		for _, g := range o.Grid {
			if g <= 0 {
				return fmt.Errorf("host: grid %v has a non-positive extent", o.Grid)
			}
		}
		q.ctx.driver.launches.Add(1)
		return run(p.kernel, args, o.Grid)

	default:
		return fmt.Errorf("host: unknown op %T", op)
	}
}

func (q *queue) memory(mem driver.Memory) (*memory, error) {
	m, ok := mem.(*memory)
	if !ok || m.ctx != q.ctx {
		return nil, fmt.Errorf("host: memory does not belong to this context")
	}
	if m.released.Load() {
		return nil, driver.ErrReleased
	}
	return m, nil
}
