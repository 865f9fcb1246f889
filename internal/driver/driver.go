// Package driver is the boundary between the compute runtime and a native
// device API.
//
// A Driver enumerates devices and creates a Context over devices of one
// platform. A Context compiles program source, allocates raw memory and
// creates queues. A Queue executes a batch of operations in order and blocks
// until the device reports completion.
//
// Handles are released explicitly; there are no finalizers. Implementations
// need not be safe for concurrent use.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Device faults and handle errors reported by drivers.
var (
	// ErrAccessViolation is a kernel access that the buffer's mode forbids.
	ErrAccessViolation = errors.New("device access violation")

	// ErrContextLost means the native context is gone; nothing further can run on it.
	ErrContextLost = errors.New("device context lost")

	// ErrOutOfBounds is a device-side access outside a memory object.
	ErrOutOfBounds = errors.New("device access out of bounds")

	// ErrReleased is use of a handle after Release.
	ErrReleased = errors.New("native handle released")

	// ErrPlatformMismatch is a context request spanning several platforms.
	ErrPlatformMismatch = errors.New("devices belong to different platforms")
)

// DeviceType is the class of a device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
)

// Device describes one compute device.
type Device struct {
	ID       string
	Name     string
	Vendor   string
	Platform string
	Type     DeviceType

	// Backends lists the kernel languages the device accepts.
	Backends []string
}

// Supports reports whether the device accepts source for backend.
func (d Device) Supports(backend string) bool {
	for _, b := range d.Backends {
		if b == backend {
			return true
		}
	}
	return false
}

// Criteria filters enumerated devices. Zero fields match anything.
type Criteria struct {
	Platform string
	Type     DeviceType
	Backend  string

	// Max limits the number of devices returned when positive.
	Max int
}

// Match reports whether d satisfies c, ignoring Max.
func (c Criteria) Match(d Device) bool {
	if c.Platform != "" && c.Platform != d.Platform {
		return false
	}
	if c.Type != "" && c.Type != d.Type {
		return false
	}
	if c.Backend != "" && !d.Supports(c.Backend) {
		return false
	}
	return true
}

// Driver is a native device API.
type Driver interface {
	// Name identifies the driver in logs.
	Name() string

	// Enumerate lists devices matching c.
	Enumerate(c Criteria) ([]Device, error)

	// CreateContext creates one context over devices of a single platform.
	CreateContext(devices []Device) (Context, error)
}

// Source is a program ready for native compilation.
type Source struct {
	Backend string
	Text    string

	// Kernel is the IR the text was translated from. Native drivers may ignore
	// it; interpreting drivers execute it.
	Kernel *ir.Kernel
}

// Context is a native context bound to one set of devices.
type Context interface {
	Devices() []Device

	// CompileProgram builds src. A rejected build returns a *BuildError.
	CompileProgram(src Source) (Program, error)

	// AllocBuffer allocates byteSize bytes with the given device access mode.
	AllocBuffer(byteSize int, mode ir.AccessMode) (Memory, error)

	NewQueue() (Queue, error)
	Release() error
}

// Program is a compiled native program.
type Program interface {
	Release() error
}

// Memory is a native memory object.
type Memory interface {
	Size() int
	Mode() ir.AccessMode
	Release() error
}

// Queue executes operations in submission order.
type Queue interface {
	// EnqueueAndWait submits ops and blocks until all have completed or one
	// has failed. A failure is an *EnqueueError naming the failed op; later
	// ops are not executed. ctx is only consulted before submission.
	EnqueueAndWait(ctx context.Context, ops []Op) error

	Release() error
}

// Op is one queued device operation.
type Op interface {
	op()
}

// WriteOp copies Data into Memory at byte Offset.
type WriteOp struct {
	Memory Memory
	Offset int
	Data   []byte
}

func (WriteOp) op() {}

// ReadOp copies len(Dst) bytes out of Memory at byte Offset once the op completes.
type ReadOp struct {
	Memory Memory
	Offset int
	Dst    []byte
}

func (ReadOp) op() {}

// RunOp launches Program over Grid with Args bound positionally.
// Unused grid dimensions are 1.
type RunOp struct {
	Program Program
	Grid    [3]int
	Args    []Memory
}

func (RunOp) op() {}

// EnqueueError reports which op of a batch failed.
type EnqueueError struct {
	Index int
	Cause error
}

func (e *EnqueueError) Error() string {
	return fmt.Sprintf("op %d: %v", e.Index, e.Cause)
}

func (e *EnqueueError) Unwrap() error {
	return e.Cause
}

// BuildError is a rejected program build carrying the native build log.
type BuildError struct {
	Backend string
	Log     string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s build failed: %s", e.Backend, e.Log)
}

// RenderContext is the windowing-system context some native APIs require to
// be current on the calling thread before any call.
type RenderContext interface {
	MakeCurrent() error
	IsCurrent() bool
	SwapBuffers() error
}
