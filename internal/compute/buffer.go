package compute

import (
	"fmt"

	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// AnyBuffer is a Buffer of any element type. Only *Buffer[T] implements it.
type AnyBuffer interface {
	Kind() ir.Kind
	Len() int
	Mode() ir.AccessMode
	Closed() bool

	owner() *Provider
	memory() (driver.Memory, error)
}

// Buffer is a typed device memory object owned by one Provider.
//
// The access mode constrains kernels only: a kernel may not store into a
// ReadOnly buffer or load from a WriteOnly one. Host transfers are allowed
// in every mode.
type Buffer[T Element] struct {
	provider *Provider
	native   driver.Memory
	length   int
	mode     ir.AccessMode
	closed   bool
}

// NewBuffer allocates length elements of T on p's context.
func NewBuffer[T Element](p *Provider, mode ir.AccessMode, length int) (*Buffer[T], error) {
	if p == nil {
		return nil, NewArgumentError("nil provider")
	}
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, NewArgumentError("buffer length must be positive, got %d", length)
	}
	switch mode {
	case ir.ReadOnly, ir.WriteOnly, ir.ReadWrite:
	default:
		return nil, NewArgumentError("unknown access mode %v", mode)
	}

	kind := KindOf[T]()
	if err := p.makeCurrent(); err != nil {
		return nil, err
	}
	mem, err := p.ctx.AllocBuffer(length*kind.Size(), mode)
	if err != nil {
		return nil, p.driverError(err, "allocate %d x %s", length, kind)
	}
	return &Buffer[T]{provider: p, native: mem, length: length, mode: mode}, nil
}

// Kind returns the element kind.
func (b *Buffer[T]) Kind() ir.Kind { return KindOf[T]() }

// Len returns the element count.
func (b *Buffer[T]) Len() int { return b.length }

// Mode returns the device access mode.
func (b *Buffer[T]) Mode() ir.AccessMode { return b.mode }

// Closed reports whether Close was called.
func (b *Buffer[T]) Closed() bool { return b.closed }

func (b *Buffer[T]) String() string {
	return fmt.Sprintf("buffer<%s>[%d] %s", b.Kind(), b.length, b.mode)
}

func (b *Buffer[T]) owner() *Provider { return b.provider }

func (b *Buffer[T]) memory() (driver.Memory, error) {
	if b.closed {
		return nil, NewDisposedError("buffer")
	}
	return b.native, nil
}

// usable fails once the buffer or its provider is closed, or the provider's
// context is lost.
func (b *Buffer[T]) usable() error {
	if b.closed {
		return NewDisposedError("buffer")
	}
	return b.provider.checkOpen()
}

func (b *Buffer[T]) checkRange(offset, length, have int) error {
	if offset < 0 || length < 0 {
		return NewRangeError("negative offset %d or length %d", offset, length)
	}
	if offset+length > b.length {
		return NewRangeError("elements [%d, %d) exceed buffer length %d", offset, offset+length, b.length)
	}
	if have < length {
		return NewRangeError("host slice holds %d elements, need %d", have, length)
	}
	return nil
}

// Write returns a command copying src[:length] into elements
// [offset, offset+length). The data is captured when the command is created.
func (b *Buffer[T]) Write(offset, length int, src []T) (Command, error) {
	if err := b.usable(); err != nil {
		return nil, err
	}
	if err := b.checkRange(offset, length, len(src)); err != nil {
		return nil, err
	}
	return &WriteCommand{
		buffer: b,
		offset: offset,
		length: length,
		data:   encodeElements(src[:length]),
	}, nil
}

// Read returns a command copying elements [offset, offset+length) into
// dst[:length]. dst is filled once the command's group completes.
func (b *Buffer[T]) Read(offset, length int, dst []T) (Command, error) {
	if err := b.usable(); err != nil {
		return nil, err
	}
	if err := b.checkRange(offset, length, len(dst)); err != nil {
		return nil, err
	}
	return &ReadCommand{
		buffer: b,
		offset: offset,
		length: length,
		fill: func(raw []byte) {
			decodeElements(raw, dst[:length])
		},
	}, nil
}

// Close releases the native memory. It is idempotent.
func (b *Buffer[T]) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.native.Release(); err != nil {
		return newError(ErrCodeNative, err, "release %s", b)
	}
	return nil
}
