package compute

import (
	"slices"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Kernel is an immutable typed handle over a Program: a declared range
// dimensionality and the ordered element kinds of its buffer parameters.
type Kernel struct {
	program *Program
	sig     ir.Signature
}

// NewKernel binds dims and kinds to p. They must match the signature the
// program was compiled from.
func NewKernel(p *Program, dims ir.Dims, kinds ...ir.Kind) (*Kernel, error) {
	if p == nil {
		return nil, NewArgumentError("nil program")
	}
	if err := p.provider.checkOpen(); err != nil {
		return nil, err
	}
	want := p.Signature()
	got := ir.Signature{Dims: dims, Kinds: slices.Clone(kinds)}
	if !got.Equal(want) {
		return nil, NewTypeMismatchError("kernel %s is %s, declared %s", p.KernelName(), want, got)
	}
	return &Kernel{program: p, sig: got}, nil
}

// Bind returns a kernel with the program's own signature.
func Bind(p *Program) (*Kernel, error) {
	if p == nil {
		return nil, NewArgumentError("nil program")
	}
	if err := p.provider.checkOpen(); err != nil {
		return nil, err
	}
	return &Kernel{program: p, sig: p.Signature()}, nil
}

// Program returns the underlying program.
func (k *Kernel) Program() *Program { return k.program }

// Signature returns the declared signature.
func (k *Kernel) Signature() ir.Signature { return k.sig }

// Run returns a command launching k over rng with buffers bound to the
// parameters in order.
func (k *Kernel) Run(rng Range, buffers ...AnyBuffer) (Command, error) {
	if err := k.program.provider.checkOpen(); err != nil {
		return nil, err
	}
	if err := validRange(rng); err != nil {
		return nil, err
	}
	if rng.Dims() != k.sig.Dims {
		return nil, NewTypeMismatchError("kernel %s expects a %s range, got %s", k.program.KernelName(), k.sig.Dims, rng.Dims())
	}
	if len(buffers) != len(k.sig.Kinds) {
		return nil, NewTypeMismatchError("kernel %s takes %d buffers, got %d", k.program.KernelName(), len(k.sig.Kinds), len(buffers))
	}
	for i, b := range buffers {
		if b == nil {
			return nil, NewArgumentError("buffer %d is nil", i)
		}
		if b.owner() != k.program.provider {
			return nil, NewArgumentError("buffer %d belongs to another provider", i)
		}
		if b.Closed() {
			return nil, NewDisposedError("buffer")
		}
		if b.Kind() != k.sig.Kinds[i] {
			return nil, NewTypeMismatchError("buffer %d holds %s, kernel %s expects %s", i, b.Kind(), k.program.KernelName(), k.sig.Kinds[i])
		}
	}
	return &RunCommand{kernel: k, rng: rng, buffers: slices.Clone(buffers)}, nil
}

// Kernel1 is a kernel over one buffer whose element type is checked at
// compile time.
type Kernel1[T1 Element] struct {
	*Kernel
}

// NewKernel1 binds p as a one-buffer kernel.
func NewKernel1[T1 Element](p *Program, dims ir.Dims) (*Kernel1[T1], error) {
	k, err := NewKernel(p, dims, KindOf[T1]())
	if err != nil {
		return nil, err
	}
	return &Kernel1[T1]{k}, nil
}

// Run launches the kernel over rng.
func (k *Kernel1[T1]) Run(rng Range, b1 *Buffer[T1]) (Command, error) {
	return k.Kernel.Run(rng, nilSafe(b1))
}

// Kernel2 is a two-buffer typed kernel.
type Kernel2[T1, T2 Element] struct {
	*Kernel
}

// NewKernel2 binds p as a two-buffer kernel.
func NewKernel2[T1, T2 Element](p *Program, dims ir.Dims) (*Kernel2[T1, T2], error) {
	k, err := NewKernel(p, dims, KindOf[T1](), KindOf[T2]())
	if err != nil {
		return nil, err
	}
	return &Kernel2[T1, T2]{k}, nil
}

// Run launches the kernel over rng.
func (k *Kernel2[T1, T2]) Run(rng Range, b1 *Buffer[T1], b2 *Buffer[T2]) (Command, error) {
	return k.Kernel.Run(rng, nilSafe(b1), nilSafe(b2))
}

// Kernel3 is a three-buffer typed kernel.
type Kernel3[T1, T2, T3 Element] struct {
	*Kernel
}

// NewKernel3 binds p as a three-buffer kernel.
func NewKernel3[T1, T2, T3 Element](p *Program, dims ir.Dims) (*Kernel3[T1, T2, T3], error) {
	k, err := NewKernel(p, dims, KindOf[T1](), KindOf[T2](), KindOf[T3]())
	if err != nil {
		return nil, err
	}
	return &Kernel3[T1, T2, T3]{k}, nil
}

// Run launches the kernel over rng.
func (k *Kernel3[T1, T2, T3]) Run(rng Range, b1 *Buffer[T1], b2 *Buffer[T2], b3 *Buffer[T3]) (Command, error) {
	return k.Kernel.Run(rng, nilSafe(b1), nilSafe(b2), nilSafe(b3))
}

// nilSafe keeps a nil *Buffer[T] from becoming a non-nil AnyBuffer.
func nilSafe[T Element](b *Buffer[T]) AnyBuffer {
	if b == nil {
		return nil
	}
	return b
}
