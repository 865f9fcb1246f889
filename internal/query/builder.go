package query

import (
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Expr is an expression under construction. The zero Expr is invalid.
type Expr struct {
	node  ir.Expr
	owner *Builder
	err   error
}

// Node returns the IR node, or nil if the expression carries an error.
func (e Expr) Node() ir.Expr {
	if e.err != nil {
		return nil
	}
	return e.node
}

// Err returns the first construction error recorded in e.
func (e Expr) Err() error {
	return e.err
}

// X selects the first vector component.
func (e Expr) X() Expr { return e.member(ir.ComponentX) }

// Y selects the second vector component.
func (e Expr) Y() Expr { return e.member(ir.ComponentY) }

// Z selects the third vector component.
func (e Expr) Z() Expr { return e.member(ir.ComponentZ) }

// W selects the fourth vector component.
func (e Expr) W() Expr { return e.member(ir.ComponentW) }

func (e Expr) member(c ir.Component) Expr {
	if e.err != nil {
		return e
	}
	return Expr{node: ir.Member{Value: e.node, Component: c}, owner: e.owner}
}

// Builder assembles one kernel. Handles it returns are only valid with it.
type Builder struct {
	kernel ir.Kernel
	err    error
}

// New starts a kernel with the given name and range dimensionality.
func New(name string, dims ir.Dims) *Builder {
	return &Builder{kernel: ir.Kernel{Name: name, Dims: dims}}
}

// Buffer declares the next positional buffer parameter.
func (b *Builder) Buffer(name string, kind ir.Kind) Buffer {
	b.kernel.Params = append(b.kernel.Params, ir.Param{Name: name, Kind: kind})
	return Buffer{owner: b, index: len(b.kernel.Params) - 1}
}

// Range returns the handle of the kernel's iteration range.
func (b *Builder) Range() Range {
	return Range{owner: b}
}

// Assign appends target = value to the body. target must come from Buffer.At.
func (b *Builder) Assign(target, value Expr) {
	if b.err != nil {
		return
	}
	if err := b.check(target, value); err != nil {
		b.err = err
		return
	}
	load, ok := target.node.(ir.Load)
	if !ok {
		b.err = ir.NewUnsupportedExpression("assignment target must be an indexed buffer element")
		return
	}
	b.kernel.Body = append(b.kernel.Body, ir.Store{Param: load.Param, Index: load.Index, Value: value.node})
}

func (b *Builder) check(exprs ...Expr) error {
	for _, e := range exprs {
		if e.err != nil {
			return e.err
		}
		if e.node == nil {
			return ir.NewUnsupportedExpression("empty expression")
		}
		if e.owner != nil && e.owner != b {
			return ir.NewUnresolvedSymbol("expression references a symbol of another kernel")
		}
	}
	return nil
}

// Build validates and returns the kernel. The builder must not be reused.
func (b *Builder) Build() (*ir.Kernel, error) {
	if b.err != nil {
		return nil, b.err
	}
	k := b.kernel
	if err := ir.Validate(&k); err != nil {
		return nil, err
	}
	return &k, nil
}

// Buffer is a declared buffer parameter handle.
type Buffer struct {
	owner *Builder
	index int
}

// Index returns the parameter position.
func (p Buffer) Index() int { return p.index }

// At reads the element at idx.
func (p Buffer) At(idx Expr) Expr {
	if idx.err != nil {
		return idx
	}
	owner, err := merge(Expr{owner: p.owner}, idx)
	if err != nil {
		return Expr{err: err}
	}
	return Expr{node: ir.Load{Param: p.index, Index: idx.node}, owner: owner}
}

// Range is the iteration range handle.
type Range struct {
	owner *Builder
}

// Current is the linear coordinate of the invocation.
func (r Range) Current() Expr { return r.coord(ir.ComponentAll) }

// X is the first coordinate component.
func (r Range) X() Expr { return r.coord(ir.ComponentX) }

// Y is the second coordinate component.
func (r Range) Y() Expr { return r.coord(ir.ComponentY) }

// Z is the third coordinate component.
func (r Range) Z() Expr { return r.coord(ir.ComponentZ) }

func (r Range) coord(c ir.Component) Expr {
	return Expr{node: ir.Coord{Component: c}, owner: r.owner}
}

func merge(a, b Expr) (*Builder, error) {
	switch {
	case a.owner == nil:
		return b.owner, nil
	case b.owner == nil || a.owner == b.owner:
		return a.owner, nil
	default:
		return nil, ir.NewUnresolvedSymbol("expression mixes symbols of different kernels")
	}
}

func binary(op ir.BinaryOp, a, b Expr) Expr {
	if a.err != nil {
		return a
	}
	if b.err != nil {
		return b
	}
	owner, err := merge(a, b)
	if err != nil {
		return Expr{err: err}
	}
	return Expr{node: ir.Binary{Op: op, Left: a.node, Right: b.node}, owner: owner}
}

// Add returns a + b.
func Add(a, b Expr) Expr { return binary(ir.BinaryAdd, a, b) }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return binary(ir.BinarySubtract, a, b) }

// Mul returns a * b.
func Mul(a, b Expr) Expr { return binary(ir.BinaryMultiply, a, b) }

// Div returns a / b.
func Div(a, b Expr) Expr { return binary(ir.BinaryDivide, a, b) }

// Mod returns a % b. Integer operands only.
func Mod(a, b Expr) Expr { return binary(ir.BinaryModulo, a, b) }

// Eq returns a == b. Comparisons yield bool.
func Eq(a, b Expr) Expr { return binary(ir.BinaryEqual, a, b) }

// Ne returns a != b.
func Ne(a, b Expr) Expr { return binary(ir.BinaryNotEqual, a, b) }

// Lt returns a < b.
func Lt(a, b Expr) Expr { return binary(ir.BinaryLess, a, b) }

// Le returns a <= b.
func Le(a, b Expr) Expr { return binary(ir.BinaryLessEqual, a, b) }

// Gt returns a > b.
func Gt(a, b Expr) Expr { return binary(ir.BinaryGreater, a, b) }

// Ge returns a >= b.
func Ge(a, b Expr) Expr { return binary(ir.BinaryGreaterEqual, a, b) }

// Neg returns -a.
func Neg(a Expr) Expr {
	if a.err != nil {
		return a
	}
	return Expr{node: ir.Negate{Value: a.node}, owner: a.owner}
}

// F32 is a float literal.
func F32(v float32) Expr { return Expr{node: ir.FloatLit(v)} }

// F64 is a double literal.
func F64(v float64) Expr { return Expr{node: ir.DoubleLit(v)} }

// I32 is an int literal.
func I32(v int32) Expr { return Expr{node: ir.IntLit(v)} }

// U32 is a uint literal.
func U32(v uint32) Expr { return Expr{node: ir.UIntLit(v)} }
