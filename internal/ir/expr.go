package ir

import (
	"fmt"
	"math"
)

// Expr is a kernel expression node.
//
// This is a sealed interface - only types in this package implement it, so
// backends and the interpreter can switch exhaustively over node kinds.
type Expr interface {
	exprNode()
}

// Component selects a coordinate or vector component.
type Component uint8

const (
	// ComponentAll selects the whole coordinate (its linear index).
	ComponentAll Component = iota
	ComponentX
	ComponentY
	ComponentZ
	ComponentW
)

// Index returns the zero-based component index (X=0). ComponentAll returns -1.
func (c Component) Index() int {
	return int(c) - 1
}

func (c Component) String() string {
	switch c {
	case ComponentAll:
		return "current"
	case ComponentX:
		return "x"
	case ComponentY:
		return "y"
	case ComponentZ:
		return "z"
	case ComponentW:
		return "w"
	default:
		return fmt.Sprintf("component(%d)", uint8(c))
	}
}

// Coord reads the invocation coordinate.
//
// ComponentAll is the row-major linear index x + y*sizeX + z*sizeX*sizeY, which
// lets buf[r] address one element per invocation in any dimensionality.
// Coordinates are always of kind Int.
type Coord struct {
	Component Component
}

func (Coord) exprNode() {}

// Load reads Params[Param] at Index.
type Load struct {
	Param int
	Index Expr
}

func (Load) exprNode() {}

// BinaryOp is an arithmetic or comparison operator.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySubtract
	BinaryMultiply
	BinaryDivide
	BinaryModulo

	BinaryEqual
	BinaryNotEqual
	BinaryLess
	BinaryLessEqual
	BinaryGreater
	BinaryGreaterEqual
)

var binarySymbols = [...]string{
	BinaryAdd:          "+",
	BinarySubtract:     "-",
	BinaryMultiply:     "*",
	BinaryDivide:       "/",
	BinaryModulo:       "%",
	BinaryEqual:        "==",
	BinaryNotEqual:     "!=",
	BinaryLess:         "<",
	BinaryLessEqual:    "<=",
	BinaryGreater:      ">",
	BinaryGreaterEqual: ">=",
}

// Symbol returns the infix operator text shared by all three kernel languages.
func (op BinaryOp) Symbol() string {
	if int(op) < len(binarySymbols) {
		return binarySymbols[op]
	}
	return "?"
}

func (op BinaryOp) String() string {
	return op.Symbol()
}

// IsComparison reports whether op yields a Bool.
func (op BinaryOp) IsComparison() bool {
	return op >= BinaryEqual && op <= BinaryGreaterEqual
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (Binary) exprNode() {}

// Negate is arithmetic negation.
type Negate struct {
	Value Expr
}

func (Negate) exprNode() {}

// Member selects one component of a vector value.
type Member struct {
	Value     Expr
	Component Component
}

func (Member) exprNode() {}

// Literal is a typed scalar constant. Integer kinds use Int, float kinds use Float.
type Literal struct {
	Kind  Kind
	Int   int64
	Float float64
}

func (Literal) exprNode() {}

// FloatLit returns a float literal. The value is rounded to float32 so the IR
// holds exactly what the device will see.
func FloatLit(v float32) Literal {
	return Literal{Kind: Float, Float: float64(v)}
}

// DoubleLit returns a double literal.
func DoubleLit(v float64) Literal {
	return Literal{Kind: Double, Float: v}
}

// IntLit returns an int literal.
func IntLit(v int32) Literal {
	return Literal{Kind: Int, Int: int64(v)}
}

// UIntLit returns a uint literal.
func UIntLit(v uint32) Literal {
	return Literal{Kind: UInt, Int: int64(v)}
}

// Bits returns the literal's bit pattern: float32/float64 bits for float
// kinds, two's complement for integers.
func (l Literal) Bits() uint64 {
	switch l.Kind {
	case Float:
		return uint64(math.Float32bits(float32(l.Float)))
	case Double:
		return math.Float64bits(l.Float)
	case UInt:
		return uint64(uint32(l.Int))
	default:
		return uint64(l.Int)
	}
}

// Store writes Value into Params[Param] at Index. A kernel body is an ordered
// list of stores; each invocation evaluates them in order.
type Store struct {
	Param int
	Index Expr
	Value Expr
}

// Param is a declared buffer parameter. Name is used for diagnostics only; it
// is not part of the program key and does not reach generated source.
type Param struct {
	Name string
	Kind Kind
}

// Kernel is a parsed kernel body.
type Kernel struct {
	Name   string
	Dims   Dims
	Params []Param
	Body   []Store
}

// Signature returns the declared range dims and parameter kinds.
func (k *Kernel) Signature() Signature {
	kinds := make([]Kind, len(k.Params))
	for i, p := range k.Params {
		kinds[i] = p.Kind
	}
	return Signature{Dims: k.Dims, Kinds: kinds}
}

// ParamName returns the diagnostic name of parameter i.
func (k *Kernel) ParamName(i int) string {
	if i >= 0 && i < len(k.Params) && k.Params[i].Name != "" {
		return k.Params[i].Name
	}
	return fmt.Sprintf("buf%d", i)
}

// Signature is the type-level shape of a kernel: range dims plus ordered
// buffer element kinds.
type Signature struct {
	Dims  Dims
	Kinds []Kind
}

// Equal reports whether two signatures have the same dims and kinds.
func (s Signature) Equal(o Signature) bool {
	if s.Dims != o.Dims || len(s.Kinds) != len(o.Kinds) {
		return false
	}
	for i := range s.Kinds {
		if s.Kinds[i] != o.Kinds[i] {
			return false
		}
	}
	return true
}

func (s Signature) String() string {
	out := s.Dims.String() + "("
	for i, k := range s.Kinds {
		if i > 0 {
			out += ", "
		}
		out += k.String()
	}
	return out + ")"
}

// Usage records how a kernel body touches one parameter.
type Usage struct {
	Read  bool
	Write bool
}

// Usages returns per-parameter read/write usage of the kernel body.
// Backends use it to pick access qualifiers and the host driver uses it to
// enforce buffer access modes.
func (k *Kernel) Usages() []Usage {
	usages := make([]Usage, len(k.Params))
	var visit func(Expr)
	visit = func(e Expr) {
		switch n := e.(type) {
		case Load:
			if n.Param >= 0 && n.Param < len(usages) {
				usages[n.Param].Read = true
			}
			visit(n.Index)
		case Binary:
			visit(n.Left)
			visit(n.Right)
		case Negate:
			visit(n.Value)
		case Member:
			visit(n.Value)
		}
	}
	for _, st := range k.Body {
		if st.Param >= 0 && st.Param < len(usages) {
			usages[st.Param].Write = true
		}
		visit(st.Index)
		visit(st.Value)
	}
	return usages
}
