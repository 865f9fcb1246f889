package ir

import (
	"fmt"
	"strings"
)

// Kind is the closed set of element kinds a kernel can see.
//
// Storable kinds may be used as buffer element types. Bool exists only as the
// result of a comparison and is never storable.
type Kind uint8

const (
	KindInvalid Kind = iota
	Bool
	Int
	UInt
	Float
	Double
	Int2
	Int3
	Int4
	Float2
	Float3
	Float4
)

var kindNames = map[Kind]string{
	Bool:   "bool",
	Int:    "int",
	UInt:   "uint",
	Float:  "float",
	Double: "double",
	Int2:   "int2",
	Int3:   "int3",
	Int4:   "int4",
	Float2: "float2",
	Float3: "float3",
	Float4: "float4",
}

// String returns the canonical lower-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind parses a kind name. Go spellings (float32, int32, ...) are accepted
// as aliases of the canonical names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "int32":
		return Int, nil
	case "uint", "uint32":
		return UInt, nil
	case "float", "float32":
		return Float, nil
	case "double", "float64":
		return Double, nil
	case "int2":
		return Int2, nil
	case "int3":
		return Int3, nil
	case "int4":
		return Int4, nil
	case "float2", "vector2":
		return Float2, nil
	case "float3", "vector3":
		return Float3, nil
	case "float4", "vector4":
		return Float4, nil
	default:
		return KindInvalid, NewTypeNotSupported("unknown element type %q", s)
	}
}

// Storable reports whether values of this kind can live in a buffer.
func (k Kind) Storable() bool {
	return k >= Int && k <= Float4
}

// Scalar returns the scalar kind of a vector, or k itself for scalars.
func (k Kind) Scalar() Kind {
	switch k {
	case Int2, Int3, Int4:
		return Int
	case Float2, Float3, Float4:
		return Float
	default:
		return k
	}
}

// Components returns the number of scalar components (1 for scalars).
func (k Kind) Components() int {
	switch k {
	case Int2, Float2:
		return 2
	case Int3, Float3:
		return 3
	case Int4, Float4:
		return 4
	case KindInvalid:
		return 0
	default:
		return 1
	}
}

// IsVector reports whether k has more than one component.
func (k Kind) IsVector() bool {
	return k.Components() > 1
}

// IsInteger reports whether the scalar kind of k is Int or UInt.
func (k Kind) IsInteger() bool {
	s := k.Scalar()
	return s == Int || s == UInt
}

// IsFloat reports whether the scalar kind of k is Float or Double.
func (k Kind) IsFloat() bool {
	s := k.Scalar()
	return s == Float || s == Double
}

// ScalarSize returns the byte size of one component.
func (k Kind) ScalarSize() int {
	switch k.Scalar() {
	case Int, UInt, Float:
		return 4
	case Double:
		return 8
	default:
		return 0
	}
}

// Size returns the tightly packed host byte size of one element.
func (k Kind) Size() int {
	if !k.Storable() {
		return 0
	}
	return k.ScalarSize() * k.Components()
}

// VectorOf returns the vector kind with the given scalar and component count.
// It returns KindInvalid when no such kind exists.
func VectorOf(scalar Kind, n int) Kind {
	if n == 1 {
		return scalar
	}
	switch {
	case scalar == Int && n == 2:
		return Int2
	case scalar == Int && n == 3:
		return Int3
	case scalar == Int && n == 4:
		return Int4
	case scalar == Float && n == 2:
		return Float2
	case scalar == Float && n == 3:
		return Float3
	case scalar == Float && n == 4:
		return Float4
	default:
		return KindInvalid
	}
}

// AccessMode is the declared device access of a buffer.
type AccessMode uint8

const (
	ReadWrite AccessMode = iota
	ReadOnly
	WriteOnly
)

// String returns the snake_case mode name used in scenario and archive files.
func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "read_only"
	case WriteOnly:
		return "write_only"
	case ReadWrite:
		return "read_write"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseAccessMode parses read_only, write_only or read_write.
func ParseAccessMode(s string) (AccessMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read_only", "readonly":
		return ReadOnly, nil
	case "write_only", "writeonly":
		return WriteOnly, nil
	case "read_write", "readwrite", "":
		return ReadWrite, nil
	default:
		return ReadWrite, fmt.Errorf("unknown access mode %q", s)
	}
}

// CanRead reports whether a kernel may load from a buffer with this mode.
func (m AccessMode) CanRead() bool { return m != WriteOnly }

// CanWrite reports whether a kernel may store into a buffer with this mode.
func (m AccessMode) CanWrite() bool { return m != ReadOnly }

// Dims is the dimensionality of an iteration range.
type Dims uint8

const (
	Dims1 Dims = 1
	Dims2 Dims = 2
	Dims3 Dims = 3
)

// Valid reports whether d is 1, 2 or 3.
func (d Dims) Valid() bool {
	return d >= Dims1 && d <= Dims3
}

func (d Dims) String() string {
	return fmt.Sprintf("%dD", uint8(d))
}
