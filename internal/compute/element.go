package compute

import (
	"encoding/binary"
	"fmt"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Float2 is a two-component float vector.
type Float2 struct{ X, Y float32 }

// Float3 is a three-component float vector, tightly packed on the host.
type Float3 struct{ X, Y, Z float32 }

// Float4 is a four-component float vector.
type Float4 struct{ X, Y, Z, W float32 }

// Int2 is a two-component int vector.
type Int2 struct{ X, Y int32 }

// Int3 is a three-component int vector, tightly packed on the host.
type Int3 struct{ X, Y, Z int32 }

// Int4 is a four-component int vector.
type Int4 struct{ X, Y, Z, W int32 }

// Element is the closed set of buffer element types.
type Element interface {
	float32 | float64 | int32 | uint32 | Float2 | Float3 | Float4 | Int2 | Int3 | Int4
}

// KindOf returns the IR kind of element type T.
func KindOf[T Element]() ir.Kind {
	var zero T
	switch any(zero).(type) {
	case float32:
		return ir.Float
	case float64:
		return ir.Double
	case int32:
		return ir.Int
	case uint32:
		return ir.UInt
	case Float2:
		return ir.Float2
	case Float3:
		return ir.Float3
	case Float4:
		return ir.Float4
	case Int2:
		return ir.Int2
	case Int3:
		return ir.Int3
	case Int4:
		return ir.Int4
	}
	panic(fmt.Sprintf("compute: unhandled element type %T", zero))
}

// encodeElements returns the little-endian device image of vals.
func encodeElements[T Element](vals []T) []byte {
	out, err := binary.Append(make([]byte, 0, len(vals)*KindOf[T]().Size()), binary.LittleEndian, vals)
	if err != nil {
		// Every Element is fixed-size, so encoding cannot fail.
		panic(err)
	}
	return out
}

// decodeElements fills dst from a little-endian device image.
func decodeElements[T Element](b []byte, dst []T) {
	if _, err := binary.Decode(b, binary.LittleEndian, dst); err != nil {
		panic(err)
	}
}
