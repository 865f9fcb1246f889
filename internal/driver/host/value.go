package host

import (
	"encoding/binary"
	"math"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// value is one interpreted expression result. Integer kinds use i, float
// kinds use f; uint components are kept in their uint32 range.
type value struct {
	kind ir.Kind
	i    [4]int64
	f    [4]float64
}

func scalarInt(k ir.Kind, v int64) value {
	out := value{kind: k}
	out.i[0] = v
	return out
}

func boolValue(b bool) value {
	if b {
		return scalarInt(ir.Bool, 1)
	}
	return scalarInt(ir.Bool, 0)
}

// decode reads one element of kind k from little-endian bytes.
func decode(k ir.Kind, b []byte) value {
	v := value{kind: k}
	size := k.ScalarSize()
	for c := 0; c < k.Components(); c++ {
		chunk := b[c*size : (c+1)*size]
		switch k.Scalar() {
		case ir.Int:
			v.i[c] = int64(int32(binary.LittleEndian.Uint32(chunk)))
		case ir.UInt:
			v.i[c] = int64(binary.LittleEndian.Uint32(chunk))
		case ir.Float:
			v.f[c] = float64(math.Float32frombits(binary.LittleEndian.Uint32(chunk)))
		case ir.Double:
			v.f[c] = math.Float64frombits(binary.LittleEndian.Uint64(chunk))
		}
	}
	return v
}

// encode writes v, which must already be of the element kind, into b.
func encode(v value, b []byte) {
	size := v.kind.ScalarSize()
	for c := 0; c < v.kind.Components(); c++ {
		chunk := b[c*size : (c+1)*size]
		switch v.kind.Scalar() {
		case ir.Int, ir.UInt:
			binary.LittleEndian.PutUint32(chunk, uint32(v.i[c]))
		case ir.Float:
			binary.LittleEndian.PutUint32(chunk, math.Float32bits(float32(v.f[c])))
		case ir.Double:
			binary.LittleEndian.PutUint64(chunk, math.Float64bits(v.f[c]))
		}
	}
}

// convert changes v to kind to with C conversion rules. Scalars splat into
// vectors.
func convert(v value, to ir.Kind) value {
	if v.kind == to {
		return v
	}
	if !v.kind.IsVector() && to.IsVector() {
		s := convert(v, to.Scalar())
		out := value{kind: to}
		for c := 0; c < to.Components(); c++ {
			out.i[c] = s.i[0]
			out.f[c] = s.f[0]
		}
		return out
	}
	out := value{kind: to}
	for c := 0; c < to.Components(); c++ {
		out.i[c], out.f[c] = convertScalar(v, c, to.Scalar())
	}
	return out
}

func convertScalar(v value, c int, to ir.Kind) (int64, float64) {
	from := v.kind.Scalar()
	if v.kind == ir.Bool {
		from = ir.Int
	}
	switch to {
	case ir.Int:
		if from.IsFloat() {
			return int64(int32(v.f[c])), 0
		}
		return int64(int32(v.i[c])), 0
	case ir.UInt:
		if from.IsFloat() {
			return int64(uint32(int64(v.f[c]))), 0
		}
		return int64(uint32(v.i[c])), 0
	case ir.Float:
		if from.IsFloat() {
			return 0, float64(float32(v.f[c]))
		}
		return 0, float64(float32(v.i[c]))
	case ir.Double:
		if from.IsFloat() {
			return 0, v.f[c]
		}
		return 0, float64(v.i[c])
	}
	return 0, 0
}

// arith applies an arithmetic operator componentwise. Both operands are
// already of kind k.
func arith(op ir.BinaryOp, l, r value, k ir.Kind) value {
	out := value{kind: k}
	for c := 0; c < k.Components(); c++ {
		switch k.Scalar() {
		case ir.Float:
			out.f[c] = float64(float32(floatOp(op, l.f[c], r.f[c])))
		case ir.Double:
			out.f[c] = floatOp(op, l.f[c], r.f[c])
		case ir.Int:
			out.i[c] = int64(intOp(op, int32(l.i[c]), int32(r.i[c])))
		case ir.UInt:
			out.i[c] = int64(uintOp(op, uint32(l.i[c]), uint32(r.i[c])))
		}
	}
	return out
}

func floatOp(op ir.BinaryOp, a, b float64) float64 {
	switch op {
	case ir.BinaryAdd:
		return a + b
	case ir.BinarySubtract:
		return a - b
	case ir.BinaryMultiply:
		return a * b
	case ir.BinaryDivide:
		return a / b
	}
	return 0
}

// intOp applies op with int32 wraparound. Division or remainder by zero yields 0.
func intOp(op ir.BinaryOp, a, b int32) int32 {
	switch op {
	case ir.BinaryAdd:
		return a + b
	case ir.BinarySubtract:
		return a - b
	case ir.BinaryMultiply:
		return a * b
	case ir.BinaryDivide:
		if b == 0 {
			return 0
		}
		return a / b
	case ir.BinaryModulo:
		if b == 0 {
			return 0
		}
		return a % b
	}
	return 0
}

func uintOp(op ir.BinaryOp, a, b uint32) uint32 {
	switch op {
	case ir.BinaryAdd:
		return a + b
	case ir.BinarySubtract:
		return a - b
	case ir.BinaryMultiply:
		return a * b
	case ir.BinaryDivide:
		if b == 0 {
			return 0
		}
		return a / b
	case ir.BinaryModulo:
		if b == 0 {
			return 0
		}
		return a % b
	}
	return 0
}

// compare applies a comparison to scalars of kind k.
func compare(op ir.BinaryOp, l, r value, k ir.Kind) value {
	var cmp int
	if k.IsFloat() {
		a, b := l.f[0], r.f[0]
		if math.IsNaN(a) || math.IsNaN(b) {
			// Every ordered comparison with NaN is false; != is true.
			return boolValue(op == ir.BinaryNotEqual)
		}
		cmp = threeWay(a < b, a > b)
	} else {
		a, b := l.i[0], r.i[0]
		cmp = threeWay(a < b, a > b)
	}
	switch op {
	case ir.BinaryEqual:
		return boolValue(cmp == 0)
	case ir.BinaryNotEqual:
		return boolValue(cmp != 0)
	case ir.BinaryLess:
		return boolValue(cmp < 0)
	case ir.BinaryLessEqual:
		return boolValue(cmp <= 0)
	case ir.BinaryGreater:
		return boolValue(cmp > 0)
	default:
		return boolValue(cmp >= 0)
	}
}

func threeWay(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func negate(v value) value {
	out := value{kind: v.kind}
	for c := 0; c < v.kind.Components(); c++ {
		switch v.kind.Scalar() {
		case ir.Float:
			out.f[c] = float64(-float32(v.f[c]))
		case ir.Double:
			out.f[c] = -v.f[c]
		case ir.Int:
			out.i[c] = int64(-int32(v.i[c]))
		case ir.UInt:
			out.i[c] = int64(-uint32(v.i[c]))
		}
	}
	return out
}

func literal(l ir.Literal) value {
	v := value{kind: l.Kind}
	switch l.Kind {
	case ir.Float:
		v.f[0] = float64(float32(l.Float))
	case ir.Double:
		v.f[0] = l.Float
	case ir.UInt:
		v.i[0] = int64(uint32(l.Int))
	default:
		v.i[0] = int64(int32(l.Int))
	}
	return v
}
