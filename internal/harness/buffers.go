package harness

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aquavit/Brahma-sub001/internal/compute"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// hostBuffer adapts a typed compute buffer to scenario data, which arrives
// as rows of float64 components.
type hostBuffer interface {
	buffer() compute.AnyBuffer
	write(offset, length int, rows [][]float64) (compute.Command, error)
	read(offset, length int) (compute.Command, func() [][]float64, error)
	close() error
}

type typedBuffer[T compute.Element] struct {
	buf  *compute.Buffer[T]
	from func([]float64) T
	to   func(T) []float64
}

func (b *typedBuffer[T]) buffer() compute.AnyBuffer { return b.buf }

func (b *typedBuffer[T]) write(offset, length int, rows [][]float64) (compute.Command, error) {
	vals := make([]T, len(rows))
	for i, row := range rows {
		vals[i] = b.from(row)
	}
	return b.buf.Write(offset, length, vals)
}

func (b *typedBuffer[T]) read(offset, length int) (compute.Command, func() [][]float64, error) {
	dst := make([]T, length)
	cmd, err := b.buf.Read(offset, length, dst)
	if err != nil {
		return nil, nil, err
	}
	rows := func() [][]float64 {
		out := make([][]float64, len(dst))
		for i, v := range dst {
			out[i] = b.to(v)
		}
		return out
	}
	return cmd, rows, nil
}

func (b *typedBuffer[T]) close() error { return b.buf.Close() }

func newTyped[T compute.Element](p *compute.Provider, mode ir.AccessMode, length int, from func([]float64) T, to func(T) []float64) (hostBuffer, error) {
	buf, err := compute.NewBuffer[T](p, mode, length)
	if err != nil {
		return nil, err
	}
	return &typedBuffer[T]{buf: buf, from: from, to: to}, nil
}

// newHostBuffer allocates a buffer of the given element kind.
func newHostBuffer(p *compute.Provider, kind ir.Kind, mode ir.AccessMode, length int) (hostBuffer, error) {
	f := func(v float64) float32 { return float32(v) }
	i := func(v float64) int32 { return int32(v) }
	switch kind {
	case ir.Float:
		return newTyped(p, mode, length,
			func(r []float64) float32 { return f(r[0]) },
			func(v float32) []float64 { return []float64{float64(v)} })
	case ir.Double:
		return newTyped(p, mode, length,
			func(r []float64) float64 { return r[0] },
			func(v float64) []float64 { return []float64{v} })
	case ir.Int:
		return newTyped(p, mode, length,
			func(r []float64) int32 { return i(r[0]) },
			func(v int32) []float64 { return []float64{float64(v)} })
	case ir.UInt:
		return newTyped(p, mode, length,
			func(r []float64) uint32 { return uint32(r[0]) },
			func(v uint32) []float64 { return []float64{float64(v)} })
	case ir.Float2:
		return newTyped(p, mode, length,
			func(r []float64) compute.Float2 { return compute.Float2{X: f(r[0]), Y: f(r[1])} },
			func(v compute.Float2) []float64 { return []float64{float64(v.X), float64(v.Y)} })
	case ir.Float3:
		return newTyped(p, mode, length,
			func(r []float64) compute.Float3 { return compute.Float3{X: f(r[0]), Y: f(r[1]), Z: f(r[2])} },
			func(v compute.Float3) []float64 { return []float64{float64(v.X), float64(v.Y), float64(v.Z)} })
	case ir.Float4:
		return newTyped(p, mode, length,
			func(r []float64) compute.Float4 {
				return compute.Float4{X: f(r[0]), Y: f(r[1]), Z: f(r[2]), W: f(r[3])}
			},
			func(v compute.Float4) []float64 {
				return []float64{float64(v.X), float64(v.Y), float64(v.Z), float64(v.W)}
			})
	case ir.Int2:
		return newTyped(p, mode, length,
			func(r []float64) compute.Int2 { return compute.Int2{X: i(r[0]), Y: i(r[1])} },
			func(v compute.Int2) []float64 { return []float64{float64(v.X), float64(v.Y)} })
	case ir.Int3:
		return newTyped(p, mode, length,
			func(r []float64) compute.Int3 { return compute.Int3{X: i(r[0]), Y: i(r[1]), Z: i(r[2])} },
			func(v compute.Int3) []float64 { return []float64{float64(v.X), float64(v.Y), float64(v.Z)} })
	case ir.Int4:
		return newTyped(p, mode, length,
			func(r []float64) compute.Int4 {
				return compute.Int4{X: i(r[0]), Y: i(r[1]), Z: i(r[2]), W: i(r[3])}
			},
			func(v compute.Int4) []float64 {
				return []float64{float64(v.X), float64(v.Y), float64(v.Z), float64(v.W)}
			})
	default:
		return nil, compute.NewArgumentError("unsupported buffer type %s", kind)
	}
}

// parseValues converts YAML data into rows of components. Scalars are plain
// numbers; vectors are lists with one number per component.
func parseValues(kind ir.Kind, raw []any) ([][]float64, error) {
	n := kind.Components()
	rows := make([][]float64, len(raw))
	for idx, item := range raw {
		var row []float64
		switch v := item.(type) {
		case []any:
			if n == 1 {
				return nil, fmt.Errorf("[%d]: %s is a scalar, got a list of %d", idx, kind, len(v))
			}
			if len(v) != n {
				return nil, fmt.Errorf("[%d]: %s needs %d components, got %d", idx, kind, n, len(v))
			}
			row = make([]float64, n)
			for c, comp := range v {
				x, err := toNumber(comp)
				if err != nil {
					return nil, fmt.Errorf("[%d][%d]: %w", idx, c, err)
				}
				row[c] = x
			}
		default:
			if n != 1 {
				return nil, fmt.Errorf("[%d]: %s needs a list of %d components", idx, kind, n)
			}
			x, err := toNumber(v)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", idx, err)
			}
			row = []float64{x}
		}
		for _, x := range row {
			if err := checkComponent(kind, x); err != nil {
				return nil, fmt.Errorf("[%d]: %w", idx, err)
			}
		}
		rows[idx] = row
	}
	return rows, nil
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func checkComponent(kind ir.Kind, x float64) error {
	switch kind.Scalar() {
	case ir.Int:
		if x != math.Trunc(x) || x < math.MinInt32 || x > math.MaxInt32 {
			return fmt.Errorf("%v is not a 32-bit int", x)
		}
	case ir.UInt:
		if x != math.Trunc(x) || x < 0 || x > math.MaxUint32 {
			return fmt.Errorf("%v is not a 32-bit uint", x)
		}
	}
	return nil
}

// formatRow renders one element: 1.5 for scalars, (1, 2, 3) for vectors.
func formatRow(kind ir.Kind, row []float64) string {
	parts := make([]string, len(row))
	for i, x := range row {
		parts[i] = formatComponent(kind, x)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatComponent(kind ir.Kind, x float64) string {
	switch kind.Scalar() {
	case ir.Float:
		return strconv.FormatFloat(x, 'g', -1, 32)
	case ir.Double:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return strconv.FormatInt(int64(x), 10)
	}
}
