// Package emit holds the expression and statement writer shared by the
// C-family kernel languages. Backends supply a Dialect for the parts that
// differ: type spelling, conversions and literal syntax.
package emit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Names of the coordinate locals every backend declares before the body.
const (
	IndexName = "brahma_index"
	XName     = "brahma_x"
	YName     = "brahma_y"
	ZName     = "brahma_z"
)

// EntryName is the fixed kernel entry point.
const EntryName = "brahma_main"

// ParamName returns the positional name of parameter i.
func ParamName(i int) string {
	return "buf" + strconv.Itoa(i)
}

// Dialect describes one target language.
type Dialect interface {
	// TypeName spells k, or fails with TYPE_NOT_SUPPORTED.
	TypeName(k ir.Kind) (string, error)

	// Convert wraps expr, of some other kind, as a value of kind k.
	Convert(k ir.Kind, expr string) (string, error)

	// Literal spells a constant.
	Literal(l ir.Literal) string
}

// Writer accumulates indented source lines.
type Writer struct {
	out    strings.Builder
	indent int
}

// Line writes one indented line.
func (w *Writer) Line(format string, args ...any) {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
	fmt.Fprintf(&w.out, format, args...)
	w.out.WriteByte('\n')
}

// Blank writes an empty line.
func (w *Writer) Blank() {
	w.out.WriteByte('\n')
}

// Indent increases the indentation level.
func (w *Writer) Indent() { w.indent++ }

// Dedent decreases the indentation level.
func (w *Writer) Dedent() {
	if w.indent > 0 {
		w.indent--
	}
}

// String returns the accumulated source.
func (w *Writer) String() string {
	return w.out.String()
}

// CheckParams resolves every parameter type so unsupported element kinds fail
// before any source is produced. It returns the spelled element types.
func CheckParams(k *ir.Kernel, d Dialect) ([]string, error) {
	names := make([]string, len(k.Params))
	for i, p := range k.Params {
		name, err := d.TypeName(p.Kind)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k.ParamName(i), err)
		}
		names[i] = name
	}
	return names, nil
}

// Body writes one assignment per store, in order.
func Body(w *Writer, k *ir.Kernel, d Dialect) error {
	for i, st := range k.Body {
		idx, err := Expr(k, d, st.Index)
		if err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
		value, err := Value(k, d, st.Value, k.Params[st.Param].Kind)
		if err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
		w.Line("%s[%s] = %s;", ParamName(st.Param), idx, value)
	}
	return nil
}

// Value writes e converted to kind target.
func Value(k *ir.Kernel, d Dialect, e ir.Expr, target ir.Kind) (string, error) {
	kind, err := ir.TypeOf(k, e)
	if err != nil {
		return "", err
	}
	s, err := Expr(k, d, e)
	if err != nil {
		return "", err
	}
	if kind == target {
		return s, nil
	}
	return d.Convert(target, s)
}

// Expr writes e without a surrounding conversion.
func Expr(k *ir.Kernel, d Dialect, e ir.Expr) (string, error) {
	switch n := e.(type) {
	case ir.Coord:
		switch n.Component {
		case ir.ComponentAll:
			return IndexName, nil
		case ir.ComponentX:
			return XName, nil
		case ir.ComponentY:
			return YName, nil
		case ir.ComponentZ:
			return ZName, nil
		}
		return "", ir.NewUnsupportedExpression("range has no component %s", n.Component)

	case ir.Load:
		idx, err := Expr(k, d, n.Index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%s]", ParamName(n.Param), idx), nil

	case ir.Binary:
		u, err := ir.OperandKind(k, n)
		if err != nil {
			return "", err
		}
		left, err := operand(k, d, n.Left, u)
		if err != nil {
			return "", err
		}
		right, err := operand(k, d, n.Right, u)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, n.Op.Symbol(), right), nil

	case ir.Negate:
		v, err := Expr(k, d, n.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(-%s)", v), nil

	case ir.Member:
		v, err := Expr(k, d, n.Value)
		if err != nil {
			return "", err
		}
		return v + "." + n.Component.String(), nil

	case ir.Literal:
		return d.Literal(n), nil

	default:
		return "", ir.NewUnsupportedExpression("unknown node %T", e)
	}
}

// operand converts one side of a binary operation to the unified kind. A
// scalar beside a vector is converted to the vector's scalar kind and left
// for the language to broadcast.
func operand(k *ir.Kernel, d Dialect, e ir.Expr, unified ir.Kind) (string, error) {
	kind, err := ir.TypeOf(k, e)
	if err != nil {
		return "", err
	}
	target := unified
	if !kind.IsVector() {
		target = unified.Scalar()
	}
	return Value(k, d, e, target)
}

// FormatFloat32 spells a finite float with a decimal point or exponent.
func FormatFloat32(f float32) string {
	return ensureDecimal(strconv.FormatFloat(float64(f), 'g', -1, 32))
}

// FormatFloat64 spells a finite double with a decimal point or exponent.
func FormatFloat64(f float64) string {
	return ensureDecimal(strconv.FormatFloat(f, 'g', -1, 64))
}

func ensureDecimal(s string) string {
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// IsFinite reports whether a float literal can be spelled as a decimal.
func IsFinite(l ir.Literal) bool {
	return !math.IsInf(l.Float, 0) && !math.IsNaN(l.Float)
}

// FormatInt spells an int literal. The most negative int has no literal form
// in C-family languages and is written as an expression.
func FormatInt(v int64) string {
	if v == math.MinInt32 {
		return "(-2147483647 - 1)"
	}
	return strconv.FormatInt(v, 10)
}

// FormatUInt spells a uint literal.
func FormatUInt(v int64) string {
	return strconv.FormatUint(uint64(uint32(v)), 10) + "u"
}
