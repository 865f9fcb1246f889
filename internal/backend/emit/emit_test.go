package emit

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// plain is a minimal dialect with C casts and unsuffixed literals.
type plain struct{}

func (plain) TypeName(k ir.Kind) (string, error) { return k.String(), nil }

func (plain) Convert(k ir.Kind, expr string) (string, error) {
	return fmt.Sprintf("(%s)(%s)", k, expr), nil
}

func (plain) Literal(l ir.Literal) string {
	if l.Kind.IsFloat() {
		return FormatFloat64(l.Float)
	}
	return FormatInt(l.Int)
}

func TestExprConversions(t *testing.T) {
	k := &ir.Kernel{Dims: ir.Dims1, Params: []ir.Param{{Kind: ir.Float}, {Kind: ir.Int}, {Kind: ir.Float4}}}
	at := func(p int) ir.Expr { return ir.Load{Param: p, Index: ir.Coord{}} }

	tests := []struct {
		name string
		expr ir.Expr
		want string
	}{
		{"same kinds", ir.Binary{Op: ir.BinaryAdd, Left: at(0), Right: at(0)}, "(buf0[brahma_index] + buf0[brahma_index])"},
		{"int promoted", ir.Binary{Op: ir.BinaryAdd, Left: at(0), Right: at(1)}, "(buf0[brahma_index] + (float)(buf1[brahma_index]))"},
		{"broadcast scalar converted", ir.Binary{Op: ir.BinaryMultiply, Left: at(2), Right: ir.IntLit(2)}, "(buf2[brahma_index] * (float)(2))"},
		{"comparison operands unified", ir.Binary{Op: ir.BinaryLess, Left: at(1), Right: ir.FloatLit(1.5)}, "((float)(buf1[brahma_index]) < 1.5)"},
		{"member", ir.Member{Value: at(2), Component: ir.ComponentW}, "buf2[brahma_index].w"},
		{"negate", ir.Negate{Value: at(1)}, "(-buf1[brahma_index])"},
		{"nested index", ir.Load{Param: 0, Index: ir.Binary{Op: ir.BinaryAdd, Left: ir.Coord{}, Right: ir.IntLit(1)}}, "buf0[(brahma_index + 1)]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expr(k, plain{}, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBodyConvertsStoredValues(t *testing.T) {
	k := &ir.Kernel{Dims: ir.Dims1, Params: []ir.Param{{Kind: ir.Float}, {Kind: ir.Float4}}}
	k.Body = []ir.Store{
		{Param: 0, Index: ir.Coord{}, Value: ir.Binary{Op: ir.BinaryGreater, Left: ir.Load{Param: 0, Index: ir.Coord{}}, Right: ir.FloatLit(0)}},
		{Param: 1, Index: ir.Coord{}, Value: ir.FloatLit(1)},
	}

	var w Writer
	require.NoError(t, Body(&w, k, plain{}))
	assert.Equal(t, "buf0[brahma_index] = (float)((buf0[brahma_index] > 0.0));\nbuf1[brahma_index] = (float4)(1.0);\n", w.String())
}

func TestCoordinates(t *testing.T) {
	id := func(axis int) string { return fmt.Sprintf("id(%d)", axis) }
	size := func(axis int) string { return fmt.Sprintf("size(%d)", axis) }

	var w Writer
	Coordinates(&w, ir.Dims3, id, size)
	assert.Equal(t, "int brahma_x = id(0);\n"+
		"int brahma_y = id(1);\n"+
		"int brahma_z = id(2);\n"+
		"int brahma_index = brahma_x + brahma_y * size(0) + brahma_z * size(0) * size(1);\n", w.String())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "2.0", FormatFloat32(2))
	assert.Equal(t, "0.1", FormatFloat32(0.1))
	assert.Equal(t, "1e+20", FormatFloat32(1e20))
	assert.Equal(t, "0.1", FormatFloat64(0.1))
	assert.Equal(t, "(-2147483647 - 1)", FormatInt(math.MinInt32))
	assert.Equal(t, "-3", FormatInt(-3))
	assert.Equal(t, "7u", FormatUInt(7))
	assert.False(t, IsFinite(ir.DoubleLit(math.Inf(1))))
}

func TestWriterIndent(t *testing.T) {
	var w Writer
	w.Line("{")
	w.Indent()
	w.Line("x;")
	w.Dedent()
	w.Line("}")
	assert.Equal(t, "{\n    x;\n}\n", w.String())
}
