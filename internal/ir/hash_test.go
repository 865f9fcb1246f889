package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scaleKernel(name, in, out string, factor float32) *Kernel {
	return &Kernel{
		Name:   name,
		Dims:   Dims1,
		Params: []Param{{Name: in, Kind: Float}, {Name: out, Kind: Float}},
		Body: []Store{{
			Param: 1,
			Index: Coord{},
			Value: Binary{Op: BinaryMultiply, Left: Load{Param: 0, Index: Coord{}}, Right: FloatLit(factor)},
		}},
	}
}

func TestKeyDeterminism(t *testing.T) {
	k := scaleKernel("scale", "input", "output", 2)

	key1, err := Key(k, "opencl")
	require.NoError(t, err)
	key2, err := Key(k, "opencl")
	require.NoError(t, err)

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 64, "SHA-256 hex is 64 characters")
}

func TestKeyIgnoresNames(t *testing.T) {
	a := scaleKernel("scale", "input", "output", 2)
	b := scaleKernel("double_it", "src", "dst", 2)

	assert.Equal(t, MustKey(a, "opencl"), MustKey(b, "opencl"))
}

func TestKeyChangesWithStructure(t *testing.T) {
	base := MustKey(scaleKernel("k", "a", "b", 2), "opencl")

	assert.NotEqual(t, base, MustKey(scaleKernel("k", "a", "b", 3), "opencl"), "literal value")
	assert.NotEqual(t, base, MustKey(scaleKernel("k", "a", "b", 2), "hlsl"), "backend")

	k := scaleKernel("k", "a", "b", 2)
	k.Params[0].Kind = Double
	assert.NotEqual(t, base, MustKey(k, "opencl"), "param kind")

	k = scaleKernel("k", "a", "b", 2)
	k.Dims = Dims2
	assert.NotEqual(t, base, MustKey(k, "opencl"), "dims")
}

func TestKeyDistinguishesLiteralKinds(t *testing.T) {
	f := scaleKernel("k", "a", "b", 2)
	i := scaleKernel("k", "a", "b", 2)
	i.Body[0].Value = Binary{Op: BinaryMultiply, Left: Load{Param: 0, Index: Coord{}}, Right: IntLit(2)}

	assert.NotEqual(t, MustKey(f, "opencl"), MustKey(i, "opencl"))
}

func TestKeyRejectsUnknownNode(t *testing.T) {
	k := scaleKernel("k", "a", "b", 2)
	k.Body[0].Value = nil

	_, err := Key(k, "opencl")
	require.Error(t, err)
	assert.True(t, IsUnsupportedExpression(err))
}
