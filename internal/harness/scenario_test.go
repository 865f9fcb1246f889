package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: one write and one read
kernels: kernels
buffers:
  - name: buf
    type: int
    length: 2
flow:
  - write: buf
    data: [7, -3]
  - read: buf
assertions:
  - type: buffer_equals
    buffer: buf
    values: [7, -3]
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "opencl", s.Backend, "backend defaults to opencl")
	require.Len(t, s.Flow, 2)
	assert.Equal(t, "write", s.Flow[0].Kind())
	assert.Equal(t, "read", s.Flow[1].Kind())
	assert.Nil(t, s.Flow[1].Length)
}

func TestLoadScenario_ResolvesKernels(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "copy.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "kernels"), s.Kernels)
}

func TestLoadScenario_MissingKernels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kernels directory not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Errors(t *testing.T) {
	const head = "name: n\ndescription: d\nkernels: k\n"
	const bufs = "buffers:\n  - {name: a, type: float, length: 2}\n"
	const flow = "flow:\n  - read: a\n"
	const asserts = "assertions:\n  - {type: compiles, count: 1}\n"

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", head + bufs + flow + asserts + "extra: 1\n", "field extra not found"},
		{"missing name", "description: d\nkernels: k\n" + bufs + flow + asserts, "name is required"},
		{"bad backend", head + "backend: metal\n" + bufs + flow + asserts, "unknown backend"},
		{"no buffers", head + flow + asserts, "buffers list is required"},
		{"bool buffer", head + "buffers:\n  - {name: a, type: bool, length: 2}\n" + flow + asserts, "unsupported type"},
		{"bad mode", head + "buffers:\n  - {name: a, type: float, mode: rw, length: 2}\n" + flow + asserts, "unknown access mode"},
		{"zero length", head + "buffers:\n  - {name: a, type: float, length: 0}\n" + flow + asserts, "length must be positive"},
		{"duplicate buffer", head + "buffers:\n  - {name: a, type: float, length: 1}\n  - {name: a, type: int, length: 1}\n" + flow + asserts, "duplicate buffer"},
		{"two actions", head + bufs + "flow:\n  - {read: a, write: a}\n" + asserts, "exactly one of write, run or read"},
		{"unknown buffer", head + bufs + "flow:\n  - read: b\n" + asserts, `unknown buffer "b"`},
		{"vector data for scalar", head + bufs + "flow:\n  - {write: a, data: [[1, 2]]}\n" + asserts, "float is a scalar, got a list of 2"},
		{"bad range", head + bufs + "flow:\n  - {run: k, range: [1, 1, 1, 1], args: [a]}\n" + asserts, "range must have 1 to 3 entries"},
		{"unknown assertion", head + bufs + flow + "assertions:\n  - {type: magic}\n", "unknown assertion type"},
		{"error_code without code", head + bufs + flow + "assertions:\n  - {type: error_code}\n", "code is required"},
		{"trace_order without commands", head + bufs + flow + "assertions:\n  - {type: trace_order}\n", "commands list is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseValues(t *testing.T) {
	rows, err := parseValues(kindOf(t, "int2"), []any{[]any{1, 2}, []any{-3, 4}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {-3, 4}}, rows)

	_, err = parseValues(kindOf(t, "int"), []any{1.5})
	assert.ErrorContains(t, err, "not a 32-bit int")

	_, err = parseValues(kindOf(t, "uint"), []any{-1})
	assert.ErrorContains(t, err, "not a 32-bit uint")

	_, err = parseValues(kindOf(t, "float3"), []any{[]any{1, 2}})
	assert.ErrorContains(t, err, "needs 3 components")

	_, err = parseValues(kindOf(t, "uint"), []any{[]any{1}})
	assert.ErrorContains(t, err, "uint is a scalar, got a list of 1")

	_, err = parseValues(kindOf(t, "float"), []any{"x"})
	assert.ErrorContains(t, err, "expected a number")
}

func TestFormatRow(t *testing.T) {
	assert.Equal(t, "0.1", formatRow(kindOf(t, "float"), []float64{float64(float32(0.1))}))
	assert.Equal(t, "0.1", formatRow(kindOf(t, "double"), []float64{0.1}))
	assert.Equal(t, "-7", formatRow(kindOf(t, "int"), []float64{-7}))
	assert.Equal(t, "(1, 2.5)", formatRow(kindOf(t, "float2"), []float64{1, 2.5}))
}
