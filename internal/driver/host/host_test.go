package host

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/ir"
	"github.com/aquavit/Brahma-sub001/internal/query"
)

func newContext(t *testing.T) (*Driver, *Context) {
	t.Helper()
	d := New()
	devs, err := d.Enumerate(driver.Criteria{})
	require.NoError(t, err)
	ctx, err := d.CreateContext(devs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Release() })
	return d, ctx.(*Context)
}

func compile(t *testing.T, c *Context, def query.Definition) driver.Program {
	t.Helper()
	k, err := query.Parse(def)
	require.NoError(t, err)
	src, err := backend.Translate(k, backend.OpenCL)
	require.NoError(t, err)
	p, err := c.CompileProgram(driver.Source{Backend: string(backend.OpenCL), Text: src, Kernel: k})
	require.NoError(t, err)
	return p
}

func floats(vals ...float32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func toFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func alloc(t *testing.T, c *Context, n int, mode ir.AccessMode) driver.Memory {
	t.Helper()
	m, err := c.AllocBuffer(n, mode)
	require.NoError(t, err)
	return m
}

var scaleDef = query.Definition{
	Name:   "scale",
	Dims:   ir.Dims1,
	Params: []query.ParamDecl{{Name: "in", Kind: ir.Float}, {Name: "out", Kind: ir.Float}},
	Body:   []string{"out[r] = in[r] * 2.0"},
}

func TestEnumerate(t *testing.T) {
	gpu := driver.Device{ID: "gpu-0", Platform: "other", Type: driver.DeviceTypeGPU, Backends: []string{"hlsl"}}
	d := New(WithDevices(DefaultDevice, gpu))

	all, err := d.Enumerate(driver.Criteria{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := d.Enumerate(driver.Criteria{Type: driver.DeviceTypeGPU})
	require.NoError(t, err)
	assert.Equal(t, []driver.Device{gpu}, only)

	glsl, err := d.Enumerate(driver.Criteria{Backend: "glsl"})
	require.NoError(t, err)
	assert.Equal(t, []driver.Device{DefaultDevice}, glsl)

	first, err := d.Enumerate(driver.Criteria{Max: 1})
	require.NoError(t, err)
	assert.Len(t, first, 1)
}

func TestCreateContextPlatformMismatch(t *testing.T) {
	other := driver.Device{ID: "gpu-0", Platform: "other"}
	d := New(WithDevices(DefaultDevice, other))

	_, err := d.CreateContext([]driver.Device{DefaultDevice, other})
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrPlatformMismatch)

	_, err = d.CreateContext(nil)
	require.Error(t, err)

	_, err = d.CreateContext([]driver.Device{{ID: "nope"}})
	require.Error(t, err)
}

func TestCompileProgram(t *testing.T) {
	d, c := newContext(t)
	compile(t, c, scaleDef)
	assert.Equal(t, int64(1), d.Compiles())

	k, err := query.Parse(scaleDef)
	require.NoError(t, err)

	_, err = c.CompileProgram(driver.Source{Backend: "opencl", Text: "__kernel void broken(", Kernel: k})
	var be *driver.BuildError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, be.Log, "does not match")

	_, err = c.CompileProgram(driver.Source{Backend: "metal", Text: "x", Kernel: k})
	require.ErrorAs(t, err, &be)

	assert.Equal(t, int64(1), d.Compiles(), "rejected builds are not counted")
}

func TestRunScale(t *testing.T) {
	d, c := newContext(t)
	p := compile(t, c, scaleDef)
	in := alloc(t, c, 16, ir.ReadOnly)
	out := alloc(t, c, 16, ir.WriteOnly)
	q, err := c.NewQueue()
	require.NoError(t, err)

	dst := make([]byte, 16)
	err = q.EnqueueAndWait(context.Background(), []driver.Op{
		driver.WriteOp{Memory: in, Data: floats(1, 2, 3, 4)},
		driver.RunOp{Program: p, Grid: [3]int{4, 1, 1}, Args: []driver.Memory{in, out}},
		driver.ReadOp{Memory: out, Dst: dst},
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8}, toFloats(dst))
	assert.Equal(t, int64(1), d.Launches())
}

func TestRunLinearIndex2D(t *testing.T) {
	_, c := newContext(t)
	p := compile(t, c, query.Definition{
		Name:   "coords",
		Dims:   ir.Dims2,
		Params: []query.ParamDecl{{Name: "out", Kind: ir.Float}},
		Body:   []string{"out[r] = r.CurrentX * 10 + r.CurrentY"},
	})
	out := alloc(t, c, 4*6, ir.ReadWrite)
	q, err := c.NewQueue()
	require.NoError(t, err)

	dst := make([]byte, 24)
	err = q.EnqueueAndWait(context.Background(), []driver.Op{
		driver.RunOp{Program: p, Grid: [3]int{3, 2, 1}, Args: []driver.Memory{out}},
		driver.ReadOp{Memory: out, Dst: dst},
	})
	require.NoError(t, err)
	// Element x + y*3 holds x*10 + y.
	assert.Equal(t, []float32{0, 10, 20, 1, 11, 21}, toFloats(dst))
}

func TestRunAccessViolation(t *testing.T) {
	_, c := newContext(t)
	p := compile(t, c, scaleDef)
	q, err := c.NewQueue()
	require.NoError(t, err)

	tests := []struct {
		name    string
		in, out ir.AccessMode
	}{
		{"store into read-only", ir.ReadOnly, ir.ReadOnly},
		{"load from write-only", ir.WriteOnly, ir.WriteOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := alloc(t, c, 16, tt.in)
			out := alloc(t, c, 16, tt.out)
			err := q.EnqueueAndWait(context.Background(), []driver.Op{
				driver.WriteOp{Memory: in, Data: floats(1, 2, 3, 4)},
				driver.RunOp{Program: p, Grid: [3]int{4, 1, 1}, Args: []driver.Memory{in, out}},
			})
			var ee *driver.EnqueueError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, 1, ee.Index)
			assert.ErrorIs(t, err, driver.ErrAccessViolation)
		})
	}
}

func TestRunOutOfBounds(t *testing.T) {
	_, c := newContext(t)
	p := compile(t, c, scaleDef)
	in := alloc(t, c, 8, ir.ReadOnly)
	out := alloc(t, c, 16, ir.WriteOnly)
	q, err := c.NewQueue()
	require.NoError(t, err)

	err = q.EnqueueAndWait(context.Background(), []driver.Op{
		driver.RunOp{Program: p, Grid: [3]int{4, 1, 1}, Args: []driver.Memory{in, out}},
	})
	assert.ErrorIs(t, err, driver.ErrOutOfBounds)

	err = q.EnqueueAndWait(context.Background(), []driver.Op{
		driver.WriteOp{Memory: in, Offset: 4, Data: floats(1, 2)},
	})
	assert.ErrorIs(t, err, driver.ErrOutOfBounds)
}

func TestStopsAtFirstFailure(t *testing.T) {
	_, c := newContext(t)
	mem := alloc(t, c, 4, ir.ReadWrite)
	q, err := c.NewQueue()
	require.NoError(t, err)

	err = q.EnqueueAndWait(context.Background(), []driver.Op{
		driver.WriteOp{Memory: mem, Data: floats(1)},
		driver.WriteOp{Memory: mem, Offset: 8, Data: floats(2)},
		driver.WriteOp{Memory: mem, Data: floats(3)},
	})
	var ee *driver.EnqueueError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.Index)

	dst := make([]byte, 4)
	require.NoError(t, q.EnqueueAndWait(context.Background(), []driver.Op{driver.ReadOp{Memory: mem, Dst: dst}}))
	assert.Equal(t, []float32{1}, toFloats(dst))
}

func TestInvalidate(t *testing.T) {
	_, c := newContext(t)
	mem := alloc(t, c, 4, ir.ReadWrite)
	q, err := c.NewQueue()
	require.NoError(t, err)

	c.Invalidate()

	err = q.EnqueueAndWait(context.Background(), []driver.Op{driver.WriteOp{Memory: mem, Data: floats(1)}})
	assert.ErrorIs(t, err, driver.ErrContextLost)

	_, err = c.AllocBuffer(4, ir.ReadWrite)
	assert.ErrorIs(t, err, driver.ErrContextLost)
}

func TestCanceledContextSkipsSubmission(t *testing.T) {
	_, c := newContext(t)
	mem := alloc(t, c, 4, ir.ReadWrite)
	q, err := c.NewQueue()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = q.EnqueueAndWait(ctx, []driver.Op{driver.WriteOp{Memory: mem, Data: floats(1)}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReleasedMemory(t *testing.T) {
	_, c := newContext(t)
	mem := alloc(t, c, 4, ir.ReadWrite)
	q, err := c.NewQueue()
	require.NoError(t, err)

	require.NoError(t, mem.Release())
	err = q.EnqueueAndWait(context.Background(), []driver.Op{driver.WriteOp{Memory: mem, Data: floats(1)}})
	assert.ErrorIs(t, err, driver.ErrReleased)
}
