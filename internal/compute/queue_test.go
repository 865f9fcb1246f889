package compute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/ir"
	"github.com/aquavit/Brahma-sub001/internal/query"
)

func TestCopyScenario(t *testing.T) {
	for _, b := range backend.All() {
		t.Run(string(b), func(t *testing.T) {
			_, p := newProvider(t)
			prog, err := p.Compile(parse(t, copyDef), b)
			require.NoError(t, err)
			k, err := NewKernel2[float32, float32](prog, ir.Dims1)
			require.NoError(t, err)

			in := newBuffer[float32](t, p, ir.ReadOnly, 4)
			out := newBuffer[float32](t, p, ir.WriteOnly, 4)
			q := newQueue(t, p)

			result := make([]float32, 4)
			err = q.Add(context.Background(),
				must(t)(in.Write(0, 4, []float32{1, 2, 3, 4})),
				must(t)(k.Run(Range1D{SizeX: 4}, in, out)),
				must(t)(out.Read(0, 4, result)),
			)
			require.NoError(t, err)
			assert.Equal(t, []float32{1, 2, 3, 4}, result)
			assert.Equal(t, QueueIdle, q.State())
		})
	}
}

func TestQueueOrdering(t *testing.T) {
	_, p := newProvider(t)
	k, err := Bind(compile(t, p, scaleDef))
	require.NoError(t, err)
	q := newQueue(t, p)

	in := newBuffer[float32](t, p, ir.ReadWrite, 3)
	out := newBuffer[float32](t, p, ir.ReadWrite, 3)
	before := make([]float32, 3)
	after := make([]float32, 3)

	err = q.Add(context.Background(),
		must(t)(in.Write(0, 3, []float32{1, 2, 3})),
		must(t)(k.Run(Range1D{SizeX: 3}, in, out)),
		must(t)(out.Read(0, 3, before)),
		must(t)(in.Write(0, 3, []float32{10, 20, 30})),
		must(t)(k.Run(Range1D{SizeX: 3}, in, out)),
		must(t)(out.Read(0, 3, after)),
	)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, before)
	assert.Equal(t, []float32{20, 40, 60}, after)
	assert.Equal(t, int64(1), q.Groups())
}

func TestQueue2DKernel(t *testing.T) {
	_, p := newProvider(t)
	def := query.Definition{
		Name:   "coords",
		Dims:   ir.Dims2,
		Params: []query.ParamDecl{{Name: "xs", Kind: ir.Int}, {Name: "ys", Kind: ir.Int}},
		Body:   []string{"xs[r] = r.CurrentX", "ys[r] = r.CurrentY * 10"},
	}
	k, err := NewKernel2[int32, int32](compile(t, p, def), ir.Dims2)
	require.NoError(t, err)

	xs := newBuffer[int32](t, p, ir.WriteOnly, 6)
	ys := newBuffer[int32](t, p, ir.WriteOnly, 6)
	gotX := make([]int32, 6)
	gotY := make([]int32, 6)
	q := newQueue(t, p)
	require.NoError(t, q.Add(context.Background(),
		must(t)(k.Run(Range2D{SizeX: 3, SizeY: 2}, xs, ys)),
		must(t)(xs.Read(0, 6, gotX)),
		must(t)(ys.Read(0, 6, gotY)),
	))
	assert.Equal(t, []int32{0, 1, 2, 0, 1, 2}, gotX)
	assert.Equal(t, []int32{0, 0, 0, 10, 10, 10}, gotY)
}

func TestQueueAccessViolation(t *testing.T) {
	_, p := newProvider(t)
	k, err := Bind(compile(t, p, copyDef))
	require.NoError(t, err)
	q := newQueue(t, p)

	in := newBuffer[float32](t, p, ir.ReadWrite, 2)
	readOnly := newBuffer[float32](t, p, ir.ReadOnly, 2)
	writeOnly := newBuffer[float32](t, p, ir.WriteOnly, 2)
	first := make([]float32, 2)

	t.Run("store into read only", func(t *testing.T) {
		err := q.Add(context.Background(),
			must(t)(in.Write(0, 2, []float32{5, 6})),
			must(t)(in.Read(0, 2, first)),
			must(t)(k.Run(Range1D{SizeX: 2}, in, readOnly)),
			must(t)(in.Write(0, 2, []float32{7, 8})),
		)
		var ce *CommandError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 2, ce.Index)
		assert.True(t, IsAccessViolation(err))
		assert.Equal(t, []float32{5, 6}, first, "reads before the failure complete")

		// The command after the failure did not run.
		check := make([]float32, 2)
		require.NoError(t, q.Add(context.Background(), must(t)(in.Read(0, 2, check))))
		assert.Equal(t, []float32{5, 6}, check)
	})

	t.Run("load from write only", func(t *testing.T) {
		err := q.Add(context.Background(), must(t)(k.Run(Range1D{SizeX: 2}, writeOnly, in)))
		assert.True(t, IsAccessViolation(err))
	})

	assert.Equal(t, QueueIdle, q.State())
}

func TestQueueDeviceOutOfBounds(t *testing.T) {
	_, p := newProvider(t)
	def := query.Definition{
		Name:   "shift",
		Dims:   ir.Dims1,
		Params: []query.ParamDecl{{Name: "in", Kind: ir.Float}, {Name: "out", Kind: ir.Float}},
		Body:   []string{"out[r] = in[r + 1]"},
	}
	k, err := Bind(compile(t, p, def))
	require.NoError(t, err)
	q := newQueue(t, p)
	in := newBuffer[float32](t, p, ir.ReadOnly, 4)
	out := newBuffer[float32](t, p, ir.WriteOnly, 4)

	err = q.Add(context.Background(), must(t)(k.Run(Range1D{SizeX: 4}, in, out)))
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Index)
	assert.True(t, IsRangeError(err))
}

func TestQueueContextLost(t *testing.T) {
	drv, p := newProvider(t)
	q := newQueue(t, p)
	b := newBuffer[float32](t, p, ir.ReadWrite, 2)

	w := must(t)(b.Write(0, 2, []float32{1, 2}))

	drv.InvalidateAll()

	err := q.Add(context.Background(), w)
	require.Error(t, err)
	assert.True(t, IsContextLost(err))

	err = q.Add(context.Background(), w)
	assert.True(t, IsContextLost(err))

	_, err = b.Write(0, 2, []float32{1, 2})
	assert.True(t, IsContextLost(err), "commands are not built on a lost provider")

	_, err = p.Compile(parse(t, copyDef), backend.OpenCL)
	assert.True(t, IsContextLost(err))
	_, err = p.NewQueue()
	assert.True(t, IsContextLost(err))

	require.NoError(t, q.Close())
	require.NoError(t, p.Close())
}

func TestQueueForeignCommand(t *testing.T) {
	_, p := newProvider(t)
	_, other := newProvider(t)
	q := newQueue(t, p)

	foreign := newBuffer[float32](t, other, ir.ReadWrite, 2)
	own := newBuffer[float32](t, p, ir.ReadWrite, 2)

	err := q.Add(context.Background(),
		must(t)(own.Write(0, 2, []float32{1, 2})),
		must(t)(foreign.Write(0, 2, []float32{1, 2})),
	)
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Index)
	assert.True(t, IsArgumentError(err))

	// Validation happens before submission, so nothing ran.
	assert.Equal(t, int64(0), q.Groups())
	assert.Equal(t, QueueOpen, q.State())
}

func TestQueueCancelledContext(t *testing.T) {
	_, p := newProvider(t)
	q := newQueue(t, p)
	b := newBuffer[float32](t, p, ir.ReadWrite, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := make([]float32, 2)
	err := q.Add(ctx, must(t)(b.Read(0, 2, dst)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), q.Groups())
}

func TestQueueEmptyGroup(t *testing.T) {
	_, p := newProvider(t)
	q := newQueue(t, p)
	require.NoError(t, q.Add(context.Background()))
	assert.Equal(t, QueueOpen, q.State())

	err := q.Add(context.Background(), nil)
	assert.True(t, IsArgumentError(err))
}

func TestDisposalScenario(t *testing.T) {
	_, p := newProvider(t)
	k, err := Bind(compile(t, p, copyDef))
	require.NoError(t, err)
	in := newBuffer[float32](t, p, ir.ReadOnly, 4)
	out := newBuffer[float32](t, p, ir.WriteOnly, 4)

	q, err := p.NewQueue()
	require.NoError(t, err)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close(), "idempotent")
	assert.Equal(t, QueueDisposed, q.State())

	err = q.Add(context.Background(), must(t)(in.Write(0, 4, make([]float32, 4))))
	assert.True(t, IsDisposed(err))

	// Closing the queue leaves the kernel and buffers usable.
	q2 := newQueue(t, p)
	result := make([]float32, 4)
	require.NoError(t, q2.Add(context.Background(),
		must(t)(in.Write(0, 4, []float32{4, 3, 2, 1})),
		must(t)(k.Run(Range1D{SizeX: 4}, in, out)),
		must(t)(out.Read(0, 4, result)),
	))
	assert.Equal(t, []float32{4, 3, 2, 1}, result)

	pending := must(t)(in.Write(0, 4, make([]float32, 4)))
	require.NoError(t, p.Close())
	err = q2.Add(context.Background(), pending)
	assert.True(t, IsDisposed(err))
}

func TestClosedProviderRejectsDerivedObjects(t *testing.T) {
	_, p := newProvider(t)
	prog := compile(t, p, copyDef)
	in := newBuffer[float32](t, p, ir.ReadOnly, 4)
	out := newBuffer[float32](t, p, ir.WriteOnly, 4)
	k, err := Bind(prog)
	require.NoError(t, err)

	require.NoError(t, p.Close())

	tests := []struct {
		name string
		call func() error
	}{
		{"write", func() error { _, err := in.Write(0, 4, make([]float32, 4)); return err }},
		{"read", func() error { _, err := out.Read(0, 4, make([]float32, 4)); return err }},
		{"run", func() error { _, err := k.Run(Range1D{SizeX: 4}, in, out); return err }},
		{"new kernel", func() error { _, err := NewKernel(prog, ir.Dims1, ir.Float, ir.Float); return err }},
		{"bind", func() error { _, err := Bind(prog); return err }},
		{"typed kernel", func() error { _, err := NewKernel2[float32, float32](prog, ir.Dims1); return err }},
		{"new buffer", func() error { _, err := NewBuffer[float32](p, ir.ReadWrite, 1); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, IsDisposed(err), "got %v", err)
		})
	}
}

func TestQueueStateString(t *testing.T) {
	assert.Equal(t, "open", QueueOpen.String())
	assert.Equal(t, "draining", QueueDraining.String())
	assert.Equal(t, "idle", QueueIdle.String())
	assert.Equal(t, "disposed", QueueDisposed.String())
}
