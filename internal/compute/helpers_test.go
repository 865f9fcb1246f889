package compute

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/driver/host"
	"github.com/aquavit/Brahma-sub001/internal/ir"
	"github.com/aquavit/Brahma-sub001/internal/query"
)

var copyDef = query.Definition{
	Name:   "copy",
	Dims:   ir.Dims1,
	Params: []query.ParamDecl{{Name: "input", Kind: ir.Float}, {Name: "output", Kind: ir.Float}},
	Body:   []string{"output[r] = input[r]"},
}

var scaleDef = query.Definition{
	Name:   "scale",
	Dims:   ir.Dims1,
	Params: []query.ParamDecl{{Name: "input", Kind: ir.Float}, {Name: "output", Kind: ir.Float}},
	Body:   []string{"output[r] = input[r] * 2.0"},
}

func newProvider(t *testing.T, opts ...Option) (*host.Driver, *Provider) {
	t.Helper()
	drv := host.New()
	devs, err := drv.Enumerate(driver.Criteria{})
	require.NoError(t, err)
	p, err := NewProvider(drv, devs, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return drv, p
}

func parse(t *testing.T, def query.Definition) *ir.Kernel {
	t.Helper()
	k, err := query.Parse(def)
	require.NoError(t, err)
	return k
}

func compile(t *testing.T, p *Provider, def query.Definition) *Program {
	t.Helper()
	prog, err := p.Compile(parse(t, def), backend.OpenCL)
	require.NoError(t, err)
	return prog
}

func newQueue(t *testing.T, p *Provider) *Queue {
	t.Helper()
	q, err := p.NewQueue()
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func newBuffer[T Element](t *testing.T, p *Provider, mode ir.AccessMode, n int) *Buffer[T] {
	t.Helper()
	b, err := NewBuffer[T](p, mode, n)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// must unwraps a command constructor result: must(t)(b.Write(0, n, src)).
func must(t *testing.T) func(Command, error) Command {
	return func(cmd Command, err error) Command {
		t.Helper()
		require.NoError(t, err)
		return cmd
	}
}
