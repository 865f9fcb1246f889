package compute

import (
	"fmt"

	"github.com/aquavit/Brahma-sub001/internal/driver"
)

// Command is a queued unit of work: WriteCommand, ReadCommand or
// RunCommand. Commands are descriptions; nothing happens until a Queue
// executes them.
type Command interface {
	fmt.Stringer

	// lower validates the command for p and returns its driver op plus an
	// optional completion hook.
	lower(p *Provider) (driver.Op, func(), error)
}

// WriteCommand copies host data into a buffer.
type WriteCommand struct {
	buffer AnyBuffer
	offset int
	length int
	data   []byte
}

// Buffer returns the destination buffer.
func (c *WriteCommand) Buffer() AnyBuffer { return c.buffer }

func (c *WriteCommand) String() string {
	return fmt.Sprintf("write %d elements at %d", c.length, c.offset)
}

func (c *WriteCommand) lower(p *Provider) (driver.Op, func(), error) {
	mem, err := bufferMemory(p, c.buffer, "buffer")
	if err != nil {
		return nil, nil, err
	}
	size := c.buffer.Kind().Size()
	return driver.WriteOp{Memory: mem, Offset: c.offset * size, Data: c.data}, nil, nil
}

// ReadCommand copies buffer contents into a host slice.
type ReadCommand struct {
	buffer AnyBuffer
	offset int
	length int
	fill   func([]byte)
}

// Buffer returns the source buffer.
func (c *ReadCommand) Buffer() AnyBuffer { return c.buffer }

func (c *ReadCommand) String() string {
	return fmt.Sprintf("read %d elements at %d", c.length, c.offset)
}

func (c *ReadCommand) lower(p *Provider) (driver.Op, func(), error) {
	mem, err := bufferMemory(p, c.buffer, "buffer")
	if err != nil {
		return nil, nil, err
	}
	size := c.buffer.Kind().Size()
	staging := make([]byte, c.length*size)
	done := func() { c.fill(staging) }
	return driver.ReadOp{Memory: mem, Offset: c.offset * size, Dst: staging}, done, nil
}

// RunCommand launches a kernel over a range.
type RunCommand struct {
	kernel  *Kernel
	rng     Range
	buffers []AnyBuffer
}

// Kernel returns the launched kernel.
func (c *RunCommand) Kernel() *Kernel { return c.kernel }

// Range returns the launch range.
func (c *RunCommand) Range() Range { return c.rng }

// Buffers returns the bound buffers in parameter order.
func (c *RunCommand) Buffers() []AnyBuffer { return c.buffers }

func (c *RunCommand) String() string {
	return fmt.Sprintf("run %s over %v", c.kernel.program.KernelName(), c.rng)
}

func (c *RunCommand) lower(p *Provider) (driver.Op, func(), error) {
	if c.kernel.program.provider != p {
		return nil, nil, NewArgumentError("kernel %s belongs to another provider", c.kernel.program.KernelName())
	}
	args := make([]driver.Memory, len(c.buffers))
	for i, b := range c.buffers {
		mem, err := bufferMemory(p, b, fmt.Sprintf("buffer %d", i))
		if err != nil {
			return nil, nil, err
		}
		args[i] = mem
	}
	return driver.RunOp{Program: c.kernel.program.native, Grid: c.rng.Extent(), Args: args}, nil, nil
}

func bufferMemory(p *Provider, b AnyBuffer, label string) (driver.Memory, error) {
	if b.owner() != p {
		return nil, NewArgumentError("%s belongs to another provider", label)
	}
	if b.Closed() {
		return nil, NewDisposedError(label)
	}
	return b.memory()
}
