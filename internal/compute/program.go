package compute

import (
	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Program is a compiled native program owned by a Provider. Every kernel
// with the same structure and backend shares one Program.
type Program struct {
	provider *Provider
	key      string
	backend  backend.Backend
	kernel   *ir.Kernel
	source   string
	native   driver.Program
}

// Key returns the structural program key.
func (p *Program) Key() string { return p.key }

// Backend returns the target language the program was translated to.
func (p *Program) Backend() backend.Backend { return p.backend }

// Source returns the generated kernel source.
func (p *Program) Source() string { return p.source }

// KernelName returns the name of the kernel first compiled under this key.
func (p *Program) KernelName() string { return p.kernel.Name }

// Signature returns the range dims and parameter kinds of the program.
func (p *Program) Signature() ir.Signature { return p.kernel.Signature() }

// Provider returns the owning provider.
func (p *Program) Provider() *Provider { return p.provider }
