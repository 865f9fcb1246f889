package host

import (
	"fmt"

	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// invocation is the state of one kernel launch.
type invocation struct {
	kernel *ir.Kernel
	args   []*memory
	grid   [3]int

	// Per-invocation coordinates.
	x, y, z int
}

// run executes every invocation of k over grid in row-major order (x fastest).
func run(k *ir.Kernel, args []*memory, grid [3]int) error {
	if err := checkAccess(k, args); err != nil {
		return err
	}
	inv := &invocation{kernel: k, args: args, grid: grid}
	for inv.z = 0; inv.z < grid[2]; inv.z++ {
		for inv.y = 0; inv.y < grid[1]; inv.y++ {
			for inv.x = 0; inv.x < grid[0]; inv.x++ {
				for _, st := range k.Body {
					if err := inv.store(st); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// checkAccess rejects launches whose body touches a buffer against its mode.
// The body has no control flow, so every access in it executes.
func checkAccess(k *ir.Kernel, args []*memory) error {
	for i, u := range k.Usages() {
		mode := args[i].mode
		if u.Write && !mode.CanWrite() {
			return fmt.Errorf("%w: store into %s buffer %s", driver.ErrAccessViolation, mode, k.ParamName(i))
		}
		if u.Read && !mode.CanRead() {
			return fmt.Errorf("%w: load from %s buffer %s", driver.ErrAccessViolation, mode, k.ParamName(i))
		}
	}
	return nil
}

func (inv *invocation) store(st ir.Store) error {
	idx, err := inv.index(st.Param, st.Index)
	if err != nil {
		return err
	}
	v, err := inv.eval(st.Value)
	if err != nil {
		return err
	}
	kind := inv.kernel.Params[st.Param].Kind
	size := kind.Size()
	mem := inv.args[st.Param]
	encode(convert(v, kind), mem.data[idx*size:(idx+1)*size])
	return nil
}

// index evaluates an element index into param and checks it against the
// memory object's extent.
func (inv *invocation) index(param int, e ir.Expr) (int, error) {
	v, err := inv.eval(e)
	if err != nil {
		return 0, err
	}
	idx := v.i[0]
	kind := inv.kernel.Params[param].Kind
	n := int64(len(inv.args[param].data) / kind.Size())
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("%w: %s[%d] with %d elements", driver.ErrOutOfBounds, inv.kernel.ParamName(param), idx, n)
	}
	return int(idx), nil
}

func (inv *invocation) eval(e ir.Expr) (value, error) {
	switch n := e.(type) {
	case ir.Coord:
		return scalarInt(ir.Int, int64(inv.coord(n.Component))), nil

	case ir.Load:
		idx, err := inv.index(n.Param, n.Index)
		if err != nil {
			return value{}, err
		}
		kind := inv.kernel.Params[n.Param].Kind
		size := kind.Size()
		return decode(kind, inv.args[n.Param].data[idx*size:(idx+1)*size]), nil

	case ir.Binary:
		u, err := ir.OperandKind(inv.kernel, n)
		if err != nil {
			return value{}, err
		}
		l, err := inv.eval(n.Left)
		if err != nil {
			return value{}, err
		}
		r, err := inv.eval(n.Right)
		if err != nil {
			return value{}, err
		}
		l, r = convert(l, u), convert(r, u)
		if n.Op.IsComparison() {
			return compare(n.Op, l, r, u), nil
		}
		return arith(n.Op, l, r, u), nil

	case ir.Negate:
		v, err := inv.eval(n.Value)
		if err != nil {
			return value{}, err
		}
		return negate(v), nil

	case ir.Member:
		v, err := inv.eval(n.Value)
		if err != nil {
			return value{}, err
		}
		c := n.Component.Index()
		out := value{kind: v.kind.Scalar()}
		out.i[0], out.f[0] = v.i[c], v.f[c]
		return out, nil

	case ir.Literal:
		return literal(n), nil

	default:
		return value{}, ir.NewUnsupportedExpression("unknown node %T", e)
	}
}

// coord returns a coordinate component, or the row-major linear index.
func (inv *invocation) coord(c ir.Component) int {
	switch c {
	case ir.ComponentX:
		return inv.x
	case ir.ComponentY:
		return inv.y
	case ir.ComponentZ:
		return inv.z
	default:
		return inv.x + inv.y*inv.grid[0] + inv.z*inv.grid[0]*inv.grid[1]
	}
}
