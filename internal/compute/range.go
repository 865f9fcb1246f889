package compute

import (
	"fmt"
	"iter"

	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Coord is one invocation coordinate. Unused components are 0.
type Coord struct {
	X, Y, Z int
}

// Range is an iteration range of 1, 2 or 3 dimensions.
type Range interface {
	Dims() ir.Dims

	// Extent returns the size per dimension; unused dimensions are 1.
	Extent() [3]int

	// Len returns the number of invocations.
	Len() int
}

// Range1D is a one-dimensional range.
type Range1D struct {
	SizeX int
}

// Range2D is a two-dimensional range.
type Range2D struct {
	SizeX, SizeY int
}

// Range3D is a three-dimensional range.
type Range3D struct {
	SizeX, SizeY, SizeZ int
}

func checkSizes(sizes ...int) error {
	for i, s := range sizes {
		if s <= 0 {
			return NewArgumentError("range size %d must be positive, got %d", i, s)
		}
	}
	return nil
}

// NewRange1D returns a range of x invocations.
func NewRange1D(x int) (Range1D, error) {
	if err := checkSizes(x); err != nil {
		return Range1D{}, err
	}
	return Range1D{SizeX: x}, nil
}

// NewRange2D returns an x by y range.
func NewRange2D(x, y int) (Range2D, error) {
	if err := checkSizes(x, y); err != nil {
		return Range2D{}, err
	}
	return Range2D{SizeX: x, SizeY: y}, nil
}

// NewRange3D returns an x by y by z range.
func NewRange3D(x, y, z int) (Range3D, error) {
	if err := checkSizes(x, y, z); err != nil {
		return Range3D{}, err
	}
	return Range3D{SizeX: x, SizeY: y, SizeZ: z}, nil
}

func (r Range1D) Dims() ir.Dims  { return ir.Dims1 }
func (r Range1D) Extent() [3]int { return [3]int{r.SizeX, 1, 1} }
func (r Range1D) Len() int       { return r.SizeX }
func (r Range1D) String() string { return fmt.Sprintf("1D[%d]", r.SizeX) }

func (r Range2D) Dims() ir.Dims  { return ir.Dims2 }
func (r Range2D) Extent() [3]int { return [3]int{r.SizeX, r.SizeY, 1} }
func (r Range2D) Len() int       { return r.SizeX * r.SizeY }
func (r Range2D) String() string { return fmt.Sprintf("2D[%d,%d]", r.SizeX, r.SizeY) }

func (r Range3D) Dims() ir.Dims  { return ir.Dims3 }
func (r Range3D) Extent() [3]int { return [3]int{r.SizeX, r.SizeY, r.SizeZ} }
func (r Range3D) Len() int       { return r.SizeX * r.SizeY * r.SizeZ }
func (r Range3D) String() string { return fmt.Sprintf("3D[%d,%d,%d]", r.SizeX, r.SizeY, r.SizeZ) }

// Coords iterates every coordinate of r in row-major order (x fastest).
func Coords(r Range) iter.Seq[Coord] {
	e := r.Extent()
	return func(yield func(Coord) bool) {
		for z := 0; z < e[2]; z++ {
			for y := 0; y < e[1]; y++ {
				for x := 0; x < e[0]; x++ {
					if !yield(Coord{X: x, Y: y, Z: z}) {
						return
					}
				}
			}
		}
	}
}

// Linear returns the row-major linear index of c in r.
func Linear(r Range, c Coord) int {
	e := r.Extent()
	return c.X + c.Y*e[0] + c.Z*e[0]*e[1]
}

func validRange(r Range) error {
	if r == nil {
		return NewArgumentError("nil range")
	}
	for i, s := range r.Extent() {
		if s <= 0 {
			return NewArgumentError("range size %d must be positive, got %d", i, s)
		}
	}
	return nil
}
