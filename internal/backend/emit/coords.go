package emit

import (
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Coordinates declares the coordinate locals for a range of the given dims.
// id spells the per-invocation id of one axis as an int expression and size
// spells the extent of one axis as an int expression.
func Coordinates(w *Writer, dims ir.Dims, id, size func(axis int) string) {
	axes := []string{XName, YName, ZName}
	for axis := 0; axis < int(dims); axis++ {
		w.Line("int %s = %s;", axes[axis], id(axis))
	}
	switch dims {
	case ir.Dims1:
		w.Line("int %s = %s;", IndexName, XName)
	case ir.Dims2:
		w.Line("int %s = %s + %s * %s;", IndexName, XName, YName, size(0))
	case ir.Dims3:
		w.Line("int %s = %s + %s * %s + %s * %s * %s;", IndexName, XName, YName, size(0), ZName, size(0), size(1))
	}
}
