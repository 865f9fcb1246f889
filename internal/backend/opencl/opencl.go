// Package opencl translates kernel IR into OpenCL C.
package opencl

import (
	"fmt"
	"math"

	"github.com/aquavit/Brahma-sub001/internal/backend/emit"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Name identifies this backend in program keys and archives.
const Name = "opencl"

// Translator emits OpenCL C 1.2.
type Translator struct{}

// Backend returns the backend name.
func (Translator) Backend() string { return Name }

// Translate produces the source of k. The same kernel always yields
// byte-identical source.
func (Translator) Translate(k *ir.Kernel) (string, error) {
	src, err := translate(k)
	if err != nil {
		return "", ir.AttributeBackend(err, Name)
	}
	return src, nil
}

func translate(k *ir.Kernel) (string, error) {
	if err := ir.Validate(k); err != nil {
		return "", err
	}
	types, err := emit.CheckParams(k, dialect{})
	if err != nil {
		return "", err
	}

	var w emit.Writer
	if usesDouble(k) {
		w.Line("#pragma OPENCL EXTENSION cl_khr_fp64 : enable")
		w.Blank()
	}

	usages := k.Usages()
	params := ""
	for i := range k.Params {
		if i > 0 {
			params += ", "
		}
		qualifier := "__global const"
		if usages[i].Write {
			qualifier = "__global"
		}
		params += fmt.Sprintf("%s %s* %s", qualifier, types[i], emit.ParamName(i))
	}

	w.Line("__kernel void %s(%s)", emit.EntryName, params)
	w.Line("{")
	w.Indent()
	emit.Coordinates(&w, k.Dims,
		func(axis int) string { return fmt.Sprintf("(int)get_global_id(%d)", axis) },
		func(axis int) string { return fmt.Sprintf("(int)get_global_size(%d)", axis) },
	)
	if err := emit.Body(&w, k, dialect{}); err != nil {
		return "", err
	}
	w.Dedent()
	w.Line("}")
	return w.String(), nil
}

func usesDouble(k *ir.Kernel) bool {
	for _, p := range k.Params {
		if p.Kind == ir.Double {
			return true
		}
	}
	for _, st := range k.Body {
		if hasDoubleLiteral(st.Index) || hasDoubleLiteral(st.Value) {
			return true
		}
	}
	return false
}

func hasDoubleLiteral(e ir.Expr) bool {
	switch n := e.(type) {
	case ir.Literal:
		return n.Kind == ir.Double
	case ir.Load:
		return hasDoubleLiteral(n.Index)
	case ir.Binary:
		return hasDoubleLiteral(n.Left) || hasDoubleLiteral(n.Right)
	case ir.Negate:
		return hasDoubleLiteral(n.Value)
	case ir.Member:
		return hasDoubleLiteral(n.Value)
	}
	return false
}

type dialect struct{}

var typeNames = map[ir.Kind]string{
	ir.Int:    "int",
	ir.UInt:   "uint",
	ir.Float:  "float",
	ir.Double: "double",
	ir.Int2:   "int2",
	ir.Int4:   "int4",
	ir.Float2: "float2",
	ir.Float4: "float4",
}

func (dialect) TypeName(k ir.Kind) (string, error) {
	if name, ok := typeNames[k]; ok {
		return name, nil
	}
	if k == ir.Int3 || k == ir.Float3 {
		return "", ir.NewTypeNotSupported("%s has no layout-compatible OpenCL C type (3-vectors are 16-byte aligned)", k)
	}
	return "", ir.NewTypeNotSupported("%s is not an OpenCL C element type", k)
}

func (d dialect) Convert(k ir.Kind, expr string) (string, error) {
	name, err := d.TypeName(k)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)(%s)", name, expr), nil
}

func (dialect) Literal(l ir.Literal) string {
	switch l.Kind {
	case ir.Float:
		if !emit.IsFinite(l) {
			return fmt.Sprintf("as_float(0x%08xu)", math.Float32bits(float32(l.Float)))
		}
		return emit.FormatFloat32(float32(l.Float)) + "f"
	case ir.Double:
		if !emit.IsFinite(l) {
			return fmt.Sprintf("as_double(0x%016xul)", math.Float64bits(l.Float))
		}
		return emit.FormatFloat64(l.Float)
	case ir.UInt:
		return emit.FormatUInt(l.Int)
	default:
		return emit.FormatInt(l.Int)
	}
}
