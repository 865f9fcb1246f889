// Package glsl translates kernel IR into a GLSL 4.30 compute shader.
//
// Parameters bind as std430 shader storage blocks at binding i. The range
// extent is the uniform brahma_size; the host sets it before dispatch.
package glsl

import (
	"fmt"
	"math"

	"github.com/aquavit/Brahma-sub001/internal/backend/emit"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Name identifies this backend in program keys and archives.
const Name = "glsl"

// LocalSizeX is the workgroup x dimension.
const LocalSizeX = 64

// SizeName is the uniform holding the range extent.
const SizeName = "brahma_size"

// Translator emits GLSL.
type Translator struct{}

// Backend returns the backend name.
func (Translator) Backend() string { return Name }

// Translate produces the source of k.
func (Translator) Translate(k *ir.Kernel) (string, error) {
	src, err := translate(k)
	if err != nil {
		return "", ir.AttributeBackend(err, Name)
	}
	return src, nil
}

var axes = [...]string{"x", "y", "z"}

func translate(k *ir.Kernel) (string, error) {
	if err := ir.Validate(k); err != nil {
		return "", err
	}
	types, err := emit.CheckParams(k, dialect{})
	if err != nil {
		return "", err
	}

	var w emit.Writer
	w.Line("#version 430")
	w.Blank()
	w.Line("layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;", LocalSizeX)
	w.Blank()
	w.Line("uniform uvec3 %s;", SizeName)
	w.Blank()

	usages := k.Usages()
	for i := range k.Params {
		qualifier := "readonly buffer"
		if usages[i].Write {
			qualifier = "buffer"
		}
		w.Line("layout(std430, binding = %d) %s Buf%d { %s %s[]; };", i, qualifier, i, types[i], emit.ParamName(i))
	}
	if len(k.Params) > 0 {
		w.Blank()
	}

	w.Line("void %s(uvec3 brahma_id)", emit.EntryName)
	w.Line("{")
	w.Indent()
	guard := ""
	for axis := 0; axis < int(k.Dims); axis++ {
		if axis > 0 {
			guard += " || "
		}
		guard += fmt.Sprintf("brahma_id.%s >= %s.%s", axes[axis], SizeName, axes[axis])
	}
	w.Line("if (%s)", guard)
	w.Line("{")
	w.Indent()
	w.Line("return;")
	w.Dedent()
	w.Line("}")
	emit.Coordinates(&w, k.Dims,
		func(axis int) string { return fmt.Sprintf("int(brahma_id.%s)", axes[axis]) },
		func(axis int) string { return fmt.Sprintf("int(%s.%s)", SizeName, axes[axis]) },
	)
	if err := emit.Body(&w, k, dialect{}); err != nil {
		return "", err
	}
	w.Dedent()
	w.Line("}")
	w.Blank()
	w.Line("void main()")
	w.Line("{")
	w.Indent()
	w.Line("%s(gl_GlobalInvocationID);", emit.EntryName)
	w.Dedent()
	w.Line("}")
	return w.String(), nil
}

type dialect struct{}

var typeNames = map[ir.Kind]string{
	ir.Int:    "int",
	ir.UInt:   "uint",
	ir.Float:  "float",
	ir.Double: "double",
	ir.Int2:   "ivec2",
	ir.Int4:   "ivec4",
	ir.Float2: "vec2",
	ir.Float4: "vec4",
}

func (dialect) TypeName(k ir.Kind) (string, error) {
	if name, ok := typeNames[k]; ok {
		return name, nil
	}
	if k == ir.Int3 || k == ir.Float3 {
		return "", ir.NewTypeNotSupported("%s has no std430 layout matching the host (3-vectors are 16-byte aligned)", k)
	}
	return "", ir.NewTypeNotSupported("%s is not a GLSL element type", k)
}

func (d dialect) Convert(k ir.Kind, expr string) (string, error) {
	name, err := d.TypeName(k)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", name, expr), nil
}

func (dialect) Literal(l ir.Literal) string {
	switch l.Kind {
	case ir.Float:
		if !emit.IsFinite(l) {
			return fmt.Sprintf("uintBitsToFloat(0x%08xu)", math.Float32bits(float32(l.Float)))
		}
		return emit.FormatFloat32(float32(l.Float))
	case ir.Double:
		if !emit.IsFinite(l) {
			bits := math.Float64bits(l.Float)
			return fmt.Sprintf("packDouble2x32(uvec2(0x%08xu, 0x%08xu))", uint32(bits), uint32(bits>>32))
		}
		return emit.FormatFloat64(l.Float) + "lf"
	case ir.UInt:
		return emit.FormatUInt(l.Int)
	default:
		return emit.FormatInt(l.Int)
	}
}
