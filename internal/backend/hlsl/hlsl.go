// Package hlsl translates kernel IR into an HLSL compute shader (SM 5.0).
//
// Read-only parameters bind as StructuredBuffer<T> in t registers, written
// parameters as RWStructuredBuffer<T> in u registers. The range extent is
// passed in constant buffer b0 so the padded dispatch can be guarded.
package hlsl

import (
	"fmt"
	"math"

	"github.com/aquavit/Brahma-sub001/internal/backend/emit"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Name identifies this backend in program keys and archives.
const Name = "hlsl"

// ThreadGroupSize is the numthreads x dimension.
const ThreadGroupSize = 64

// SizeName is the cbuffer member holding the range extent.
const SizeName = "brahma_size"

// Translator emits HLSL.
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
	w.Line("cbuffer BrahmaRange : register(b0)")
	w.Line("{")
	w.Indent()
	w.Line("uint3 %s;", SizeName)
	w.Dedent()
	w.Line("};")
	w.Blank()

	usages := k.Usages()
	var t, u int
	for i := range k.Params {
		if usages[i].Write {
			w.Line("RWStructuredBuffer<%s> %s : register(u%d);", types[i], emit.ParamName(i), u)
			u++
		} else {
			w.Line("StructuredBuffer<%s> %s : register(t%d);", types[i], emit.ParamName(i), t)
			t++
		}
	}
	if len(k.Params) > 0 {
		w.Blank()
	}

	w.Line("[numthreads(%d, 1, 1)]", ThreadGroupSize)
	w.Line("void %s(uint3 brahma_id : SV_DispatchThreadID)", emit.EntryName)
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
		func(axis int) string { return fmt.Sprintf("(int)brahma_id.%s", axes[axis]) },
		func(axis int) string { return fmt.Sprintf("(int)%s.%s", SizeName, axes[axis]) },
	)
	if err := emit.Body(&w, k, dialect{}); err != nil {
		return "", err
	}
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
	ir.Int2:   "int2",
	ir.Int3:   "int3",
	ir.Int4:   "int4",
	ir.Float2: "float2",
	ir.Float3: "float3",
	ir.Float4: "float4",
}

func (dialect) TypeName(k ir.Kind) (string, error) {
	if name, ok := typeNames[k]; ok {
		return name, nil
	}
	return "", ir.NewTypeNotSupported("%s is not an HLSL element type", k)
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
			return fmt.Sprintf("asfloat(0x%08xu)", math.Float32bits(float32(l.Float)))
		}
		return emit.FormatFloat32(float32(l.Float)) + "f"
	case ir.Double:
		if !emit.IsFinite(l) {
			bits := math.Float64bits(l.Float)
			return fmt.Sprintf("asdouble(0x%08xu, 0x%08xu)", uint32(bits), uint32(bits>>32))
		}
		return emit.FormatFloat64(l.Float) + "L"
	case ir.UInt:
		return emit.FormatUInt(l.Int)
	default:
		return emit.FormatInt(l.Int)
	}
}
