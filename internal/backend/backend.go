// Package backend selects a kernel translator by target language.
package backend

import (
	"fmt"
	"strings"

	"github.com/aquavit/Brahma-sub001/internal/backend/glsl"
	"github.com/aquavit/Brahma-sub001/internal/backend/hlsl"
	"github.com/aquavit/Brahma-sub001/internal/backend/opencl"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Backend identifies a target kernel language.
type Backend string

const (
	OpenCL Backend = opencl.Name
	HLSL   Backend = hlsl.Name
	GLSL   Backend = glsl.Name
)

// All lists every backend in a fixed order.
func All() []Backend {
	return []Backend{OpenCL, HLSL, GLSL}
}

// Parse resolves a backend name, case-insensitively.
func Parse(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case OpenCL, HLSL, GLSL:
		return b, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want opencl, hlsl or glsl)", s)
	}
}

// Translator turns a kernel into source text for one backend.
type Translator interface {
	Backend() string
	Translate(k *ir.Kernel) (string, error)
}

// For returns the translator for b.
func For(b Backend) (Translator, error) {
	switch b {
	case OpenCL:
		return opencl.Translator{}, nil
	case HLSL:
		return hlsl.Translator{}, nil
	case GLSL:
		return glsl.Translator{}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", string(b))
	}
}

// Translate is shorthand for For(b) followed by Translate.
func Translate(k *ir.Kernel, b Backend) (string, error) {
	t, err := For(b)
	if err != nil {
		return "", err
	}
	return t.Translate(k)
}
