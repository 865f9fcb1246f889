package kernelfile

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/aquavit/Brahma-sub001/internal/ir"
	"github.com/aquavit/Brahma-sub001/internal/query"
)

// CompileKernel parses a CUE value into a kernel definition.
//
// The value should be the kernel struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`kernel: scale: { range: 1, params: [...], body: [...] }`)
//	def, err := CompileKernel(v.LookupPath(cue.ParsePath("kernel.scale")))
//
// Bodies are not parsed here; query.Parse does that.
func CompileKernel(v cue.Value) (*query.Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &query.Definition{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	rangeVal := v.LookupPath(cue.ParsePath("range"))
	if !rangeVal.Exists() {
		return nil, &CompileError{Field: "range", Message: "range is required", Pos: v.Pos()}
	}
	dims, err := rangeVal.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if dims < 1 || dims > 3 {
		return nil, &CompileError{
			Field:   "range",
			Message: fmt.Sprintf("range must be 1, 2 or 3, got %d", dims),
			Pos:     rangeVal.Pos(),
		}
	}
	def.Dims = ir.Dims(dims)

	def.RangeName = query.DefaultRangeName
	if nameVal := v.LookupPath(cue.ParsePath("range_name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.RangeName = name
	}

	def.Params, err = parseParams(v)
	if err != nil {
		return nil, err
	}
	if len(def.Params) == 0 {
		return nil, &CompileError{Field: "params", Message: "at least one buffer parameter is required", Pos: v.Pos()}
	}

	def.Body, err = parseBody(v)
	if err != nil {
		return nil, err
	}
	if len(def.Body) == 0 {
		return nil, &CompileError{Field: "body", Message: "at least one statement is required", Pos: v.Pos()}
	}

	return def, nil
}

func parseParams(v cue.Value) ([]query.ParamDecl, error) {
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return nil, nil
	}
	iter, err := paramsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var params []query.ParamDecl
	for iter.Next() {
		pv := iter.Value()

		nameVal := pv.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{Field: "params", Message: "parameter name is required", Pos: pv.Pos()}
		}
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		typeVal := pv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{Field: "type", Message: fmt.Sprintf("parameter %s has no type", name), Pos: pv.Pos()}
		}
		typeName, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		kind, err := ir.ParseKind(typeName)
		if err != nil || !kind.Storable() {
			return nil, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("parameter %s: unsupported element type %q", name, typeName),
				Pos:     typeVal.Pos(),
			}
		}

		params = append(params, query.ParamDecl{Name: name, Kind: kind})
	}
	return params, nil
}

func parseBody(v cue.Value) ([]string, error) {
	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, nil
	}

	// A single statement may be written as a plain string.
	if stmt, err := bodyVal.String(); err == nil {
		return []string{stmt}, nil
	}

	iter, err := bodyVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var body []string
	for iter.Next() {
		stmt, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		body = append(body, stmt)
	}
	return body, nil
}

// CompileError is a malformed kernel definition.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
