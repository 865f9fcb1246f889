// Package kernelfile loads kernel definitions from CUE files.
//
// A kernels directory holds one CUE package whose top-level kernel struct
// maps names to definitions:
//
//	kernel: scale: {
//		range: 1
//		params: [{name: "input", type: "float"}, {name: "output", type: "float"}]
//		body: ["output[r] = input[r] * 2.0"]
//	}
package kernelfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/aquavit/Brahma-sub001/internal/query"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeInvalidRange  = "E101" // range missing or not 1..3
	ErrCodeInvalidParams = "E102" // params missing or malformed
	ErrCodeInvalidBody   = "E103" // body missing
	ErrCodeInvalidType   = "E104" // unknown element type
)

// LoadResult contains the kernels loaded from a directory.
type LoadResult struct {
	Kernels   []query.Definition
	CUEValue  cue.Value
	FileCount int
}

// Kernel returns the definition named name.
func (r *LoadResult) Kernel(name string) (query.Definition, bool) {
	for _, def := range r.Kernels {
		if def.Name == name {
			return def, true
		}
	}
	return query.Definition{}, false
}

// Names returns the kernel names in load order.
func (r *LoadResult) Names() []string {
	names := make([]string, len(r.Kernels))
	for i, def := range r.Kernels {
		names[i] = def.Name
	}
	return names
}

// LoadError is an error that occurred while loading kernels.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load loads kernel definitions from the CUE package in dir.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("kernels directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing kernels directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{CUEValue: value, FileCount: len(files)}
	errs := extract(value, result, mode)
	if len(result.Kernels) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no kernels found"})
	}
	return result, errs
}

// LoadString compiles CUE source held in memory.
func LoadString(src string, mode LoadMode) (*LoadResult, []error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	result := &LoadResult{CUEValue: value}
	return result, extract(value, result, mode)
}

func extract(value cue.Value, result *LoadResult, mode LoadMode) []error {
	kernelsVal := value.LookupPath(cue.ParsePath("kernel"))
	if !kernelsVal.Exists() {
		return nil
	}
	iter, err := kernelsVal.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating kernels: %v", err)}}
	}

	var errs []error
	for iter.Next() {
		def, err := CompileKernel(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "kernel."+iter.Label()))
			if mode == LoadModeFailFast {
				return errs
			}
			continue
		}
		result.Kernels = append(result.Kernels, *def)
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

func convertCompileError(err error, context string) *LoadError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return &LoadError{
			Code:    MapFieldToErrorCode(ce.Field),
			Message: context + ": " + ce.Message,
			Pos:     ce.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", context, err)}
}

// MapFieldToErrorCode maps a CompileError field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "range":
		return ErrCodeInvalidRange
	case "params":
		return ErrCodeInvalidParams
	case "body":
		return ErrCodeInvalidBody
	case "type":
		return ErrCodeInvalidType
	default:
		return ErrCodeGeneric
	}
}
