package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/kernelfile"
	"github.com/aquavit/Brahma-sub001/internal/query"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Backends []string
}

// ValidationError is one problem found in a kernels directory.
type ValidationError struct {
	Kernel  string `json:"kernel,omitempty"`
	Backend string `json:"backend,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Kernels []string          `json:"kernels"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <kernels-dir>",
		Short: "Check kernels without running them",
		Long: `Load CUE kernel definitions, parse every body and translate it for
each selected backend. Nothing is compiled natively.

Examples:
  brahma validate ./kernels
  brahma validate ./kernels --backend hlsl --backend glsl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Backends, "backend", nil, "backends to check (default all)")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	targets, err := parseBackends(opts.Backends)
	if err != nil {
		return formatter.Fail(ExitCommandError, kernelfile.ErrCodeGeneric, err.Error(), nil)
	}

	loaded, loadErrors := kernelfile.Load(dir, kernelfile.LoadModeCollectAll)
	if loaded == nil && len(loadErrors) > 0 {
		return failLoad(formatter, loadErrors[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	var errs []ValidationError
	for _, err := range loadErrors {
		errs = append(errs, loadValidationError(err))
	}
	errs = append(errs, validateKernels(loaded.Kernels, targets, formatter)...)

	if len(errs) > 0 {
		return outputValidationErrors(formatter, loaded.Names(), errs)
	}
	return outputValidateSuccess(formatter, loaded.Names())
}

// validateKernels parses each definition and translates it for every target.
func validateKernels(defs []query.Definition, targets []backend.Backend, formatter *OutputFormatter) []ValidationError {
	var errs []ValidationError
	for _, def := range defs {
		formatter.VerboseLog("Validating kernel: %s", def.Name)
		k, err := query.Parse(def)
		if err != nil {
			errs = append(errs, ValidationError{Kernel: def.Name, Code: ErrCodeTranslationFailed, Message: err.Error()})
			continue
		}
		for _, b := range targets {
			if _, err := backend.Translate(k, b); err != nil {
				errs = append(errs, ValidationError{Kernel: def.Name, Backend: string(b), Code: ErrCodeTranslationFailed, Message: err.Error()})
			}
		}
	}
	return errs
}

// parseBackends resolves backend names; none means every backend.
func parseBackends(names []string) ([]backend.Backend, error) {
	if len(names) == 0 {
		return backend.All(), nil
	}
	out := make([]backend.Backend, 0, len(names))
	for _, name := range names {
		b, err := backend.Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func loadValidationError(err error) ValidationError {
	var le *kernelfile.LoadError
	if errors.As(err, &le) {
		line := 0
		if le.Pos.IsValid() {
			line = le.Pos.Line()
		}
		return ValidationError{Code: le.Code, Message: le.Message, Line: line}
	}
	return ValidationError{Code: kernelfile.ErrCodeGeneric, Message: err.Error()}
}

// failLoad reports a kernels directory that could not be loaded at all.
func failLoad(formatter *OutputFormatter, err error) error {
	var le *kernelfile.LoadError
	if errors.As(err, &le) {
		return formatter.Fail(ExitCommandError, le.Code, le.Message, nil)
	}
	return formatter.Fail(ExitCommandError, kernelfile.ErrCodeGeneric, err.Error(), nil)
}

func outputValidateSuccess(formatter *OutputFormatter, kernels []string) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Kernels: kernels})
	}
	fmt.Fprintf(formatter.Writer, "✓ All kernels valid (%d)\n", len(kernels))
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, kernels []string, errs []ValidationError) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Kernels: kernels, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		where := err.Kernel
		if err.Backend != "" {
			where += " [" + err.Backend + "]"
		}
		if err.Line > 0 {
			where = fmt.Sprintf("line %d", err.Line)
		}
		if where != "" {
			fmt.Fprintln(formatter.Writer, where)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
