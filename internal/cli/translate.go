package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aquavit/Brahma-sub001/internal/backend"
	"github.com/aquavit/Brahma-sub001/internal/compute"
	"github.com/aquavit/Brahma-sub001/internal/driver"
	"github.com/aquavit/Brahma-sub001/internal/driver/host"
	"github.com/aquavit/Brahma-sub001/internal/ir"
	"github.com/aquavit/Brahma-sub001/internal/kernelfile"
	"github.com/aquavit/Brahma-sub001/internal/query"
	"github.com/aquavit/Brahma-sub001/internal/store"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Kernel  string
	Backend string
	Output  string // output file path
	Archive string // archive database path

	// IDs overrides the provider and archive id generator (for testing).
	IDs compute.IDGenerator
}

// TranslationResult is the translate command payload.
type TranslationResult struct {
	Kernel   string `json:"kernel"`
	Backend  string `json:"backend"`
	Key      string `json:"key"`
	Source   string `json:"source"`
	Output   string `json:"output,omitempty"`
	Archived bool   `json:"archived"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <kernels-dir>",
		Short: "Generate kernel source for one backend",
		Long: `Translate one kernel to OpenCL C, HLSL or GLSL and build it on the
host reference driver. The generated source is printed or written to --output.
With --archive the translation is recorded in a SQLite archive.

Examples:
  brahma translate ./kernels --kernel scale --backend opencl
  brahma translate ./kernels --kernel scale --backend glsl -o scale.comp
  brahma translate ./kernels --kernel scale --backend hlsl --archive ./brahma.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kernel, "kernel", "", "kernel name (required)")
	cmd.Flags().StringVar(&opts.Backend, "backend", string(backend.OpenCL), "target backend (opencl|hlsl|glsl)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "path to SQLite translation archive")
	_ = cmd.MarkFlagRequired("kernel")

	return cmd
}

func runTranslate(opts *TranslateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	target, err := backend.Parse(opts.Backend)
	if err != nil {
		return formatter.Fail(ExitCommandError, kernelfile.ErrCodeGeneric, err.Error(), nil)
	}

	loaded, loadErrors := kernelfile.Load(dir, kernelfile.LoadModeFailFast)
	if len(loadErrors) > 0 {
		return failLoad(formatter, loadErrors[0])
	}
	def, ok := loaded.Kernel(opts.Kernel)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeKernelNotFound,
			fmt.Sprintf("kernel %q not found (have %v)", opts.Kernel, loaded.Names()), nil)
	}

	k, err := query.Parse(def)
	if err != nil {
		return failTranslation(formatter, err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = compute.UUIDv7Generator{}
	}
	providerOpts := []compute.Option{compute.WithLogger(logger), compute.WithIDGenerator(ids)}
	if opts.Archive != "" {
		st, err := store.Open(opts.Archive, store.WithIDGenerator(ids))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArchiveFailed, fmt.Sprintf("opening archive: %v", err), nil)
		}
		defer st.Close()
		providerOpts = append(providerOpts, compute.WithArchive(st))
	}

	provider, err := compute.NewProvider(host.New(), []driver.Device{host.DefaultDevice}, providerOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRuntimeFailed, err.Error(), nil)
	}
	defer provider.Close()

	formatter.VerboseLog("Translating %s for %s", def.Name, target)
	prog, err := provider.Compile(k, target)
	if err != nil {
		return failTranslation(formatter, err)
	}

	result := TranslationResult{
		Kernel:   def.Name,
		Backend:  string(target),
		Key:      prog.Key(),
		Source:   prog.Source(),
		Output:   opts.Output,
		Archived: opts.Archive != "",
	}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(prog.Source()), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}
	return outputTranslateSuccess(formatter, result)
}

// failTranslation reports a rejected kernel. Translation errors are the
// kernel's fault (exit 1); anything else is a runtime failure.
func failTranslation(formatter *OutputFormatter, err error) error {
	if ir.IsTranslationError(err) || compute.IsCompilationError(err) {
		return formatter.Fail(ExitFailure, ErrCodeTranslationFailed, err.Error(), nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeRuntimeFailed, err.Error(), nil)
}

func outputTranslateSuccess(formatter *OutputFormatter, result TranslationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}
	if result.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ Wrote %s source for %s to %s\n", result.Backend, result.Kernel, result.Output)
		fmt.Fprintf(formatter.Writer, "  key: %s\n", result.Key)
		return nil
	}
	fmt.Fprint(formatter.Writer, result.Source)
	return nil
}
