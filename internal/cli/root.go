package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats lists every accepted --format value.
var ValidFormats = []string{FormatText, FormatJSON}

// RootOptions are the persistent flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string
}

// NewRootCommand returns the brahma command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:   "brahma",
		Short: "Brahma - kernel queries for GPU devices",
		Long: `Translate kernel queries to OpenCL C, HLSL and GLSL and run them
on the host reference driver.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if slices.Contains(ValidFormats, opts.Format) {
				return nil
			}
			return NewExitError(ExitCommandError,
				fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log provider and driver activity to stderr")
	flags.StringVar(&opts.Format, "format", FormatText, "output format (text|json)")

	cmd.AddCommand(
		NewValidateCommand(opts),
		NewTranslateCommand(opts),
		NewRunCommand(opts),
		NewTestCommand(opts),
		NewArchiveCommand(opts),
		NewDevicesCommand(opts),
	)
	return cmd
}

// newFormatter binds a formatter to cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger returns a debug-level text logger on w when verbose is set and a
// discarding logger otherwise.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	if !opts.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
