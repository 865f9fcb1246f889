package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aquavit/Brahma-sub001/internal/harness"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute one scenario on the host driver",
		Long: `Execute a scenario: allocate its buffers, compile its kernels and
submit its flow as one command group on the host reference driver. Prints
the trace, the buffers that were read back and the assertion results.

Exit codes:
  0 - All assertions held
  1 - One or more assertions failed
  2 - Command error (missing file, invalid scenario, etc.)

Example:
  brahma run ./scenarios/copy.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runScenarioFile(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScenarioInvalid, err.Error(), nil)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := harness.Run(ctx, scenario, harness.WithLogger(newLogger(opts, cmd.ErrOrStderr())))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRuntimeFailed, err.Error(), nil)
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeResultText(formatter, scenario, result)
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func writeResultText(formatter *OutputFormatter, scenario *harness.Scenario, result *harness.Result) {
	w := formatter.Writer
	fmt.Fprintf(w, "Scenario: %s (%s)\n", scenario.Name, scenario.Backend)
	for _, ev := range result.Trace {
		fmt.Fprintf(w, "  [%d] %-5s %s %s\n", ev.Seq, ev.Command, ev.Target, ev.Detail)
	}
	if result.Failure != nil {
		fmt.Fprintf(w, "  failed at step %d: %s\n", result.Failure.Step, result.Failure.Message)
	}

	names := make([]string, 0, len(result.Buffers))
	for name := range result.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s = [%s]\n", name, strings.Join(result.Buffers[name], ", "))
	}

	if result.Pass {
		fmt.Fprintln(w, "✓ PASS")
		return
	}
	fmt.Fprintln(w, "✗ FAIL")
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(strings.TrimRight(msg, "\n"), "\n", "\n    "))
	}
}
