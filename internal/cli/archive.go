package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aquavit/Brahma-sub001/internal/store"
)

// ArchiveOptions holds flags for the archive command.
type ArchiveOptions struct {
	*RootOptions
	Key      string
	Provider string
	Source   bool // include generated source in text output
}

// ArchiveEntry is one archived translation in command output.
type ArchiveEntry struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	Key        string `json:"key"`
	Backend    string `json:"backend"`
	Kernel     string `json:"kernel"`
	Source     string `json:"source"`
}

// ArchiveResult is the archive command payload.
type ArchiveResult struct {
	Translations []ArchiveEntry `json:"translations"`
	Counts       map[string]int `json:"counts"`
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "archive <db>",
		Short: "List archived translations",
		Long: `List the translations recorded in a SQLite archive, oldest first.

Examples:
  brahma archive ./brahma.db
  brahma archive ./brahma.db --key 3f2a...
  brahma archive ./brahma.db --provider 0190... --source`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "only translations with this program key")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "only translations recorded by this provider")
	cmd.Flags().BoolVar(&opts.Source, "source", false, "print generated source")

	return cmd
}

func runArchive(opts *ArchiveOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// store.Open creates missing databases; listing one is a usage error.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeArchiveFailed, fmt.Sprintf("archive not found: %s", dbPath), nil)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeArchiveFailed, fmt.Sprintf("opening archive: %v", err), nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var records []store.Translation
	switch {
	case opts.Key != "":
		records, err = st.ReadByKey(ctx, opts.Key)
	case opts.Provider != "":
		records, err = st.ReadByProvider(ctx, opts.Provider)
	default:
		records, err = st.ListTranslations(ctx)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeArchiveFailed, err.Error(), nil)
	}
	counts, err := st.CountByBackend(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeArchiveFailed, err.Error(), nil)
	}

	result := ArchiveResult{Translations: make([]ArchiveEntry, len(records)), Counts: counts}
	for i, r := range records {
		result.Translations[i] = ArchiveEntry{
			Seq:        r.Seq,
			ID:         r.ID,
			ProviderID: r.ProviderID,
			Key:        r.Key,
			Backend:    r.Backend,
			Kernel:     r.KernelName,
			Source:     r.Source,
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputArchiveText(formatter, result, opts.Source)
}

func outputArchiveText(formatter *OutputFormatter, result ArchiveResult, withSource bool) error {
	w := formatter.Writer
	if len(result.Translations) == 0 {
		fmt.Fprintln(w, "No translations archived.")
		return nil
	}
	for _, t := range result.Translations {
		fmt.Fprintf(w, "#%d %s %s key=%s provider=%s\n", t.Seq, t.Kernel, t.Backend, shortKey(t.Key), t.ProviderID)
		if withSource {
			for _, line := range strings.Split(strings.TrimRight(t.Source, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	fmt.Fprintf(w, "\n%d translation(s)\n", len(result.Translations))
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
