package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"tokenprep/config"
	"tokenprep/internal/adapter/fs"
	"tokenprep/internal/adapter/store"
	"tokenprep/internal/domain"
	"tokenprep/internal/port"
	"tokenprep/internal/usecase"
)

var countCmd = &cobra.Command{
	Use:   "count [paths...]",
	Short: "Count lines in text files",
	Long: `Count lines in the given local or remote files. Without arguments, every
file under --dir matching read.includes (and not read.excludes) is counted.

Counts of local files are cached in .tokenprep/cache.db and reused while a
file's size and modification time stay the same.

Examples:
  tokenprep count                           # Count the current directory
  tokenprep count train.txt valid.txt       # Count specific files
  tokenprep count --ignore-errors=false x   # Fail on undecodable lines`,
	RunE: runCount,
}

func init() {
	addReadFlags(countCmd)
	countCmd.Flags().Bool("no-cache", false, "do not read or write the line count cache")
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := applyReadFlags(cmd, cfg); err != nil {
		return err
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")

	router, err := newRouter(cfg)
	if err != nil {
		return err
	}
	opts, err := lineOptions(cfg)
	if err != nil {
		return err
	}

	var countStore port.CountStore
	if cfg.Cache.Enabled && !noCache {
		st, err := openCountStore(cfg, GetRootDir())
		if err != nil {
			return err
		}
		defer st.Close()
		countStore = st
	}

	walker := fs.NewWalker(cfg.Read.Includes, cfg.Read.Excludes)
	countUC := usecase.NewCountUseCase(countStore, walker, router, opts...)

	var summary *domain.CountSummary
	if len(args) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Scanning %s...\n", GetRootDir())
		summary, err = countUC.CountTree(cmd.Context(), GetRootDir(), nil)
	} else {
		summary, err = countUC.CountPaths(cmd.Context(), args, nil)
	}
	if err != nil {
		return fmt.Errorf("counting failed: %w", err)
	}

	printCountSummary(cmd, summary)
	if len(summary.Errors) > 0 && len(summary.Files) == 0 {
		return fmt.Errorf("no file could be counted")
	}
	return nil
}

// openCountStore opens the cache under dir, clearing it when the schema or
// the read configuration changed since it was written.
func openCountStore(cfg *config.Config, dir string) (*store.BoltStore, error) {
	if err := config.EnsureStateDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create .tokenprep directory: %w", err)
	}
	st, err := store.NewBoltStore(config.CacheDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open count cache: %w", err)
	}

	migration, err := st.CheckMigration(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to check migration: %w", err)
	}
	if migration.NeedsRebuild {
		logger.Info("clearing count cache", "reason", migration.Reason)
		if err := st.Clear(); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	if migration.NeedsRebuild || migration.NeedsMigration {
		if err := st.Migrate(cfg); err != nil {
			st.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return st, nil
}

func printCountSummary(cmd *cobra.Command, summary *domain.CountSummary) {
	out := cmd.OutOrStdout()
	root := GetRootDir()

	rows := make([][]string, 0, len(summary.Files))
	var totalSkipped int
	var totalBytes int64
	for _, f := range summary.Files {
		name := f.Path
		if rel, err := filepath.Rel(root, f.Path); err == nil && filepath.IsLocal(rel) {
			name = rel
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(f.Lines),
			strconv.Itoa(f.Skipped),
			strconv.FormatInt(f.Size, 10),
		})
		totalSkipped += f.Skipped
		totalBytes += f.Size
	}
	if len(rows) > 0 {
		footer := []string{"total", strconv.Itoa(summary.TotalLines), strconv.Itoa(totalSkipped), strconv.FormatInt(totalBytes, 10)}
		fmt.Fprintln(out, renderTable(
			[]string{"File", "Lines", "Skipped", "Bytes"},
			rows,
			footer,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
		))
	}

	fmt.Fprintf(out, "\nCounting complete:\n")
	fmt.Fprintf(out, "  Files counted:  %d\n", summary.Counted)
	fmt.Fprintf(out, "  Files cached:   %d (unchanged)\n", summary.Cached)
	if summary.Deleted > 0 {
		fmt.Fprintf(out, "  Files removed:  %d\n", summary.Deleted)
	}
	fmt.Fprintf(out, "  Total lines:    %d\n", summary.TotalLines)

	if len(summary.Errors) > 0 {
		fmt.Fprintf(out, "\nWarnings:\n")
		for _, e := range summary.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}
}
