package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"tokenprep/internal/adapter/lines"
)

var waitCmd = &cobra.Command{
	Use:   "wait <path>",
	Short: "Block until a file can be opened",
	Long: `Try to open a local or remote file until it succeeds, pausing
open.retry_interval between attempts. There is no retry limit; interrupt the
command to give up.`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func init() {
	waitCmd.Flags().Duration("interval", 0, "pause between attempts (default from config)")
	rootCmd.AddCommand(waitCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cmd.Flags().Changed("interval") {
		d, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			return err
		}
		cfg.Open.RetryInterval = d
	}

	router, err := newRouter(cfg)
	if err != nil {
		return err
	}
	f, err := newRetrier(cfg, router).EnsureOpenRead(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	size, err := lines.FileSize(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes\n", args[0], size)
	return nil
}
