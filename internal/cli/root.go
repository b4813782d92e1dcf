package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"tokenprep/config"
	"tokenprep/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	quiet    bool
	logger   *slog.Logger
	progMode string
)

var rootCmd = &cobra.Command{
	Use:   "tokenprep",
	Short: "Text and token file utilities for dataset preparation",
	Long: `tokenprep reads large text files with progress reporting, opens local or
object-store paths uniformly, and converts token id sequences to and from
compact fixed-width binary files.

Example usage:
  tokenprep count                          # Count lines of every text file under the current directory
  tokenprep count s3://corpus/train.txt    # Count lines of a remote file
  tokenprep encode ids.txt ids.bin -s 2    # Encode token ids as uint16
  tokenprep decode ids.bin --per-line 16   # Print binary tokens
  tokenprep wait /data/shard-0007.txt      # Block until a file can be opened`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if quiet {
			cfg.Read.Verbose = false
		}
		if progMode != "" {
			cfg.Read.Progress = progMode
		}

		logger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tokenprep.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress bars and decode error reports")
	rootCmd.PersistentFlags().StringVar(&progMode, "progress", "", "progress bars: auto, always or never")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
