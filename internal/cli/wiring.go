package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tokenprep/config"
	"tokenprep/internal/adapter/fs"
	"tokenprep/internal/adapter/lines"
	"tokenprep/internal/adapter/progress"
	"tokenprep/internal/adapter/s3fs"
)

// newRouter builds the file system router: local paths plus every
// configured object store prefix.
func newRouter(cfg *config.Config) (*fs.Router, error) {
	router := fs.NewRouter(fs.LocalFS{})
	if !cfg.Remote.Enabled || len(cfg.Remote.Prefixes) == 0 {
		return router, nil
	}

	remote, err := s3fs.New(s3fs.Options{
		Region:         cfg.Remote.Region,
		Endpoint:       cfg.Remote.Endpoint,
		ForcePathStyle: cfg.Remote.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}
	for _, prefix := range cfg.Remote.Prefixes {
		router.Register(prefix, remote)
	}
	return router, nil
}

func newRetrier(cfg *config.Config, router *fs.Router) *fs.Retrier {
	return fs.NewRetrier(router, cfg.Open.RetryInterval, logger)
}

// lineOptions translates the read section of cfg into reader options.
func lineOptions(cfg *config.Config) ([]lines.Option, error) {
	dec, err := lines.NewDecoder(cfg.Read.Encoding)
	if err != nil {
		return nil, err
	}
	return []lines.Option{
		lines.WithVerbose(cfg.Read.Verbose),
		lines.WithIgnoreErrors(cfg.Read.IgnoreErrors),
		lines.WithLogger(logger),
		lines.WithProgress(progress.Select(cfg.Read.Progress, os.Stderr)),
		lines.WithClock(progress.SystemClock{}),
		lines.WithUpdateInterval(cfg.Read.UpdateInterval),
		lines.WithDecoder(dec),
	}, nil
}

// addReadFlags registers flags that override the read section.
func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().String("encoding", "", "text encoding (default from config, utf-8)")
	cmd.Flags().Bool("ignore-errors", true, "skip undecodable lines instead of failing")
}

func applyReadFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("encoding") {
		v, err := cmd.Flags().GetString("encoding")
		if err != nil {
			return err
		}
		cfg.Read.Encoding = v
	}
	if cmd.Flags().Changed("ignore-errors") {
		v, err := cmd.Flags().GetBool("ignore-errors")
		if err != nil {
			return err
		}
		cfg.Read.IgnoreErrors = v
	}
	return nil
}

// addStrideFlag registers --stride, defaulting to the configured stride.
func addStrideFlag(cmd *cobra.Command) {
	cmd.Flags().IntP("stride", "s", 0, "bytes per token: 2 (uint16) or 4 (int32) (default from config)")
}

func strideFlag(cmd *cobra.Command, cfg *config.Config) (int, error) {
	if !cmd.Flags().Changed("stride") {
		return cfg.Tokens.Stride, nil
	}
	v, err := cmd.Flags().GetInt("stride")
	if err != nil {
		return 0, fmt.Errorf("invalid stride: %w", err)
	}
	return v, nil
}
