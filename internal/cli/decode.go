package cli

import (
	"github.com/spf13/cobra"
	"tokenprep/internal/adapter/tokens"
	"tokenprep/internal/usecase"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <in>",
	Short: "Print a binary token file as text ids",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	addStrideFlag(decodeCmd)
	decodeCmd.Flags().Int("per-line", -1, "ids per output line, 0 for one line (default from config)")
	decodeCmd.Flags().Bool("wait", false, "retry opening the input until it exists")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	stride, err := strideFlag(cmd, cfg)
	if err != nil {
		return err
	}
	perLine := cfg.Tokens.PerLine
	if cmd.Flags().Changed("per-line") {
		perLine, _ = cmd.Flags().GetInt("per-line")
	}
	wait, _ := cmd.Flags().GetBool("wait")

	router, err := newRouter(cfg)
	if err != nil {
		return err
	}
	open := usecase.OpenFunc(router.Open)
	if wait {
		open = newRetrier(cfg, router).EnsureOpenRead
	}

	_, err = usecase.NewDecodeUseCase(open).Decode(cmd.Context(), args[0], tokens.Stride(stride), perLine, cmd.OutOrStdout())
	return err
}
