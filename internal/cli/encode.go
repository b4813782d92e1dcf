package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"tokenprep/internal/adapter/tokens"
	"tokenprep/internal/usecase"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <in> <out>",
	Short: "Encode text token ids as a binary token file",
	Long: `Read whitespace separated integer token ids, one sequence per line, and
write them as headerless little-endian integers. Stride 2 stores uint16 ids,
stride 4 stores int32 ids. The stride is not recorded in the output.

Examples:
  tokenprep encode ids.txt ids.bin                  # Stride from config (default 2)
  tokenprep encode -s 4 ids.txt s3://bucket/ids.bin # 32-bit ids to object storage
  tokenprep encode --vocab-size 100277 ids.txt ids.bin # Narrowest stride for the vocab
  tokenprep encode --wait shard.txt shard.bin       # Wait for the input to appear`,
	Args: cobra.ExactArgs(2),
	RunE: runEncode,
}

func init() {
	addReadFlags(encodeCmd)
	addStrideFlag(encodeCmd)
	encodeCmd.Flags().Int("vocab-size", 0, "pick the narrowest stride for this vocabulary (ignored when --stride is set)")
	encodeCmd.Flags().Bool("wait", false, "retry opening the input until it exists")
	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := applyReadFlags(cmd, cfg); err != nil {
		return err
	}
	stride, err := strideFlag(cmd, cfg)
	if err != nil {
		return err
	}
	if vocab, _ := cmd.Flags().GetInt("vocab-size"); vocab > 0 && !cmd.Flags().Changed("stride") {
		stride = int(tokens.Width(vocab))
	}
	wait, _ := cmd.Flags().GetBool("wait")

	router, err := newRouter(cfg)
	if err != nil {
		return err
	}
	opts, err := lineOptions(cfg)
	if err != nil {
		return err
	}

	open := usecase.OpenFunc(router.Open)
	if wait {
		open = newRetrier(cfg, router).EnsureOpenRead
	}

	encodeUC := usecase.NewEncodeUseCase(router, open, logger, cfg.Read.IgnoreErrors, opts...)
	summary, err := encodeUC.Encode(cmd.Context(), args[0], args[1], tokens.Stride(stride))
	if err != nil {
		return fmt.Errorf("encoding failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nEncoding complete:\n")
	fmt.Fprintf(out, "  Lines read:     %d\n", summary.Lines)
	fmt.Fprintf(out, "  Lines skipped:  %d\n", summary.Skipped)
	fmt.Fprintf(out, "  Tokens written: %d\n", summary.Tokens)
	fmt.Fprintf(out, "  Bytes written:  %d\n", summary.Bytes)
	fmt.Fprintf(out, "\nOutput stored at: %s\n", args[1])
	return nil
}
