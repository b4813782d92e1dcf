package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"tokenprep/internal/adapter/lines"
)

var sizeCmd = &cobra.Command{
	Use:   "size <path>",
	Short: "Print the size of a local or remote file in bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		router, err := newRouter(GetConfig())
		if err != nil {
			return err
		}
		size, err := lines.FileSizePath(cmd.Context(), router, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), size)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sizeCmd)
}
