package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/checksum"
)

// newChecksumCommand prints SHA-256 digests of local files in sha256sum format.
func newChecksumCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <file>...",
		Short: "Print the SHA-256 of local files",
		Long:  "Print the SHA-256 of local files in the same lowercase hex form written to the formula, for checking release assets by hand.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				sum, err := checksum.FileSHA256Hex(path)
				if err != nil {
					return fmt.Errorf("checksum %s: %w", path, err)
				}

				writeLine(cmd.OutOrStdout(), "%s  %s", sum, path)
			}

			return nil
		},
	}
}
