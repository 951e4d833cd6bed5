package commands

import (
	"fmt"

	"github.com/beam-cloud/xtmsplit/pkg/metrics"
	"github.com/beam-cloud/xtmsplit/pkg/xtm"
	"github.com/spf13/cobra"
)

var ExtractCmd = &cobra.Command{
	Use:   "extract <first-part|prefix|url>",
	Short: "Join a chain of .xtm parts back into the original file",
	Long: `Join a chain of .xtm parts back into the original file.

The chain may be given by its first part (movie.avi.001.xtm), by its prefix
(movie.avi), or as an s3:// or http(s):// location of the first part.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	ExtractCmd.Flags().StringP("output", "o", "", "Output file (default: original name from the header)")
	ExtractCmd.Flags().Bool("atomic", false, "Write to a temporary file and rename it into place on success")
}

func runExtract(cmd *cobra.Command, args []string) error {
	header, err := xtm.ExtractFile(cmd.Context(), xtm.ExtractOptions{
		InputFile:  args[0],
		OutputPath: cfg.GetString("output"),
		Atomic:     cfg.GetBool("atomic"),
		Storage:    storageOptions(),
		Verbose:    cfg.GetBool("verbose"),
	})
	if err != nil {
		return err
	}

	if cfg.GetBool("verbose") {
		metrics.LogMetricsSummary()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successColor.Sprint("extracted"), header.OriginalFileName)
	return nil
}
