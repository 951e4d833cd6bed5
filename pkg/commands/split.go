package commands

import (
	"fmt"
	"math"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/beam-cloud/xtmsplit/pkg/metrics"
	"github.com/beam-cloud/xtmsplit/pkg/xtm"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultPartSize = "100MB"

var SplitCmd = &cobra.Command{
	Use:   "split <file> [destination]",
	Short: "Split a file into numbered .xtm parts",
	Long: `Split a file into <destination>.001.xtm, <destination>.002.xtm, ...

The destination defaults to the input path. It may also be an
s3://bucket/key location.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSplit,
}

func init() {
	SplitCmd.Flags().StringP("part-size", "s", defaultPartSize, "Maximum size of each part, e.g. 1440KB, 700MiB, 4GB")
	SplitCmd.Flags().Bool("record-totals", false, "Write the real part count and file size into the header")
}

func runSplit(cmd *cobra.Command, args []string) error {
	partSize, err := parsePartSize(cfg.GetString("part-size"))
	if err != nil {
		return err
	}

	destination := args[0]
	if len(args) == 2 {
		destination = args[1]
	}

	progress := make(chan int, 1)
	defer close(progress)
	go func() {
		for p := range progress {
			log.Debug().Int("percent", p).Msg("split progress")
		}
	}()

	parts, err := xtm.SplitFile(cmd.Context(), xtm.SplitOptions{
		InputPath:    args[0],
		OutputPath:   destination,
		PartSize:     partSize,
		RecordTotals: cfg.GetBool("record-totals"),
		Storage:      storageOptions(),
		ProgressChan: progress,
		Verbose:      cfg.GetBool("verbose"),
	})
	if err != nil {
		return err
	}

	if cfg.GetBool("verbose") {
		metrics.LogMetricsSummary()
	}

	printParts(cmd.OutOrStdout(), parts)
	return nil
}

func parsePartSize(value string) (int64, error) {
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%w: part size %q: %v", common.ErrInvalidArgument, value, err)
	}
	if size == 0 || size > math.MaxInt64 {
		return 0, fmt.Errorf("%w: part size %q out of range", common.ErrInvalidArgument, value)
	}
	return int64(size), nil
}
