package commands

import (
	"fmt"

	"github.com/beam-cloud/xtmsplit/pkg/xtm"
	"github.com/spf13/cobra"
)

var InfoCmd = &cobra.Command{
	Use:   "info <first-part|prefix|url>",
	Short: "Show the header and the parts of a chain",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	info, err := xtm.InspectArchive(cmd.Context(), xtm.InspectOptions{
		InputFile: args[0],
		Storage:   storageOptions(),
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("header:"), info.Header)
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("creator:"), info.Header.Creator)
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("version:"), info.Header.Version)
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("file:"), info.Header.OriginalFileName)
	printParts(w, info.Parts)
	return nil
}
