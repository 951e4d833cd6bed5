package commands

import (
	"fmt"

	"github.com/beam-cloud/xtmsplit/pkg/xtm"
	"github.com/spf13/cobra"
)

var ListCmd = &cobra.Command{
	Use:     "ls [directory]",
	Aliases: []string{"list"},
	Short:   "Find .xtm part chains under a directory",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	archives, err := xtm.FindArchives(cmd.Context(), root)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, a := range archives {
		if a.Err != nil {
			fmt.Fprintf(w, "%s %s\n", a.FirstPart, errorColor.Sprint(a.Err))
			continue
		}
		fmt.Fprintf(w, "%s %s (%d parts, %s)\n",
			a.FirstPart, labelColor.Sprint(a.Header.OriginalFileName), len(a.Parts), totalSize(a.Parts))
	}
	return nil
}
