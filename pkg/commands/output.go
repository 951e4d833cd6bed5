package commands

import (
	"fmt"
	"io"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	labelColor   = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
)

func printParts(w io.Writer, parts []common.PartInfo) {
	for _, p := range parts {
		fmt.Fprintf(w, "%3d  %-10s %s\n", p.Number, humanize.IBytes(uint64(p.Size)), p.Name)
	}
	fmt.Fprintf(w, "%s %d parts, %s\n", labelColor.Sprint("total:"), len(parts), totalSize(parts))
}

func totalSize(parts []common.PartInfo) string {
	var total int64
	for _, p := range parts {
		total += p.Size
	}
	return humanize.IBytes(uint64(total))
}
