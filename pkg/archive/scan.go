package archive

import (
	"context"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/beam-cloud/xtmsplit/pkg/storage"
	"github.com/karrick/godirwalk"
	"golang.org/x/sync/errgroup"
)

const scanConcurrency = 8

// ArchiveInfo describes a part chain found on disk. Err is set when the
// chain's header could not be read; the walk itself carries on.
type ArchiveInfo struct {
	FirstPart string
	Header    *XtmArchiveHeader
	Parts     []common.PartInfo
	Err       error
}

// FindArchives walks root for first parts (*.001.xtm) and decodes the header
// and chain of each one. Results are in walk order.
func FindArchives(ctx context.Context, root string) ([]ArchiveInfo, error) {
	var firstParts []string

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if n, err := PartNumber(path); err == nil && n == common.FirstPartNumber {
				firstParts = append(firstParts, path)
			}
			return nil
		},
		Unsorted: false,
	})
	if err != nil {
		return nil, wrapIOError(err, "walk", root)
	}

	archiver := NewXtmArchiver(storage.NewLocalPartStore())
	results := make([]ArchiveInfo, len(firstParts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, firstPart := range firstParts {
		i, firstPart := i, firstPart
		g.Go(func() error {
			info := ArchiveInfo{FirstPart: firstPart}
			info.Header, info.Err = archiver.ReadArchiveHeader(gctx, firstPart)
			if info.Err == nil {
				info.Parts, info.Err = archiver.Chain(gctx, firstPart)
			}
			results[i] = info
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
