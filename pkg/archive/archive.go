package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/beam-cloud/xtmsplit/pkg/metrics"
	"github.com/beam-cloud/xtmsplit/pkg/storage"
)

type XtmArchiverOptions struct {
	Verbose bool // log every part written or joined

	// Split
	SourcePath   string
	OutputFile   string // destination prefix or part 1 name
	PartSize     int64
	RecordTotals bool
	ProgressChan chan<- int

	// Extract
	ArchivePath string // part 1 name or chain prefix
	OutputPath  string
	Atomic      bool
}

// XtmArchiver splits files into part chains and joins them back, reading and
// writing parts through a storage.PartStore.
type XtmArchiver struct {
	store   storage.PartStore
	metrics *metrics.Metrics
}

func NewXtmArchiver(store storage.PartStore) *XtmArchiver {
	return &XtmArchiver{
		store:   store,
		metrics: metrics.GlobalMetrics,
	}
}

// WithMetrics makes the archiver record into m instead of the global metrics.
func (xa *XtmArchiver) WithMetrics(m *metrics.Metrics) *XtmArchiver {
	xa.metrics = m
	return xa
}

// ExpectedPartCount is the number of parts a split of sourceSize bytes with
// the given part size produces: ceil((header + sourceSize) / partSize).
func ExpectedPartCount(sourceSize, partSize int64) int64 {
	if partSize <= 0 {
		return 0
	}
	total := int64(common.XtmHeaderLength) + sourceSize
	return (total-1)/partSize + 1
}

// ReadArchiveHeader decodes the header at the start of the chain's first part.
func (xa *XtmArchiver) ReadArchiveHeader(ctx context.Context, archivePath string) (*XtmArchiveHeader, error) {
	firstPart := FirstPartName(archivePath)

	r, err := xa.store.Open(ctx, firstPart)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ReadHeader(r)
}

// Chain lists the parts of the chain starting at archivePath, in order,
// stopping at the first missing part.
func (xa *XtmArchiver) Chain(ctx context.Context, archivePath string) ([]common.PartInfo, error) {
	name := FirstPartName(archivePath)

	var parts []common.PartInfo
	for {
		size, err := xa.store.Size(ctx, name)
		if err != nil {
			if len(parts) > 0 && errors.Is(err, common.ErrNotFound) {
				break
			}
			return nil, err
		}

		number, _ := PartNumber(name)
		parts = append(parts, common.PartInfo{Name: name, Number: number, Size: size})

		next, _, err := NextPartName(name, nil)
		if errors.Is(err, common.ErrTooManyParts) {
			break
		}
		if err != nil {
			return nil, err
		}
		name = next
	}

	return parts, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type progressReader struct {
	r        io.Reader
	size     int64
	read     int64
	reported int
	ch       chan<- int
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 && pr.ch != nil && pr.size > 0 {
		pr.read += int64(n)
		progress := int(float64(pr.read) / float64(pr.size) * 100)

		if progress != pr.reported {
			pr.reported = progress
			select {
			case pr.ch <- progress:
			default:
			}
		}
	}
	return n, err
}

// wrapIOError tags err as an I/O failure unless it already carries one of
// the package's error kinds or is a context error.
func wrapIOError(err error, op, name string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrIOFailure),
		errors.Is(err, common.ErrInvalidArgument),
		errors.Is(err, common.ErrTruncated),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", common.ErrIOFailure, op, name, err)
}
