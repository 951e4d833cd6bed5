package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/beam-cloud/xtmsplit/pkg/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Extract rebuilds the original file from the chain starting at
// opts.ArchivePath and writes it to opts.OutputPath. Parts are appended in
// sequence until the next part name does not exist.
//
// Without opts.Atomic a failure part way through leaves a truncated output.
func (xa *XtmArchiver) Extract(ctx context.Context, opts XtmArchiverOptions) (*XtmArchiveHeader, error) {
	firstPart := FirstPartName(opts.ArchivePath)

	if locker, ok := xa.store.(storage.ChainLocker); ok {
		locked, err := locker.ChainLocked(firstPart)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, fmt.Errorf("%w: %s", common.ErrChainLocked, firstPart)
		}
	}

	in, err := xa.store.Open(ctx, firstPart)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	header, err := ReadHeader(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", firstPart, err)
	}

	log.Info().Msgf("extracting %s (original name %q) to %s", firstPart, header.OriginalFileName, opts.OutputPath)
	start := time.Now()

	out, err := openExtractOutput(ctx, opts.OutputPath, opts.Atomic)
	if err != nil {
		return nil, err
	}

	if err := xa.extractParts(ctx, out, in, firstPart, opts.Verbose); err != nil {
		out.abort()
		return nil, err
	}

	if err := out.commit(); err != nil {
		return nil, err
	}

	xa.metrics.RecordExtract(time.Since(start))
	log.Info().Msgf("extracted %s in %v", opts.OutputPath, time.Since(start))

	return header, nil
}

// extractParts copies the rest of part 1 from first, then every following
// part that exists.
func (xa *XtmArchiver) extractParts(ctx context.Context, out io.Writer, first io.Reader, firstPart string, verbose bool) error {
	buf := make([]byte, common.CopyBufferSize)

	n, err := io.CopyBuffer(out, ctxReader{ctx: ctx, r: first}, buf)
	if err != nil {
		return wrapIOError(err, "copy", firstPart)
	}
	xa.metrics.RecordPartRead(firstPart, n+common.XtmHeaderLength)
	if verbose {
		log.Info().Str("part", firstPart).Int64("bytes", n).Msg("joined part")
	}

	exists := func(name string) (bool, error) {
		return xa.store.Exists(ctx, name)
	}

	name := firstPart
	for {
		next, ok, err := NextPartName(name, exists)
		if errors.Is(err, common.ErrTooManyParts) {
			return nil
		}
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		n, err := xa.copyPart(ctx, out, next, buf)
		if err != nil {
			return err
		}
		if verbose {
			log.Info().Str("part", next).Int64("bytes", n).Msg("joined part")
		}
		name = next
	}
}

// copyPart appends a whole part to out and returns the number of bytes
// copied.
func (xa *XtmArchiver) copyPart(ctx context.Context, out io.Writer, name string, buf []byte) (int64, error) {
	r, err := xa.store.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.CopyBuffer(out, ctxReader{ctx: ctx, r: r}, buf)
	if err != nil {
		return n, wrapIOError(err, "copy", name)
	}

	xa.metrics.RecordPartRead(name, n)
	return n, nil
}

// extractOutput is the reconstructed file. With staging enabled it is
// written under a temporary name and renamed into place on commit.
type extractOutput struct {
	io.WriteCloser
	path    string
	staging string
}

func openExtractOutput(ctx context.Context, path string, atomic bool) (*extractOutput, error) {
	target := path
	staging := ""
	if atomic {
		staging = fmt.Sprintf("%s.%s.tmp", path, uuid.New().String()[:6])
		target = staging
	}

	w, err := storage.NewLocalPartStore().Create(ctx, target)
	if err != nil {
		return nil, err
	}

	return &extractOutput{WriteCloser: w, path: path, staging: staging}, nil
}

func (o *extractOutput) commit() error {
	if err := o.Close(); err != nil {
		o.removeStaging()
		return err
	}
	if o.staging == "" {
		return nil
	}
	if err := os.Rename(o.staging, o.path); err != nil {
		o.removeStaging()
		return common.IOFailure("rename", o.staging, err)
	}
	return nil
}

func (o *extractOutput) abort() {
	o.Close()
	o.removeStaging()
}

func (o *extractOutput) removeStaging() {
	if o.staging != "" {
		os.Remove(o.staging)
	}
}
