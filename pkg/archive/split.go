package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/beam-cloud/xtmsplit/pkg/metrics"
	"github.com/beam-cloud/xtmsplit/pkg/storage"
	"github.com/rs/zerolog/log"
)

// Largest size the 8 digit original size field can hold.
const maxRecordedSize = 99999999

// Split writes opts.SourcePath as a chain of parts of at most opts.PartSize
// bytes each, starting at opts.OutputFile. The header counts towards the
// size of part 1 and may itself span several parts when the part size is
// smaller than the header.
//
// Parts already written are left in place when Split fails.
func (xa *XtmArchiver) Split(ctx context.Context, opts XtmArchiverOptions) (parts []common.PartInfo, retErr error) {
	if opts.PartSize <= 0 {
		return nil, fmt.Errorf("%w: part size must be positive, got %d", common.ErrInvalidArgument, opts.PartSize)
	}

	src, err := os.Open(opts.SourcePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, opts.SourcePath)
	}
	if err != nil {
		return nil, common.IOFailure("open", opts.SourcePath, err)
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return nil, common.IOFailure("stat", opts.SourcePath, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", common.ErrInvalidArgument, opts.SourcePath)
	}

	firstPart := FirstPartName(opts.OutputFile)
	firstNumber, err := PartNumber(firstPart)
	if err != nil {
		return nil, err
	}

	sourceSize := fi.Size()
	partCount := ExpectedPartCount(sourceSize, opts.PartSize)
	if int64(firstNumber)-1+partCount > common.MaxPartNumber {
		return nil, fmt.Errorf("%w: %d bytes at part size %d needs %d parts", common.ErrTooManyParts, sourceSize, opts.PartSize, partCount)
	}

	header := NewHeader(filepath.Base(opts.SourcePath))
	if opts.RecordTotals {
		header.PartCount = int(partCount)
		if sourceSize <= maxRecordedSize {
			header.OriginalSize = sourceSize
		} else {
			log.Warn().Msgf("%s is too large for the header size field, leaving it zeroed", opts.SourcePath)
		}
	}
	headerBytes, err := EncodeHeader(header)
	if err != nil {
		return nil, err
	}

	if locker, ok := xa.store.(storage.ChainLocker); ok {
		unlock, err := locker.LockChain(firstPart)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	log.Info().Msgf("splitting %s (%d bytes) into %d parts of %d bytes at %s", opts.SourcePath, sourceSize, partCount, opts.PartSize, firstPart)
	start := time.Now()

	w := &partWriter{
		ctx:      ctx,
		store:    xa.store,
		metrics:  xa.metrics,
		first:    firstPart,
		partSize: opts.PartSize,
	}
	defer func() {
		if retErr != nil {
			w.abort()
		}
	}()

	stream := io.MultiReader(
		bytes.NewReader(headerBytes),
		&progressReader{r: src, size: sourceSize, ch: opts.ProgressChan},
	)

	buf := make([]byte, common.CopyBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, rerr := stream.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return nil, wrapIOError(err, "write", w.name)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, common.IOFailure("read", opts.SourcePath, rerr)
		}
	}

	if err := w.Close(); err != nil {
		return nil, wrapIOError(err, "close", w.name)
	}
	if err := xa.removeStaleParts(ctx, w.name); err != nil {
		return nil, err
	}

	if opts.Verbose {
		for _, p := range w.parts {
			log.Info().Str("part", p.Name).Int64("bytes", p.Size).Msg("wrote part")
		}
	}

	xa.metrics.RecordSplit(time.Since(start))
	log.Info().Msgf("split %s into %d parts in %v", opts.SourcePath, len(w.parts), time.Since(start))

	return w.parts, nil
}

// removeStaleParts deletes the parts following last that an earlier, longer
// split to the same destination left behind. Extract would otherwise join
// them onto the new chain.
func (xa *XtmArchiver) removeStaleParts(ctx context.Context, last string) error {
	exists := func(name string) (bool, error) {
		return xa.store.Exists(ctx, name)
	}

	name := last
	for {
		next, ok, err := NextPartName(name, exists)
		if errors.Is(err, common.ErrTooManyParts) {
			return nil
		}
		if err != nil {
			return wrapIOError(err, "stat", name)
		}
		if !ok {
			return nil
		}

		if err := xa.store.Remove(ctx, next); err != nil {
			return wrapIOError(err, "remove", next)
		}
		log.Warn().Str("part", next).Msg("removed stale part left by an earlier split")
		name = next
	}
}

// partWriter spreads a byte stream across successive parts, rolling over to
// the next part name once the current part holds partSize bytes. A part is
// only created when there is a byte to put in it.
type partWriter struct {
	ctx      context.Context
	store    storage.PartStore
	metrics  *metrics.Metrics
	first    string
	partSize int64

	name    string
	current io.WriteCloser
	written int64
	parts   []common.PartInfo
}

func (w *partWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if w.current == nil || w.written == w.partSize {
			if err := w.rotate(); err != nil {
				return total, err
			}
		}

		n := int64(len(p))
		if room := w.partSize - w.written; n > room {
			n = room
		}

		m, err := w.current.Write(p[:n])
		w.written += int64(m)
		total += m
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}

func (w *partWriter) rotate() error {
	name := w.first
	if w.name != "" {
		if err := w.Close(); err != nil {
			return err
		}

		next, _, err := NextPartName(w.name, nil)
		if err != nil {
			return err
		}
		name = next
	}

	part, err := w.store.Create(w.ctx, name)
	if err != nil {
		return err
	}

	w.name = name
	w.current = part
	w.written = 0
	return nil
}

// Close finishes the current part.
func (w *partWriter) Close() error {
	if w.current == nil {
		return nil
	}

	err := w.current.Close()
	w.current = nil
	if err != nil {
		return err
	}

	number, _ := PartNumber(w.name)
	w.parts = append(w.parts, common.PartInfo{Name: w.name, Number: number, Size: w.written})
	w.metrics.RecordPartWritten(w.name, w.written)
	return nil
}

// abort releases the current part without recording it.
func (w *partWriter) abort() {
	if w.current != nil {
		w.current.Close()
		w.current = nil
	}
}
