package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/gofrs/flock"
)

const localWriteBufferSize = 512 * 1024

type LocalPartStore struct {
	fileMode os.FileMode
}

func NewLocalPartStore() *LocalPartStore {
	return &LocalPartStore{fileMode: 0644}
}

func (s *LocalPartStore) Mode() common.StorageMode {
	return common.StorageModeLocal
}

func (s *LocalPartStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, s.fileMode)
	if err != nil {
		return nil, common.IOFailure("create", name, err)
	}

	return &bufferedFile{
		name:   name,
		file:   f,
		writer: bufio.NewWriterSize(f, localWriteBufferSize),
	}, nil
}

func (s *LocalPartStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, common.IOFailure("open", name, err)
	}
	return f, nil
}

func (s *LocalPartStore) Exists(ctx context.Context, name string) (bool, error) {
	fi, err := os.Stat(name)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, common.IOFailure("stat", name, err)
	}
	return fi.Mode().IsRegular(), nil
}

func (s *LocalPartStore) Size(ctx context.Context, name string) (int64, error) {
	fi, err := os.Stat(name)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}
	if err != nil {
		return 0, common.IOFailure("stat", name, err)
	}
	return fi.Size(), nil
}

func (s *LocalPartStore) Remove(ctx context.Context, name string) error {
	err := os.Remove(name)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return common.IOFailure("remove", name, err)
}

// LockChain takes an exclusive lock on <firstPart>.lock for the duration of
// a split. The lock file is removed on unlock.
func (s *LocalPartStore) LockChain(firstPart string) (func() error, error) {
	lockFilePath := lockPath(firstPart)
	fileLock := flock.New(lockFilePath)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, common.IOFailure("lock", lockFilePath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", common.ErrChainLocked, firstPart)
	}

	return func() error {
		defer os.Remove(lockFilePath)
		return fileLock.Unlock()
	}, nil
}

// ChainLocked reports whether a split currently holds the chain's lock.
func (s *LocalPartStore) ChainLocked(firstPart string) (bool, error) {
	lockFilePath := lockPath(firstPart)
	if _, err := os.Stat(lockFilePath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	fileLock := flock.New(lockFilePath)
	locked, err := fileLock.TryRLock()
	if err != nil {
		return false, common.IOFailure("lock", lockFilePath, err)
	}
	if !locked {
		return true, nil
	}
	return false, fileLock.Unlock()
}

func lockPath(firstPart string) string {
	return fmt.Sprintf("%s.lock", firstPart)
}

// bufferedFile flushes its buffer before closing the file; both errors are
// reported.
type bufferedFile struct {
	name   string
	file   *os.File
	writer *bufio.Writer
}

func (b *bufferedFile) Write(p []byte) (int, error) {
	n, err := b.writer.Write(p)
	if err != nil {
		return n, common.IOFailure("write", b.name, err)
	}
	return n, nil
}

func (b *bufferedFile) Close() error {
	flushErr := b.writer.Flush()
	closeErr := b.file.Close()

	if flushErr != nil {
		return common.IOFailure("flush", b.name, flushErr)
	}
	return common.IOFailure("close", b.name, closeErr)
}
