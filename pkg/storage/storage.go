package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beam-cloud/xtmsplit/pkg/common"
)

// PartStore is where part files are created and read. Names are opaque to
// the store's caller: a filesystem path, an object key or a URL depending on
// the backend.
type PartStore interface {
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	Size(ctx context.Context, name string) (int64, error)
	// Remove deletes a part. Removing a missing part is not an error.
	Remove(ctx context.Context, name string) error
	Mode() common.StorageMode
}

// ChainLocker is implemented by stores that can keep two writers (or a
// writer and a reader) off the same part chain.
type ChainLocker interface {
	LockChain(firstPart string) (unlock func() error, err error)
	ChainLocked(firstPart string) (bool, error)
}

type PartStoreOpts struct {
	S3          common.S3StorageInfo
	Credentials common.S3Credentials
	HTTPClient  *http.Client
}

// Resolve picks a store for location and returns the name to use with it.
//
//	s3://bucket/path/movie.avi.001.xtm  -> S3PartStore, key "path/movie.avi.001.xtm"
//	https://host/movie.avi.001.xtm      -> HTTPPartStore, the URL itself
//	anything else                       -> LocalPartStore, the path itself
func Resolve(ctx context.Context, location string, opts PartStoreOpts) (PartStore, string, error) {
	switch mode, bucket, name, err := ParseLocation(location); {
	case err != nil:
		return nil, "", err
	case mode == common.StorageModeS3:
		info := opts.S3
		info.Bucket = bucket
		store, err := NewS3PartStore(ctx, S3PartStoreOpts{
			Bucket:         info.Bucket,
			Region:         info.Region,
			Endpoint:       info.Endpoint,
			ForcePathStyle: info.ForcePathStyle,
			AccessKey:      opts.Credentials.AccessKey,
			SecretKey:      opts.Credentials.SecretKey,
		})
		if err != nil {
			return nil, "", err
		}
		return store, name, nil
	case mode == common.StorageModeHTTP:
		return NewHTTPPartStore(opts.HTTPClient), name, nil
	default:
		return NewLocalPartStore(), name, nil
	}
}

// ParseLocation classifies location without touching any backend.
func ParseLocation(location string) (mode common.StorageMode, bucket, name string, err error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		u, err := url.Parse(location)
		if err != nil {
			return "", "", "", fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return "", "", "", fmt.Errorf("%w: s3 location %q needs a bucket and a key", common.ErrInvalidArgument, location)
		}
		return common.StorageModeS3, u.Host, key, nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return common.StorageModeHTTP, "", location, nil
	default:
		return common.StorageModeLocal, "", location, nil
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
