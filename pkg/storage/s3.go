package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"
)

// s3API is the subset of *s3.Client used by S3PartStore.
type s3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3PartStoreOpts struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// S3PartStore keeps parts as objects in one bucket. Existence checks are
// answered from a key index filled by one listing per chain prefix, so walking
// a chain costs a single ListObjectsV2 pass instead of a HEAD per part.
type S3PartStore struct {
	svc    s3API
	bucket string

	mu     sync.Mutex
	keys   *btree.BTree
	listed map[string]bool
}

func NewS3PartStore(ctx context.Context, opts S3PartStoreOpts) (*S3PartStore, error) {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	if opts.AccessKey != "" && opts.SecretKey != "" {
		accessKey = opts.AccessKey
		secretKey = opts.SecretKey
	}

	cfg, err := getAWSConfig(ctx, accessKey, secretKey, opts.Region)
	if err != nil {
		return nil, err
	}

	svc := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		if opts.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	// Check to see if we have access to the bucket
	_, err = svc.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(opts.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot access bucket <%s>: %w", opts.Bucket, err)
	}

	return newS3PartStore(svc, opts.Bucket), nil
}

func newS3PartStore(svc s3API, bucket string) *S3PartStore {
	compare := func(a, b interface{}) bool {
		return a.(string) < b.(string)
	}

	return &S3PartStore{
		svc:    svc,
		bucket: bucket,
		keys:   btree.New(compare),
		listed: make(map[string]bool),
	}
}

func getAWSConfig(ctx context.Context, accessKey, secretKey, region string) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	return config.LoadDefaultConfig(ctx, loadOpts...)
}

func (s *S3PartStore) Mode() common.StorageMode {
	return common.StorageModeS3
}

// Create spools the part to a temporary file and uploads it on Close.
func (s *S3PartStore) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	spool, err := os.CreateTemp("", "xtm-part-*")
	if err != nil {
		return nil, common.IOFailure("create spool for", key, err)
	}

	return &s3PartWriter{ctx: ctx, store: s, key: key, spool: spool}, nil
}

func (s *S3PartStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return nil, fmt.Errorf("%w: s3://%s/%s", common.ErrNotFound, s.bucket, key)
	}
	if err != nil {
		return nil, common.IOFailure("get", key, err)
	}
	return resp.Body, nil
}

func (s *S3PartStore) Exists(ctx context.Context, key string) (bool, error) {
	prefix, err := chainPrefix(key)
	if err != nil {
		// Not a part name, nothing to list by.
		_, err := s.Size(ctx, key)
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}

	if err := s.listChain(ctx, prefix); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys.Get(key) != nil, nil
}

func (s *S3PartStore) Size(ctx context.Context, key string) (int64, error) {
	out, err := s.svc.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return 0, fmt.Errorf("%w: s3://%s/%s", common.ErrNotFound, s.bucket, key)
	}
	if err != nil {
		return 0, common.IOFailure("head", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3PartStore) Remove(ctx context.Context, key string) error {
	_, err := s.svc.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		return common.IOFailure("delete", key, err)
	}

	s.mu.Lock()
	s.keys.Delete(key)
	s.mu.Unlock()
	return nil
}

// listChain loads every key under prefix into the index, once per prefix.
func (s *S3PartStore) listChain(ctx context.Context, prefix string) error {
	s.mu.Lock()
	done := s.listed[prefix]
	s.mu.Unlock()
	if done {
		return nil
	}

	paginator := s3.NewListObjectsV2Paginator(s.svc, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return common.IOFailure("list", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.keys.Set(k)
	}
	s.listed[prefix] = true

	log.Debug().Str("bucket", s.bucket).Str("prefix", prefix).Int("keys", len(keys)).Msg("listed part chain")
	return nil
}

func (s *S3PartStore) upload(ctx context.Context, key string, body io.Reader) error {
	uploader := manager.NewUploader(s.svc, func(u *manager.Uploader) {
		u.Concurrency = 4
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return common.IOFailure("upload", key, err)
	}

	s.mu.Lock()
	s.keys.Set(key)
	s.mu.Unlock()
	return nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// chainPrefix is the listing prefix shared by all parts of key's chain.
func chainPrefix(key string) (string, error) {
	if len(key) < common.PartSuffixLength {
		return "", common.ErrMalformedPartName
	}
	stem := key[:len(key)-common.PartSuffixLength]
	if !isPartSuffix(key[len(stem):]) {
		return "", common.ErrMalformedPartName
	}
	return stem + ".", nil
}

func isPartSuffix(suffix string) bool {
	if len(suffix) != common.PartSuffixLength || suffix[0] != '.' || suffix[1+common.PartDigits] != '.' {
		return false
	}
	for _, c := range suffix[1 : 1+common.PartDigits] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

type s3PartWriter struct {
	ctx   context.Context
	store *S3PartStore
	key   string
	spool *os.File
}

func (w *s3PartWriter) Write(p []byte) (int, error) {
	n, err := w.spool.Write(p)
	if err != nil {
		return n, common.IOFailure("spool", w.key, err)
	}
	return n, nil
}

func (w *s3PartWriter) Close() error {
	defer os.Remove(w.spool.Name())
	defer w.spool.Close()

	if _, err := w.spool.Seek(0, io.SeekStart); err != nil {
		return common.IOFailure("rewind spool for", w.key, err)
	}
	return w.store.upload(w.ctx, w.key, w.spool)
}
