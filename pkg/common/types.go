package common

type StorageMode string

const (
	StorageModeLocal StorageMode = "local"
	StorageModeS3    StorageMode = "s3"
	StorageModeHTTP  StorageMode = "http"
)

// S3StorageInfo describes where a part chain lives in an S3 compatible store.
type S3StorageInfo struct {
	Bucket         string
	Region         string
	Endpoint       string
	ForcePathStyle bool
}

type S3Credentials struct {
	AccessKey string
	SecretKey string
}

// PartInfo describes one member of a part chain.
type PartInfo struct {
	Name   string
	Number int
	Size   int64
}
