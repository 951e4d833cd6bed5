package xtm

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/beam-cloud/xtmsplit/pkg/archive"
	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/beam-cloud/xtmsplit/pkg/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the logging verbosity for the library.
// Valid levels: "debug", "info", "warn", "error", "disabled"
// Use "debug" to see one log line per part written or read.
func SetLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled", "none", "off":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		return fmt.Errorf("invalid log level %q: must be one of: debug, info, warn, error, disabled", level)
	}
	return nil
}

type StorageOptions struct {
	S3          common.S3StorageInfo
	Credentials common.S3Credentials
	HTTPClient  *http.Client
}

type SplitOptions struct {
	InputPath    string
	OutputPath   string // prefix, part 1 name or s3://bucket/key
	PartSize     int64
	RecordTotals bool
	Storage      StorageOptions
	ProgressChan chan<- int
	Verbose      bool
}

type ExtractOptions struct {
	InputFile  string // part 1 name, chain prefix, s3:// or http(s):// location
	OutputPath string // defaults to the original file name next to part 1
	Atomic     bool
	Storage    StorageOptions
	Verbose    bool
}

type InspectOptions struct {
	InputFile string
	Storage   StorageOptions
}

// Split a file into a part chain
func SplitFile(ctx context.Context, options SplitOptions) ([]common.PartInfo, error) {
	store, name, err := resolve(ctx, options.OutputPath, options.Storage)
	if err != nil {
		return nil, err
	}

	a := archive.NewXtmArchiver(store)
	parts, err := a.Split(ctx, archive.XtmArchiverOptions{
		SourcePath:   options.InputPath,
		OutputFile:   name,
		PartSize:     options.PartSize,
		RecordTotals: options.RecordTotals,
		ProgressChan: options.ProgressChan,
		Verbose:      options.Verbose,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Msg("split completed successfully")
	return parts, nil
}

// Extract a part chain back into the original file
func ExtractFile(ctx context.Context, options ExtractOptions) (*archive.XtmArchiveHeader, error) {
	store, name, err := resolve(ctx, options.InputFile, options.Storage)
	if err != nil {
		return nil, err
	}

	a := archive.NewXtmArchiver(store)

	outputPath := options.OutputPath
	if outputPath == "" {
		header, err := a.ReadArchiveHeader(ctx, name)
		if err != nil {
			return nil, err
		}
		outputPath, err = defaultOutputPath(store.Mode(), name, header.OriginalFileName)
		if err != nil {
			return nil, err
		}
	}

	header, err := a.Extract(ctx, archive.XtmArchiverOptions{
		ArchivePath: name,
		OutputPath:  outputPath,
		Atomic:      options.Atomic,
		Verbose:     options.Verbose,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Msg("extraction completed successfully")
	return header, nil
}

// InspectArchive reads the header of a chain and lists its parts
func InspectArchive(ctx context.Context, options InspectOptions) (*archive.ArchiveInfo, error) {
	store, name, err := resolve(ctx, options.InputFile, options.Storage)
	if err != nil {
		return nil, err
	}

	a := archive.NewXtmArchiver(store)
	firstPart := archive.FirstPartName(name)

	header, err := a.ReadArchiveHeader(ctx, firstPart)
	if err != nil {
		return nil, err
	}

	parts, err := a.Chain(ctx, firstPart)
	if err != nil {
		return nil, err
	}

	return &archive.ArchiveInfo{FirstPart: firstPart, Header: header, Parts: parts}, nil
}

// FindArchives lists the part chains stored under a local directory
func FindArchives(ctx context.Context, root string) ([]archive.ArchiveInfo, error) {
	return archive.FindArchives(ctx, root)
}

func resolve(ctx context.Context, location string, opts StorageOptions) (storage.PartStore, string, error) {
	if location == "" {
		return nil, "", fmt.Errorf("%w: location is required", common.ErrInvalidArgument)
	}

	return storage.Resolve(ctx, location, storage.PartStoreOpts{
		S3:          opts.S3,
		Credentials: opts.Credentials,
		HTTPClient:  opts.HTTPClient,
	})
}

// defaultOutputPath places the rebuilt file next to a local first part, or in
// the working directory for remote chains. The name always comes from the
// header and is reduced to its base name.
func defaultOutputPath(mode common.StorageMode, firstPart, originalFileName string) (string, error) {
	base := path.Base(strings.ReplaceAll(originalFileName, "\\", "/"))
	if base == "." || base == "/" || base == ".." || originalFileName == "" {
		return "", fmt.Errorf("%w: header has no usable file name, pass an output path", common.ErrInvalidArgument)
	}

	if mode != common.StorageModeLocal {
		return base, nil
	}
	return filepath.Join(filepath.Dir(firstPart), base), nil
}
