package xtm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", "debug", zerolog.DebugLevel, false},
		{"info", "info", zerolog.InfoLevel, false},
		{"warn", "warn", zerolog.WarnLevel, false},
		{"warning", "warning", zerolog.WarnLevel, false},
		{"error", "error", zerolog.ErrorLevel, false},
		{"disabled", "disabled", zerolog.Disabled, false},
		{"off", "off", zerolog.Disabled, false},
		{"case insensitive", "DEBUG", zerolog.DebugLevel, false},
		{"invalid", "loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, zerolog.GlobalLevel())
			}
		})
	}
}

func ExampleSetLogLevel() {
	// One line per part written or read
	SetLogLevel("debug")

	SetLogLevel("info")
	SetLogLevel("disabled")
}

func writeFile(t *testing.T, path string, size int) []byte {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 253)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return data
}

func TestSplitAndExtractFile(t *testing.T) {
	require.NoError(t, SetLogLevel("disabled"))
	ctx := context.Background()

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "report.pdf")
	data := writeFile(t, src, 5000)

	partDir := t.TempDir()
	parts, err := SplitFile(ctx, SplitOptions{
		InputPath:  src,
		OutputPath: filepath.Join(partDir, "report.pdf"),
		PartSize:   1500,
	})
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Equal(t, filepath.Join(partDir, "report.pdf.004.xtm"), parts[3].Name)

	// Without an output path the file lands next to part 1 under its
	// original name.
	header, err := ExtractFile(ctx, ExtractOptions{InputFile: filepath.Join(partDir, "report.pdf")})
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", header.OriginalFileName)

	restored, err := os.ReadFile(filepath.Join(partDir, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, data, restored)

	info, err := InspectArchive(ctx, InspectOptions{InputFile: filepath.Join(partDir, "report.pdf.001.xtm")})
	require.NoError(t, err)
	assert.Len(t, info.Parts, 4)
	assert.Equal(t, common.CreatorName, info.Header.Creator)

	archives, err := FindArchives(ctx, partDir)
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, filepath.Join(partDir, "report.pdf.001.xtm"), archives[0].FirstPart)
}

func TestExtractFileMissing(t *testing.T) {
	require.NoError(t, SetLogLevel("disabled"))

	_, err := ExtractFile(context.Background(), ExtractOptions{InputFile: filepath.Join(t.TempDir(), "none")})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestSplitFileRequiresOutput(t *testing.T) {
	_, err := SplitFile(context.Background(), SplitOptions{InputPath: "x", PartSize: 10})
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		name     string
		mode     common.StorageMode
		part     string
		original string
		expected string
		wantErr  bool
	}{
		{"local", common.StorageModeLocal, "/parts/a.001.xtm", "movie.avi", "/parts/movie.avi", false},
		{"local strips directories", common.StorageModeLocal, "/parts/a.001.xtm", "../../etc/passwd", "/parts/passwd", false},
		{"windows separators", common.StorageModeLocal, "/parts/a.001.xtm", `C:\videos\movie.avi`, "/parts/movie.avi", false},
		{"http", common.StorageModeHTTP, "https://host/a.001.xtm", "movie.avi", "movie.avi", false},
		{"s3", common.StorageModeS3, "dir/a.001.xtm", "movie.avi", "movie.avi", false},
		{"empty", common.StorageModeLocal, "/parts/a.001.xtm", "", "", true},
		{"dot dot", common.StorageModeLocal, "/parts/a.001.xtm", "..", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := defaultOutputPath(tt.mode, tt.part, tt.original)
			if tt.wantErr {
				assert.True(t, errors.Is(err, common.ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}
