package archive

import (
	"errors"
	"testing"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPartName(t *testing.T) {
	tests := []struct {
		current  string
		expected string
	}{
		{"archive.001.xtm", "archive.002.xtm"},
		{"/a/b/archive.007.xtm", "/a/b/archive.008.xtm"},
		{"x.099.xtm", "x.100.xtm"},
		{"x.998.xtm", "x.999.xtm"},
		{"UPPER.004.XTM", "UPPER.005.XTM"},
		{"s3://bucket/dir/file.010.xtm", "s3://bucket/dir/file.011.xtm"},
		{"dots.in.name.001.xtm", "dots.in.name.002.xtm"},
		{".001.xtm", ".002.xtm"},
	}

	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			next, ok, err := NextPartName(tt.current, nil)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestNextPartNameMalformed(t *testing.T) {
	for _, name := range []string{
		"",
		"archive.xtm",
		"archive.01.xtm",
		"archive.0a1.xtm",
		"archive.001.zip",
		"archive_001.xtm",
		"archive.000.xtm",
		"001.xtm",
	} {
		t.Run(name, func(t *testing.T) {
			_, ok, err := NextPartName(name, nil)
			assert.False(t, ok)
			assert.True(t, errors.Is(err, common.ErrMalformedPartName), "got %v", err)
			assert.True(t, errors.Is(err, common.ErrInvalidArgument))
		})
	}
}

func TestNextPartNameOverflow(t *testing.T) {
	_, ok, err := NextPartName("big.999.xtm", nil)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, common.ErrTooManyParts))
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
}

func TestNextPartNameWithExists(t *testing.T) {
	present := map[string]bool{
		"f.001.xtm": true,
		"f.002.xtm": true,
		"f.003.xtm": true,
	}
	exists := func(name string) (bool, error) { return present[name], nil }

	var chain []string
	for name, ok := "f.001.xtm", true; ok; {
		chain = append(chain, name)
		var err error
		name, ok, err = NextPartName(name, exists)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"f.001.xtm", "f.002.xtm", "f.003.xtm"}, chain)
}

func TestNextPartNameExistsError(t *testing.T) {
	boom := errors.New("boom")
	_, ok, err := NextPartName("f.001.xtm", func(string) (bool, error) { return false, boom })
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestPartNameHelpers(t *testing.T) {
	name, err := PartName("dir/movie.mkv", 1)
	require.NoError(t, err)
	assert.Equal(t, "dir/movie.mkv.001.xtm", name)

	_, err = PartName("dir/movie.mkv", 1000)
	assert.True(t, errors.Is(err, common.ErrTooManyParts))

	_, err = PartName("dir/movie.mkv", 0)
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	n, err := PartNumber("dir/movie.mkv.042.xtm")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	prefix, err := PartPrefix("dir/movie.mkv.042.xtm")
	require.NoError(t, err)
	assert.Equal(t, "dir/movie.mkv", prefix)

	assert.True(t, IsPartName("a.001.xtm"))
	assert.False(t, IsPartName("a.001"))
}

func TestFirstPartName(t *testing.T) {
	assert.Equal(t, "out/movie.001.xtm", FirstPartName("out/movie"))
	assert.Equal(t, "out/movie.001.xtm", FirstPartName("out/movie.001.xtm"))
	assert.Equal(t, "out/movie.003.xtm", FirstPartName("out/movie.003.xtm"))
	assert.Equal(t, "movie.xtm.001.xtm", FirstPartName("movie.xtm"))
}
