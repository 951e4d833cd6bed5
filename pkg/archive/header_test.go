package archive

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeaderLayout(t *testing.T) {
	b, err := EncodeHeader(NewHeader("movie.mkv"))
	require.NoError(t, err)
	require.Len(t, b, common.XtmHeaderLength)

	assert.Equal(t, byte('1'), b[0])
	assert.Equal(t, "GoXtmSplit", string(b[1:11]))
	assert.Equal(t, make([]byte, 10), b[11:21])

	assert.Equal(t, byte('3'), b[21])
	assert.Equal(t, "1.2", string(b[22:25]))
	assert.Equal(t, byte(0), b[25])

	// reserved and date
	assert.Equal(t, make([]byte, 14), b[26:40])

	assert.Equal(t, byte('9'), b[40])
	assert.Equal(t, "movie.mkv", string(b[41:50]))
	assert.Equal(t, make([]byte, 41), b[50:91])

	assert.Equal(t, byte('0'), b[91])
	assert.Equal(t, []byte{'0', 0, 0, 0}, b[92:96])
	assert.Equal(t, make([]byte, 8), b[96:104])
}

func TestEncodeHeaderLengthPrefixUsesFirstDigit(t *testing.T) {
	b, err := EncodeHeader(NewHeader(strings.Repeat("n", 42)))
	require.NoError(t, err)
	assert.Equal(t, byte('4'), b[40])
}

func TestEncodeHeaderTotals(t *testing.T) {
	h := NewHeader("a.bin")
	h.PartCount = 3
	h.OriginalSize = 2500

	b, err := EncodeHeader(h)
	require.NoError(t, err)

	assert.Equal(t, []byte{'3', 0, 0, 0}, b[92:96])
	assert.Equal(t, []byte{'2', '5', '0', '0', 0, 0, 0, 0}, b[96:104])
}

func TestEncodeHeaderRejectsOversizedFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *XtmArchiveHeader)
	}{
		{"name", func(h *XtmArchiveHeader) { h.OriginalFileName = strings.Repeat("x", 51) }},
		{"creator", func(h *XtmArchiveHeader) { h.Creator = strings.Repeat("c", 21) }},
		{"version", func(h *XtmArchiveHeader) { h.Version = "1.2.3" }},
		{"part count", func(h *XtmArchiveHeader) { h.PartCount = 10000 }},
		{"original size", func(h *XtmArchiveHeader) { h.OriginalSize = 100000000 }},
		{"negative size", func(h *XtmArchiveHeader) { h.OriginalSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeader("ok")
			tt.mutate(h)
			_, err := EncodeHeader(h)
			assert.True(t, errors.Is(err, common.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestEncodeHeaderFiftyByteName(t *testing.T) {
	name := strings.Repeat("y", common.NameFieldLength)
	b, err := EncodeHeader(NewHeader(name))
	require.NoError(t, err)

	h, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, name, h.OriginalFileName)
}

func TestDecodeHeaderRoundTrip(t *testing.T) {
	in := NewHeader("holiday photos.zip")
	in.HasHash = true
	in.PartCount = 12
	in.OriginalSize = 99999999

	b, err := EncodeHeader(in)
	require.NoError(t, err)

	out, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeHeaderForeignCreator(t *testing.T) {
	// Headers from other tools may carry a different creator and report
	// their part count.
	h := NewHeader("report.pdf")
	h.Creator = "JXtmSplit"
	h.Version = "1.0"
	h.PartCount = 4
	h.Date = [4]byte{0x07, 0xe8, 0x05, 0x11}

	b, err := EncodeHeader(h)
	require.NoError(t, err)

	out, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, "JXtmSplit", out.Creator)
	assert.Equal(t, 4, out.PartCount)
	assert.Equal(t, int64(0), out.OriginalSize)
	assert.Equal(t, h.Date, out.Date)
}

func TestDecodeHeaderLenientNumbers(t *testing.T) {
	b, err := EncodeHeader(NewHeader("x"))
	require.NoError(t, err)
	copy(b[92:96], "ab\x00\x00")

	h, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, 0, h.PartCount)
}

func TestDecodeHeaderTruncated(t *testing.T) {
	_, err := DecodeHeader(make([]byte, common.XtmHeaderLength-1))
	assert.True(t, errors.Is(err, common.ErrTruncated))
}

func TestReadHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, NewHeader("data.bin")))
	buf.WriteString("payload")

	h, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "data.bin", h.OriginalFileName)
	assert.Equal(t, "payload", buf.String())
}

func TestReadHeaderTruncated(t *testing.T) {
	for _, n := range []int{0, 1, 103} {
		_, err := ReadHeader(bytes.NewReader(make([]byte, n)))
		assert.True(t, errors.Is(err, common.ErrTruncated), "%d bytes: %v", n, err)
	}
}

func TestHeaderString(t *testing.T) {
	assert.Equal(t, "GoXtmSplit@1.2@@X@0@0@false", NewHeader("X").String())
}
