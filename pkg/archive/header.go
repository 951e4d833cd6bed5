package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beam-cloud/xtmsplit/pkg/common"
)

// XtmArchiveHeader is the metadata record stored at the start of part 1.
type XtmArchiveHeader struct {
	Creator          string
	Version          string
	Date             [common.DateFieldLength]byte
	OriginalFileName string
	HasHash          bool
	PartCount        int
	OriginalSize     int64
}

// NewHeader returns the header written by this tool for originalFileName.
// Part count and original size are left at zero.
func NewHeader(originalFileName string) *XtmArchiveHeader {
	return &XtmArchiveHeader{
		Creator:          common.CreatorName,
		Version:          common.XtmVersion,
		OriginalFileName: originalFileName,
	}
}

// String joins the header fields with '@' for display.
func (h *XtmArchiveHeader) String() string {
	return strings.Join([]string{
		h.Creator,
		h.Version,
		strings.TrimRight(string(h.Date[:]), "\x00"),
		h.OriginalFileName,
		strconv.Itoa(h.PartCount),
		strconv.FormatInt(h.OriginalSize, 10),
		strconv.FormatBool(h.HasHash),
	}, "@")
}

func EncodeHeader(h *XtmArchiveHeader) ([]byte, error) {
	var err error
	buf := make([]byte, 0, common.XtmHeaderLength)

	if buf, err = appendPrefixedText(buf, "creator", h.Creator, common.CreatorFieldLength); err != nil {
		return nil, err
	}
	if buf, err = appendPrefixedText(buf, "version", h.Version, common.VersionFieldLength); err != nil {
		return nil, err
	}

	buf = append(buf, make([]byte, common.ReservedFieldLength)...)
	buf = append(buf, h.Date[:]...)

	if buf, err = appendPrefixedText(buf, "original file name", h.OriginalFileName, common.NameFieldLength); err != nil {
		return nil, err
	}

	if h.HasHash {
		buf = append(buf, '1')
	} else {
		buf = append(buf, '0')
	}

	if buf, err = appendDecimal(buf, "part count", int64(h.PartCount), common.PartCountLength, false); err != nil {
		return nil, err
	}
	if buf, err = appendDecimal(buf, "original size", h.OriginalSize, common.OriginalSizeLength, true); err != nil {
		return nil, err
	}

	return buf, nil
}

func DecodeHeader(headerBytes []byte) (*XtmArchiveHeader, error) {
	if len(headerBytes) < common.XtmHeaderLength {
		return nil, fmt.Errorf("%w: header needs %d bytes, got %d", common.ErrTruncated, common.XtmHeaderLength, len(headerBytes))
	}

	r := fieldReader{buf: headerBytes}
	h := new(XtmArchiveHeader)

	r.skip(common.LengthPrefixLength)
	h.Creator = r.text(common.CreatorFieldLength)
	r.skip(common.LengthPrefixLength)
	h.Version = r.text(common.VersionFieldLength)
	r.skip(common.ReservedFieldLength)
	copy(h.Date[:], r.next(common.DateFieldLength))
	r.skip(common.LengthPrefixLength)
	h.OriginalFileName = r.text(common.NameFieldLength)
	h.HasHash = r.next(common.HasHashLength)[0] == '1'
	h.PartCount = int(r.decimal(common.PartCountLength))
	h.OriginalSize = r.decimal(common.OriginalSizeLength)

	return h, nil
}

// WriteHeader encodes h and writes it to w.
func WriteHeader(w io.Writer, h *XtmArchiveHeader) error {
	b, err := EncodeHeader(h)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadHeader consumes exactly one header from r.
func ReadHeader(r io.Reader) (*XtmArchiveHeader, error) {
	b := make([]byte, common.XtmHeaderLength)
	n, err := io.ReadFull(r, b)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: header needs %d bytes, got %d", common.ErrTruncated, common.XtmHeaderLength, n)
	}
	if err != nil {
		return nil, common.IOFailure("read", "header", err)
	}
	return DecodeHeader(b)
}

// lengthPrefix renders n the way XTM length prefixes are stored: the first
// decimal digit of n as an ASCII character.
func lengthPrefix(n int) byte {
	return strconv.Itoa(n)[0]
}

func appendPrefixedText(buf []byte, field, value string, width int) ([]byte, error) {
	if len(value) > width {
		return nil, fmt.Errorf("%w: %s %q is %d bytes, field holds %d", common.ErrInvalidArgument, field, value, len(value), width)
	}

	buf = append(buf, lengthPrefix(len(value)))
	buf = append(buf, value...)
	return append(buf, make([]byte, width-len(value))...), nil
}

func appendDecimal(buf []byte, field string, v int64, width int, zeroFillEmpty bool) ([]byte, error) {
	if v < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", common.ErrInvalidArgument, field)
	}
	if v == 0 && zeroFillEmpty {
		return append(buf, make([]byte, width)...), nil
	}

	digits := strconv.FormatInt(v, 10)
	if len(digits) > width {
		return nil, fmt.Errorf("%w: %s %d does not fit in %d digits", common.ErrInvalidArgument, field, v, width)
	}

	buf = append(buf, digits...)
	return append(buf, make([]byte, width-len(digits))...), nil
}

type fieldReader struct {
	buf []byte
	off int
}

func (r *fieldReader) next(n int) []byte {
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *fieldReader) skip(n int) {
	r.off += n
}

func (r *fieldReader) text(n int) string {
	return string(bytes.TrimRight(r.next(n), "\x00"))
}

// decimal parses an ASCII decimal field; anything unparsable reads as 0.
func (r *fieldReader) decimal(n int) int64 {
	v, err := strconv.ParseInt(r.text(n), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
