package archive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beam-cloud/xtmsplit/pkg/common"
)

// ExistsFunc reports whether a part with the given name is present.
type ExistsFunc func(name string) (bool, error)

// NextPartName computes the successor of current by incrementing its
// ".NNN.xtm" sequence number. Names are treated as opaque strings, so paths,
// object keys and URLs all work.
//
// With a nil exists the successor is returned unconditionally. Otherwise ok is
// false when exists reports the successor as absent, which ends a chain.
func NextPartName(current string, exists ExistsFunc) (next string, ok bool, err error) {
	stem, number, ext, err := parsePartName(current)
	if err != nil {
		return "", false, err
	}

	next, err = formatPartName(stem, number+1, ext)
	if err != nil {
		return "", false, err
	}

	if exists == nil {
		return next, true, nil
	}

	found, err := exists(next)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}
	return next, true, nil
}

// PartName returns the name of part number n of the chain rooted at prefix.
func PartName(prefix string, n int) (string, error) {
	return formatPartName(prefix, n, common.PartExtension)
}

// PartNumber returns the 1-based sequence number encoded in a part name.
func PartNumber(name string) (int, error) {
	_, number, _, err := parsePartName(name)
	return number, err
}

// IsPartName reports whether name carries a well formed ".NNN.xtm" suffix.
func IsPartName(name string) bool {
	_, _, _, err := parsePartName(name)
	return err == nil
}

// FirstPartName resolves a chain location. A name that already carries a
// part suffix is used as-is, anything else is treated as a prefix.
func FirstPartName(prefixOrPart string) string {
	if IsPartName(prefixOrPart) {
		return prefixOrPart
	}
	name, _ := PartName(prefixOrPart, common.FirstPartNumber)
	return name
}

// PartPrefix strips the ".NNN.xtm" suffix from a part name.
func PartPrefix(name string) (string, error) {
	stem, _, _, err := parsePartName(name)
	return stem, err
}

func parsePartName(name string) (stem string, number int, ext string, err error) {
	if len(name) < common.PartSuffixLength {
		return "", 0, "", fmt.Errorf("%w: %q", common.ErrMalformedPartName, name)
	}

	split := len(name) - common.PartSuffixLength
	stem, suffix := name[:split], name[split:]

	digits := suffix[1 : 1+common.PartDigits]
	ext = suffix[1+common.PartDigits:]
	if suffix[0] != '.' || !strings.EqualFold(ext, common.PartExtension) || !isDigits(digits) {
		return "", 0, "", fmt.Errorf("%w: %q", common.ErrMalformedPartName, name)
	}

	number, _ = strconv.Atoi(digits)
	if number < common.FirstPartNumber {
		return "", 0, "", fmt.Errorf("%w: %q has sequence number 0", common.ErrMalformedPartName, name)
	}

	return stem, number, ext, nil
}

func formatPartName(stem string, n int, ext string) (string, error) {
	if n > common.MaxPartNumber {
		return "", fmt.Errorf("%w: part %d of %q", common.ErrTooManyParts, n, stem)
	}
	if n < common.FirstPartNumber {
		return "", fmt.Errorf("%w: part number %d", common.ErrInvalidArgument, n)
	}
	return fmt.Sprintf("%s.%03d%s", stem, n, ext), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
