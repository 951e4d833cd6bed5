package common

/*

An XTM archive is a chain of part files named <base>.NNN.xtm. Part 1 starts
with a 104 byte header, every other part is raw payload:

	creatorLen   1   ASCII digit
	creator     20   zero padded
	versionLen   1   ASCII digit
	version      4   zero padded
	reserved    10   zero
	date         4   zero
	nameLen      1   ASCII digit
	name        50   zero padded
	hasHash      1   ASCII digit
	partCount    4   ASCII decimal, zero padded
	originalSize 8   ASCII decimal, zero padded

*/

const (
	CreatorName = "GoXtmSplit"
	XtmVersion  = "1.2"

	CreatorFieldLength  = 20
	VersionFieldLength  = 4
	ReservedFieldLength = 10
	DateFieldLength     = 4
	NameFieldLength     = 50
	PartCountLength     = 4
	OriginalSizeLength  = 8
	LengthPrefixLength  = 1
	HasHashLength       = 1

	XtmHeaderLength = LengthPrefixLength + CreatorFieldLength +
		LengthPrefixLength + VersionFieldLength +
		ReservedFieldLength + DateFieldLength +
		LengthPrefixLength + NameFieldLength +
		HasHashLength + PartCountLength + OriginalSizeLength
)

const (
	PartExtension    = ".xtm"
	PartSuffixLength = 8 // ".NNN.xtm"
	PartDigits       = 3
	FirstPartNumber  = 1
	MaxPartNumber    = 999

	// Size of the buffer used to stream bytes between parts. It has no
	// relation to the part size.
	CopyBufferSize = 1024
)
