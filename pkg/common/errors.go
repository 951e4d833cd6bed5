package common

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrTruncated       = errors.New("truncated")
	ErrIOFailure       = errors.New("i/o failure")
	ErrInvalidArgument = errors.New("invalid argument")

	ErrMalformedPartName = fmt.Errorf("%w: malformed part name", ErrInvalidArgument)
	ErrTooManyParts      = fmt.Errorf("%w: part sequence exceeds %d", ErrInvalidArgument, MaxPartNumber)
	ErrReadOnlyStore     = errors.New("store is read-only")
	ErrChainLocked       = errors.New("part chain is being written by another process")
)

// IOFailure wraps err as an ErrIOFailure, keeping err in the chain.
func IOFailure(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s: %w", ErrIOFailure, op, name, err)
}
