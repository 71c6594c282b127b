package elevation

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRequest is returned when a lookup is attempted without any locations.
	ErrEmptyRequest = errors.New("no locations added")

	// ErrBatchTooLarge is returned when more locations were added than one request may carry.
	ErrBatchTooLarge = errors.New("too many locations for one request")

	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("elevation lookup failed")

	// ErrCacheIO marks cache read or write failures. They are logged, never fatal.
	ErrCacheIO = errors.New("elevation cache io")

	// ErrNonSquareImage is returned for elevation images whose width and height differ.
	ErrNonSquareImage = errors.New("elevation image is not square")
)

// NetworkError describes a transport or protocol failure of the lookup service.
type NetworkError struct {
	Op         string // "post", "status", "decode" or "count"
	StatusCode int    // set for "status"
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("elevation lookup %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("elevation lookup %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNetwork) true for any NetworkError.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
