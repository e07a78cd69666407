package discover

import "github.com/cockroachdb/errors"

// Direction is a sort direction.
type Direction string

const (
	// Asc sorts ascending.
	Asc Direction = "asc"
	// Desc sorts descending.
	Desc Direction = "desc"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// ErrorCode represents specific error codes for discover operations.
type ErrorCode int

const (
	// ErrCodeUnknownField is returned when a field name is not in the field list.
	ErrCodeUnknownField ErrorCode = iota + 2000

	// ErrCodeInvalidSort is returned when a sort direction is not asc or desc.
	ErrCodeInvalidSort

	// ErrCodeSourceClosed is returned once a search source has been destroyed.
	ErrCodeSourceClosed

	// ErrCodeNotFound is returned when a saved search does not exist.
	ErrCodeNotFound

	// ErrCodeInvalidQuery is returned when a query string cannot be parsed.
	ErrCodeInvalidQuery

	// ErrCodeCanceled is returned when an operation is canceled.
	ErrCodeCanceled

	// ErrCodeBackendUnavailable is returned when the search backend is unavailable.
	ErrCodeBackendUnavailable
)

// String returns the human-readable string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeUnknownField:
		return "unknown field"
	case ErrCodeInvalidSort:
		return "invalid sort"
	case ErrCodeSourceClosed:
		return "source closed"
	case ErrCodeNotFound:
		return "not found"
	case ErrCodeInvalidQuery:
		return "invalid query"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeBackendUnavailable:
		return "backend unavailable"
	default:
		return "unknown error"
	}
}

func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

var (
	// ErrUnknownField is returned when toggling a field that was never discovered.
	ErrUnknownField = newErrorWithCode(ErrCodeUnknownField, "discover: unknown field")

	// ErrInvalidSort is returned for a sort direction other than asc or desc.
	ErrInvalidSort = newErrorWithCode(ErrCodeInvalidSort, "discover: invalid sort")

	// ErrSourceClosed is returned by SearchSource.Next after Close.
	ErrSourceClosed = newErrorWithCode(ErrCodeSourceClosed, "discover: source closed")

	// ErrNotFound is returned by saved search stores for unknown ids.
	ErrNotFound = newErrorWithCode(ErrCodeNotFound, "discover: saved search not found")

	// ErrInvalidQuery is returned when a query string is malformed.
	ErrInvalidQuery = newErrorWithCode(ErrCodeInvalidQuery, "discover: invalid query")

	// ErrCanceled is returned when a search is canceled.
	ErrCanceled = newErrorWithCode(ErrCodeCanceled, "discover: operation canceled")

	// ErrBackendUnavailable is returned when the search backend is unavailable.
	ErrBackendUnavailable = newErrorWithCode(ErrCodeBackendUnavailable, "discover: backend unavailable")
)
