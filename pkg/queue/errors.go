package queue

import "errors"

type ErrorCode string

const (
	// ErrorCodeInvalidInput marks caller mistakes rejected before any
	// storage interaction.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeStorage wraps any failure from the external store.
	ErrorCodeStorage ErrorCode = "STORAGE"
)

// Error is the error type returned by all queue operations.
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newInvalidInputError(msg string) error {
	return &Error{Code: ErrorCodeInvalidInput, Msg: msg}
}

func newStorageError(op string, err error) error {
	return &Error{Code: ErrorCodeStorage, Msg: op, Err: err}
}

// IsInvalidInput reports whether err is a rejected caller input.
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsStorageFailure reports whether err wraps a storage-level failure.
func IsStorageFailure(err error) bool {
	return hasCode(err, ErrorCodeStorage)
}

func hasCode(err error, code ErrorCode) bool {
	var qe *Error
	if !errors.As(err, &qe) {
		return false
	}
	return qe.Code == code
}
