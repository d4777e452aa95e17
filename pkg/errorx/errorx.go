package errorx

import (
	"fmt"
)

// INVALID INPUT ERROR:

// InvalidInputError - malformed condition, order or field specification.
// Always a caller bug, never worth retrying.
type InvalidInputError struct {
	message string
	err     error
}

// NewInvalidInputError - InvalidInputError constructor.
func NewInvalidInputError(msg string, args ...any) *InvalidInputError {
	return &InvalidInputError{message: fmt.Sprintf(msg, args...), err: nil}
}

// NewInvalidInputErrorWrapper - InvalidInputError constructor for wrapper of another error.
func NewInvalidInputErrorWrapper(err error, msg string, args ...any) *InvalidInputError {
	return &InvalidInputError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (ie *InvalidInputError) Error() string {
	if ie.err != nil {
		return fmt.Errorf("%s: %w", ie.message, ie.err).Error()
	}

	return ie.message
}

// Unwrap - return the wrapped error, if any.
func (ie *InvalidInputError) Unwrap() error {
	return ie.err
}

// INVALID STATE ERROR:

// InvalidStateError - an operation was invoked in a state that does not
// allow it, for example beginning a transaction while one is already open.
type InvalidStateError struct {
	message string
	err     error
}

// NewInvalidStateError - InvalidStateError constructor.
func NewInvalidStateError(msg string, args ...any) *InvalidStateError {
	return &InvalidStateError{message: fmt.Sprintf(msg, args...), err: nil}
}

// Error - return the error string.
func (se *InvalidStateError) Error() string {
	if se.err != nil {
		return fmt.Errorf("%s: %w", se.message, se.err).Error()
	}

	return se.message
}

// Unwrap - return the wrapped error, if any.
func (se *InvalidStateError) Unwrap() error {
	return se.err
}

// CONNECTION ERROR:

// ConnectionError - the underlying connection could not be established or
// maintained. Fatal to the current operation; the library never retries.
type ConnectionError struct {
	message string
	err     error
}

// NewConnectionError - ConnectionError constructor.
func NewConnectionError(msg string, args ...any) *ConnectionError {
	return &ConnectionError{message: fmt.Sprintf(msg, args...), err: nil}
}

// NewConnectionErrorWrapper - ConnectionError constructor for wrapper of another error.
func NewConnectionErrorWrapper(err error, msg string, args ...any) *ConnectionError {
	return &ConnectionError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (ce *ConnectionError) Error() string {
	if ce.err != nil {
		return fmt.Errorf("%s: %w", ce.message, ce.err).Error()
	}

	return ce.message
}

// Unwrap - return the wrapped error, if any.
func (ce *ConnectionError) Unwrap() error {
	return ce.err
}

// PREPARE ERROR:

// PrepareError - the SQL text failed to prepare. Almost always a builder
// bug, surfaced immediately.
type PrepareError struct {
	message string
	err     error
}

// NewPrepareError - PrepareError constructor.
func NewPrepareError(msg string, args ...any) *PrepareError {
	return &PrepareError{message: fmt.Sprintf(msg, args...), err: nil}
}

// NewPrepareErrorWrapper - PrepareError constructor for wrapper of another error.
func NewPrepareErrorWrapper(err error, msg string, args ...any) *PrepareError {
	return &PrepareError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (pe *PrepareError) Error() string {
	if pe.err != nil {
		return fmt.Errorf("%s: %w", pe.message, pe.err).Error()
	}

	return pe.message
}

// Unwrap - return the wrapped error, if any.
func (pe *PrepareError) Unwrap() error {
	return pe.err
}

// QUERY ERROR:

// QueryError - execution-time failure: constraint violation, deadlock, or
// bad syntax coming in through the raw escape hatch. Carries the engine's
// message, never credentials.
type QueryError struct {
	message string
	err     error
}

// NewQueryError - QueryError constructor.
func NewQueryError(msg string, args ...any) *QueryError {
	return &QueryError{message: fmt.Sprintf(msg, args...), err: nil}
}

// NewQueryErrorWrapper - QueryError constructor for wrapper of another error.
func NewQueryErrorWrapper(err error, msg string, args ...any) *QueryError {
	return &QueryError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (qe *QueryError) Error() string {
	if qe.err != nil {
		return fmt.Errorf("%s: %w", qe.message, qe.err).Error()
	}

	return qe.message
}

// Unwrap - return the wrapped error, if any.
func (qe *QueryError) Unwrap() error {
	return qe.err
}

// METADATA ERROR:

// MetadataError - schema introspection failed, so enum metadata for the
// requested column is unavailable.
type MetadataError struct {
	message string
	err     error
}

// NewMetadataError - MetadataError constructor.
func NewMetadataError(msg string, args ...any) *MetadataError {
	return &MetadataError{message: fmt.Sprintf(msg, args...), err: nil}
}

// NewMetadataErrorWrapper - MetadataError constructor for wrapper of another error.
func NewMetadataErrorWrapper(err error, msg string, args ...any) *MetadataError {
	return &MetadataError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (me *MetadataError) Error() string {
	if me.err != nil {
		return fmt.Errorf("%s: %w", me.message, me.err).Error()
	}

	return me.message
}

// Unwrap - return the wrapped error, if any.
func (me *MetadataError) Unwrap() error {
	return me.err
}
