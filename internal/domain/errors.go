package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error for transport mapping and batch
// error handling
type ErrorKind string

const (
	KindInvalidInput         ErrorKind = "invalid_input"
	KindNotFound             ErrorKind = "not_found"
	KindConflictingState     ErrorKind = "conflicting_state"
	KindIdempotencyReplay    ErrorKind = "idempotency_replay"
	KindBenchmarkUnavailable ErrorKind = "benchmark_unavailable"
	KindFLDGExhausted        ErrorKind = "fldg_exhausted"
	KindTransient            ErrorKind = "transient"
	KindFatal                ErrorKind = "fatal"
)

// Domain errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternalError        = errors.New("internal error")
	ErrAccountNotFound      = errors.New("loan account not found")
	ErrScheduleNotFound     = errors.New("repayment schedule not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrAccountNotOpen       = errors.New("loan account is not active")
	ErrAccountNotClosed     = errors.New("loan account has outstanding dues")
	ErrAlreadyClosed        = errors.New("loan account already closed")
	ErrAlreadyWrittenOff    = errors.New("loan account already written off")
	ErrDuplicateAccrual     = errors.New("accrual already exists for the date")
	ErrBenchmarkUnavailable = errors.New("benchmark rate unavailable")
	ErrFLDGExhausted        = errors.New("fldg cover exhausted")
	ErrParticipationInvalid = errors.New("participation shares must sum to 100")
	ErrRestructureNotFound  = errors.New("restructure request not found")
	ErrRestructureDecided   = errors.New("restructure request already decided")
)

// Error carries an ErrorKind alongside a message and an optional cause
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a new Error with the given kind and message
func E(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the ErrorKind from an error chain. Known sentinels map to
// their natural kinds; anything unclassified is reported as transient so
// batch processing retries rather than aborts.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrScheduleNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrRestructureNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrParticipationInvalid):
		return KindInvalidInput
	case errors.Is(err, ErrAccountNotOpen),
		errors.Is(err, ErrAccountNotClosed),
		errors.Is(err, ErrAlreadyClosed),
		errors.Is(err, ErrAlreadyWrittenOff),
		errors.Is(err, ErrDuplicateAccrual),
		errors.Is(err, ErrRestructureDecided):
		return KindConflictingState
	case errors.Is(err, ErrBenchmarkUnavailable):
		return KindBenchmarkUnavailable
	case errors.Is(err, ErrFLDGExhausted):
		return KindFLDGExhausted
	}
	return KindTransient
}
