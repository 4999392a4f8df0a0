// Package marketplace holds what the marketplace adapters share: the
// publish result, listing validation and the retry policy.
package marketplace

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed marketplace operation.
type ErrorKind string

const (
	KindAuthFailed ErrorKind = "auth_failed"
	KindValidation ErrorKind = "validation_failed"
	KindConnection ErrorKind = "connection_error"
	KindUnexpected ErrorKind = "unexpected_error"
	KindRejected   ErrorKind = "rejected"
)

// Result is the outcome of one marketplace operation. Expected failures are
// reported here instead of as Go errors.
type Result struct {
	Success  bool      `json:"success"`
	Kind     ErrorKind `json:"error,omitempty"`
	Message  string    `json:"message"`
	Handle   string    `json:"handle,omitempty"`
	Status   string    `json:"status,omitempty"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Accepted builds a successful result.
func Accepted(handle, status, message string) Result {
	return Result{Success: true, Handle: handle, Status: status, Message: message}
}

// Failure builds a failed result of the given kind.
func Failure(kind ErrorKind, message string, errs ...string) Result {
	return Result{Kind: kind, Message: message, Errors: errs}
}

// ErrAuthFailed marks errors caused by missing or rejected credentials.
var ErrAuthFailed = errors.New("authentication failed")

// RejectedError is returned when the marketplace answered but refused the
// request.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "rejected by marketplace: " + e.Reason
}

// Rejected returns a RejectedError with the given reason.
func Rejected(format string, args ...any) error {
	return &RejectedError{Reason: fmt.Sprintf(format, args...)}
}

// FromError classifies err into a failed Result. message prefixes the
// human readable text.
func FromError(message string, err error) Result {
	var rejected *RejectedError
	switch {
	case errors.As(err, &rejected):
		return Failure(KindRejected, message+": "+rejected.Reason, rejected.Reason)
	case errors.Is(err, ErrAuthFailed):
		return Failure(KindAuthFailed, message+": "+err.Error(), err.Error())
	case IsTransient(err):
		return Failure(KindConnection, message+": "+err.Error(), err.Error())
	default:
		return Failure(KindUnexpected, message+": "+err.Error(), err.Error())
	}
}
