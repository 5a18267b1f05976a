// Package apierr defines the error taxonomy shared by all external-call sites.
//
// TransportError: network/HTTP-level failure, retryable.
// ProtocolError: well-formed response carrying an application-level error, not retried.
// DataError: malformed or missing fields in one record, skip the record.
// ErrBudgetExceeded: soft signal, causes admission denial rather than failure.
package apierr

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded signals that a service's call quota is exhausted.
var ErrBudgetExceeded = errors.New("api budget exceeded")

// TransportError is a network- or HTTP-level failure. Retryable.
type TransportError struct {
	Status int // HTTP status code, 0 for network errors
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is an application-level error carried in a well-formed
// response (e.g. a GraphQL errors array). Not retried; the message surfaces.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Message)
}

// DataError marks one malformed record. The record is skipped and the page
// continues.
type DataError struct {
	Field string
	Err   error
}

func (e *DataError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("data error in field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("data error: %v", e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// IsRetryable reports whether err should be retried by the transport layer.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
