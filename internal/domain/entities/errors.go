package entities

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidTolerance = errors.New("slippage tolerance must be 0-10000 basis points")
	ErrInvalidMaxHops   = errors.New("max hops must be between 1 and 255")
	ErrMissingRecipient = errors.New("recipient address is required")
	ErrSameToken        = errors.New("tokenIn and tokenOut must differ")
)

// TransportError reports a network call that could not complete. It is the
// only error class the agent retries.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

// NewTransportError wraps err, marking it as a timeout when the cause is a
// deadline expiry or a net.Error that reports one.
func NewTransportError(op string, err error) *TransportError {
	te := &TransportError{Op: op, Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		te.Timeout = true
	}
	return te
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transport error: %s: timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidRouteError is a precondition violation: composing a trade from a
// route that has no adapters.
type InvalidRouteError struct {
	Reason string
}

func (e *InvalidRouteError) Error() string {
	return "invalid route: " + e.Reason
}

// EncodingError reports a value that does not fit the router's declared call layout.
type EncodingError struct {
	Field  string
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	msg := "encoding error"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// DecodingError reports bytes returned by, or destined for, the router that do
// not match its declared layout.
type DecodingError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodingError) Error() string {
	msg := "decoding error"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth re-running the whole pipeline for.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsTimeout reports whether err is a TransportError caused by a deadline.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}
