package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ValidationError rejects malformed input before any network call is made.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e NotFoundError) Error() string {
	switch {
	case e.Resource != "" && e.ID != "":
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	case e.Resource != "":
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return "not found"
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ConflictError means the request clashed with current state (the room is
// taken, or the booking is not in a state that allows the transition).
// Callers may retry; the core never retries on their behalf.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	}
	return "conflict"
}

func (e ConflictError) Unwrap() error { return e.Err }

// UpstreamError wraps a failed call to a collaborator service. Status is the
// collaborator's HTTP status when one was received.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e UpstreamError) Error() string {
	msg := e.Service
	if msg == "" {
		msg = "upstream"
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s returned %d", msg, e.Status)
	} else {
		msg += " unreachable"
	}
	if e.Body != "" {
		msg += ": " + e.Body
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e UpstreamError) Unwrap() error { return e.Err }

// HTTPStatus is the status to propagate to our own caller.
func (e UpstreamError) HTTPStatus() int {
	if e.Status >= 400 {
		return e.Status
	}
	if e.Status == 0 && e.Err != nil && IsTimeout(e.Err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// PaymentMismatchError aborts a booking when the processor captured a
// different amount than the one recomputed locally.
type PaymentMismatchError struct {
	OrderID  string
	Expected string
	Captured string
}

func (e PaymentMismatchError) Error() string {
	return fmt.Sprintf("payment mismatch for order %s: expected %s, captured %s", e.OrderID, e.Expected, e.Captured)
}

// ConfigurationError is a missing credential, table or index.
type ConfigurationError struct {
	Key string
	Msg string
}

func (e ConfigurationError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("configuration: %s: %s", e.Key, e.Msg)
	}
	return fmt.Sprintf("configuration: %s is not set", e.Key)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target UpstreamError
	return errors.As(err, &target)
}

func IsPaymentMismatch(err error) bool {
	var target PaymentMismatchError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target ConfigurationError
	return errors.As(err, &target)
}

type timeout interface{ Timeout() bool }

// IsTimeout reports deadline expiry, including net errors that say so.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var t timeout
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
