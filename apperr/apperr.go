// Package apperr classifies checkout errors and maps them to HTTP statuses.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

// Kind is the classification of an error at the handler boundary.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConfiguration  Kind = "configuration"
	KindSignature      Kind = "signature"
	KindUpstream       Kind = "upstream"
	KindReconciliation Kind = "reconciliation"
	KindTimeout        Kind = "timeout"
	KindCanceled       Kind = "canceled"
	KindInternal       Kind = "internal"
)

// Error carries a kind, a message that is safe to show to the client and an
// optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a client input error with a user-facing message.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Configuration returns a server misconfiguration error.
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// Signature returns an inbound signature mismatch error.
func Signature(message string) *Error {
	return &Error{Kind: KindSignature, Message: message}
}

// Upstream wraps a failed call to a payment provider.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Reconciliation wraps a failed hold completion.
func Reconciliation(message string, err error) *Error {
	return &Error{Kind: KindReconciliation, Message: message, Err: err}
}

var kindToStatus = map[Kind]int{
	KindValidation:     http.StatusBadRequest,
	KindConfiguration:  http.StatusInternalServerError,
	KindSignature:      http.StatusBadRequest,
	KindUpstream:       http.StatusBadGateway,
	KindReconciliation: http.StatusInternalServerError,
	KindTimeout:        http.StatusGatewayTimeout,
	KindCanceled:       http.StatusRequestTimeout,
	KindInternal:       http.StatusInternalServerError,
}

// KindOf returns the classification of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// SnippetLimit bounds how much of an upstream body is echoed into errors.
const SnippetLimit = 180

// Snippet returns the first SnippetLimit characters of body.
func Snippet(body []byte) string {
	r := []rune(string(body))
	if len(r) > SnippetLimit {
		r = r[:SnippetLimit]
	}
	return string(r)
}
