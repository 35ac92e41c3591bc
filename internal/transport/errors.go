// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeTimeout: a deadline elapsed before the call completed.
	ErrTypeTimeout
	// ErrTypeAPI: the backend answered with a non-success status.
	ErrTypeAPI
	// ErrTypeNetwork: DNS, refused connection, reset, TLS and similar.
	ErrTypeNetwork
	// ErrTypeDecode: the response body was malformed or cut short.
	ErrTypeDecode
	// ErrTypeCanceled: the caller cancelled the context.
	ErrTypeCanceled
)

// String returns the name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeAPI:
		return "api"
	case ErrTypeNetwork:
		return "network"
	case ErrTypeDecode:
		return "decode"
	case ErrTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the transport client or the stream
// consumer built on it.
type ClientError struct {
	Type    ErrorType
	Message string

	// StatusCode and Detail are set for ErrTypeAPI.
	StatusCode int
	Detail     string

	// URL of the request that failed, when known.
	URL string

	Cause error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type so errors.Is(err, ErrTimeout) works for
// any timeout, not only the sentinel value.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t == e || (t.Message == "" && t.Type == e.Type)
}

// Sentinel errors for easy checking.
var (
	ErrTimeout  = &ClientError{Type: ErrTypeTimeout}
	ErrAPI      = &ClientError{Type: ErrTypeAPI}
	ErrNetwork  = &ClientError{Type: ErrTypeNetwork}
	ErrDecode   = &ClientError{Type: ErrTypeDecode}
	ErrCanceled = &ClientError{Type: ErrTypeCanceled}
)

// NewAPIError builds the error for a non-success response. detail may be
// empty, in which case the status text is used.
func NewAPIError(url string, status int, statusText, detail string) *ClientError {
	shown := strings.TrimSpace(detail)
	if shown == "" {
		shown = statusText
	}
	return &ClientError{
		Type:       ErrTypeAPI,
		Message:    fmt.Sprintf("API Error %d: %s", status, shown),
		StatusCode: status,
		Detail:     detail,
		URL:        url,
	}
}

// NewDecodeError wraps a failure to decode the response stream.
func NewDecodeError(url string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeDecode, Message: "failed to decode response stream", URL: url, Cause: cause}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classify returns err as a *ClientError, assigning a type to plain errors
// coming out of net/http or a body read. nil stays nil.
func Classify(url string, err error) *ClientError {
	if err == nil {
		return nil
	}

	var ce *ClientError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", URL: url, Cause: err}
	case errors.Is(err, context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", URL: url, Cause: err}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return NewDecodeError(url, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", URL: url, Cause: err}
	}

	return &ClientError{Type: ErrTypeNetwork, Message: "request failed", URL: url, Cause: err}
}

// typeOf returns the ErrorType of err, or ErrTypeUnknown.
func typeOf(err error) ErrorType {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrTypeUnknown
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return typeOf(err) == ErrTypeTimeout }

// IsAPI checks if an error is a non-success status from the backend.
func IsAPI(err error) bool { return typeOf(err) == ErrTypeAPI }

// IsNetwork checks if an error is a transport-level failure.
func IsNetwork(err error) bool { return typeOf(err) == ErrTypeNetwork }

// IsDecode checks if an error came from decoding the response stream.
func IsDecode(err error) bool { return typeOf(err) == ErrTypeDecode }

// IsCanceled checks if an error is a caller cancellation.
func IsCanceled(err error) bool { return typeOf(err) == ErrTypeCanceled }
