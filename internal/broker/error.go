// Package broker talks to the external identity broker: refresh-token
// exchanges against the OIDC endpoint and the usage/ban probe.
package broker

import (
	"errors"
	"fmt"
)

// Code is the closed classification for broker failures. Every failure the
// broker surfaces maps to exactly one code.
type Code string

const (
	CodeInvalidGrant        Code = "invalid_grant"
	CodeAccessDenied        Code = "access_denied"
	CodeExpiredToken        Code = "expired_token"
	CodeInvalidClient       Code = "invalid_client"
	CodeUnauthorizedClient  Code = "unauthorized_client"
	CodeInvalidRequest      Code = "invalid_request"
	CodeRateLimited         Code = "rate_limited"
	CodeInternalServerError Code = "internal_server_error"
	CodeNetworkError        Code = "network_error"
	CodeTimeout             Code = "timeout"
	CodeMissingCredentials  Code = "missing_credentials"
	CodeUnknown             Code = "unknown"
)

// Error is a classified broker failure.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the failure is worth retrying with backoff.
// Everything else is terminal for the attempt.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeRateLimited, CodeInternalServerError, CodeNetworkError, CodeTimeout:
		return true
	}
	return false
}

// Fatal reports whether the failure means the stored credentials are
// unusable (bad grant or bad client registration, never fixed by retrying).
func (e *Error) Fatal() bool {
	switch e.Code {
	case CodeInvalidGrant, CodeAccessDenied, CodeExpiredToken, CodeInvalidClient, CodeUnauthorizedClient:
		return true
	}
	return false
}

// AsError extracts the classified broker error, wrapping anything else as
// CodeUnknown so callers always see exactly one code.
func AsError(err error) *Error {
	var berr *Error
	if errors.As(err, &berr) {
		return berr
	}
	return &Error{Code: CodeUnknown, Message: err.Error()}
}

// classifyEnvelope maps the broker's error envelope and HTTP status into the
// taxonomy. The envelope's `error` field wins over the status code.
func classifyEnvelope(status int, errCode, message string) *Error {
	e := &Error{Message: message, HTTPStatus: status}

	switch errCode {
	case "invalid_grant":
		e.Code = CodeInvalidGrant
	case "access_denied":
		e.Code = CodeAccessDenied
	case "expired_token":
		e.Code = CodeExpiredToken
	case "invalid_client":
		e.Code = CodeInvalidClient
	case "unauthorized_client":
		e.Code = CodeUnauthorizedClient
	case "invalid_request":
		e.Code = CodeInvalidRequest
	case "slow_down", "throttling_exception", "too_many_requests":
		e.Code = CodeRateLimited
	case "internal_server_error", "internal_failure":
		e.Code = CodeInternalServerError
	default:
		switch {
		case status == 429:
			e.Code = CodeRateLimited
		case status == 403:
			e.Code = CodeAccessDenied
		case status >= 500:
			e.Code = CodeInternalServerError
		default:
			e.Code = CodeUnknown
		}
	}
	if e.Message == "" {
		e.Message = errCode
	}
	return e
}
