package broker

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		errCode string
		message string
		want    Code
	}{
		{name: "invalid grant", status: 400, errCode: "invalid_grant", want: CodeInvalidGrant},
		{name: "access denied", status: 400, errCode: "access_denied", want: CodeAccessDenied},
		{name: "expired token", status: 400, errCode: "expired_token", want: CodeExpiredToken},
		{name: "invalid client", status: 401, errCode: "invalid_client", want: CodeInvalidClient},
		{name: "unauthorized client", status: 400, errCode: "unauthorized_client", want: CodeUnauthorizedClient},
		{name: "invalid request", status: 400, errCode: "invalid_request", want: CodeInvalidRequest},
		{name: "slow down", status: 400, errCode: "slow_down", want: CodeRateLimited},
		{name: "429 without code", status: 429, errCode: "", want: CodeRateLimited},
		{name: "403 without code", status: 403, errCode: "", want: CodeAccessDenied},
		{name: "500 without code", status: 500, errCode: "", want: CodeInternalServerError},
		{name: "unrecognized", status: 400, errCode: "something_else", want: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyEnvelope(tt.status, tt.errCode, tt.message)
			if got.Code != tt.want {
				t.Fatalf("classifyEnvelope(%d, %q) = %s, want %s", tt.status, tt.errCode, got.Code, tt.want)
			}
		})
	}
}

func TestRetryableAndFatal(t *testing.T) {
	retryable := []Code{CodeRateLimited, CodeInternalServerError, CodeNetworkError, CodeTimeout}
	for _, code := range retryable {
		e := &Error{Code: code}
		if !e.Retryable() {
			t.Errorf("%s should be retryable", code)
		}
		if e.Fatal() {
			t.Errorf("%s should not be fatal", code)
		}
	}

	fatal := []Code{CodeInvalidGrant, CodeAccessDenied, CodeExpiredToken, CodeInvalidClient, CodeUnauthorizedClient}
	for _, code := range fatal {
		e := &Error{Code: code}
		if !e.Fatal() {
			t.Errorf("%s should be fatal", code)
		}
		if e.Retryable() {
			t.Errorf("%s should not be retryable", code)
		}
	}

	for _, code := range []Code{CodeInvalidRequest, CodeMissingCredentials, CodeUnknown} {
		e := &Error{Code: code}
		if e.Retryable() || e.Fatal() {
			t.Errorf("%s should be neither retryable nor fatal", code)
		}
	}
}

func TestAsError(t *testing.T) {
	berr := &Error{Code: CodeInvalidGrant, Message: "nope"}
	if got := AsError(fmt.Errorf("wrapped: %w", berr)); got.Code != CodeInvalidGrant {
		t.Fatalf("AsError lost the code: got %s", got.Code)
	}
	if got := AsError(errors.New("plain failure")); got.Code != CodeUnknown {
		t.Fatalf("AsError(plain) = %s, want %s", got.Code, CodeUnknown)
	}
}
