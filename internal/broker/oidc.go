package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/accshift/accshift/internal/util"
)

const defaultRequestTimeout = 10 * time.Second

// Client performs refresh-token exchanges against the broker's OIDC
// endpoint and classifies every failure into the closed taxonomy.
type Client struct {
	httpClient *http.Client
	domain     string

	// TokenURL, when set, is used verbatim instead of the region-derived
	// endpoint. Tests point it at an httptest server.
	TokenURL string
}

// NewClient creates an OIDC client for the given broker domain
// (e.g. "amazonaws.com" yields https://oidc.<region>.amazonaws.com).
func NewClient(domain string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		domain:     domain,
	}
}

// RefreshRequest carries the credentials for one token exchange. All three
// credential fields are required; Refresh rejects partial sets before any
// network I/O.
type RefreshRequest struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
	Region       string
}

// RefreshResult is a successful token exchange. RefreshToken is only set
// when the broker rotated it.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type tokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	GrantType    string `json:"grantType"`
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

func (c *Client) tokenURL(region string) string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return fmt.Sprintf("https://oidc.%s.%s/token", region, c.domain)
}

// Refresh exchanges a refresh token for a fresh access token.
// Failures come back as *Error; the concrete error value is never a raw
// transport or decoding error.
func (c *Client) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResult, error) {
	if req.RefreshToken == "" || req.ClientID == "" || req.ClientSecret == "" {
		return nil, &Error{
			Code:    CodeMissingCredentials,
			Message: "refreshToken, clientId and clientSecret are all required",
		}
	}

	payload, err := json.Marshal(tokenRequest{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		GrantType:    "refresh_token",
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return nil, &Error{Code: CodeUnknown, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(req.Region), bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Code: CodeUnknown, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		json.Unmarshal(body, &envelope) // best effort, classify below either way

		message := envelope.ErrorDescription
		if message == "" {
			message = envelope.Message
		}
		berr := classifyEnvelope(resp.StatusCode, envelope.Error, message)
		log.Printf("❌ Token refresh rejected (%d): %s", resp.StatusCode, berr)
		return nil, berr
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &Error{Code: CodeUnknown, Message: fmt.Sprintf("malformed token response: %v", err), HTTPStatus: resp.StatusCode}
	}
	if token.AccessToken == "" {
		return nil, &Error{Code: CodeUnknown, Message: "token response missing accessToken", HTTPStatus: resp.StatusCode}
	}

	log.Printf("✅ Refreshed token %s (expires in %ds)", util.MaskToken(token.AccessToken), token.ExpiresIn)

	return &RefreshResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    time.Duration(token.ExpiresIn) * time.Second,
	}, nil
}

// transportError classifies client-side HTTP failures. Deadline expiry
// (either the client timeout or the caller's context) counts as a timeout;
// everything else is a generic network error. Both are transient.
func transportError(err error) *Error {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	if errors.As(err, &t) && t.Timeout() {
		return &Error{Code: CodeTimeout, Message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Message: err.Error()}
	}
	return &Error{Code: CodeNetworkError, Message: err.Error()}
}
