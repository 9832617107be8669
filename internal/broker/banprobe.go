package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// SuspensionStatus is the tri-state outcome of a probe. Unknown is distinct
// from Cleared: only an explicit Cleared may unset a previously recorded
// suspension downstream.
type SuspensionStatus int

const (
	SuspensionUnknown SuspensionStatus = iota
	SuspensionCleared
	Suspended
)

func (s SuspensionStatus) String() string {
	switch s {
	case SuspensionCleared:
		return "cleared"
	case Suspended:
		return "suspended"
	}
	return "unknown"
}

// UsageFigures is the usage portion of a successful probe.
type UsageFigures struct {
	CurrentUsage int
	UsageLimit   int
}

// ProbeResult is what one probe call learned. Usage is nil unless the
// broker returned figures.
type ProbeResult struct {
	Status SuspensionStatus
	Reason string
	Usage  *UsageFigures
}

// Probe asks the broker's usage-limits endpoint whether an account is
// suspended. A successful token refresh says nothing about suspension, so
// this is the only authoritative health signal.
type Probe struct {
	httpClient *http.Client
	domain     string

	// URL, when set, is used verbatim instead of the region-derived
	// endpoint. Tests point it at an httptest server.
	URL string
}

// NewProbe creates a ban probe for the given broker domain.
func NewProbe(domain string, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Probe{
		httpClient: &http.Client{Timeout: timeout},
		domain:     domain,
	}
}

type usageLimitsResponse struct {
	UsageBreakdownList []struct {
		CurrentUsage int `json:"currentUsage"`
		UsageLimit   int `json:"usageLimit"`
	} `json:"usageBreakdownList"`
}

type forbiddenEnvelope struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (p *Probe) usageURL(region string) string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("https://codewhisperer.%s.%s/getUsageLimits", region, p.domain)
}

// CheckSuspended probes the account behind accessToken.
// 200 parses usage and means not suspended; 403 with a recognized reason
// means suspended; every other outcome is Unknown rather than an error, so
// a flaky probe can never lock an otherwise healthy account out.
func (p *Probe) CheckSuspended(ctx context.Context, accessToken, region string) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.usageURL(region), nil)
	if err != nil {
		return nil, &Error{Code: CodeUnknown, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, transportError(err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var usage usageLimitsResponse
		if err := json.Unmarshal(body, &usage); err != nil || len(usage.UsageBreakdownList) == 0 {
			// 200 without a parseable payload still proves the account is
			// allowed in; report cleared without figures.
			return &ProbeResult{Status: SuspensionCleared}, nil
		}
		bd := usage.UsageBreakdownList[0]
		return &ProbeResult{
			Status: SuspensionCleared,
			Usage:  &UsageFigures{CurrentUsage: bd.CurrentUsage, UsageLimit: bd.UsageLimit},
		}, nil

	case http.StatusForbidden:
		var envelope forbiddenEnvelope
		json.Unmarshal(body, &envelope)

		if reason := suspensionReason(envelope); reason != "" {
			log.Printf("🚫 Probe reports suspension: %s", reason)
			return &ProbeResult{Status: Suspended, Reason: reason}, nil
		}
		// 403 without a suspension marker could be scoping or a stale
		// token; not enough to declare a ban.
		return &ProbeResult{Status: SuspensionUnknown, Reason: envelope.Message}, nil

	default:
		log.Printf("⚠️ Probe returned %d, treating as unknown", resp.StatusCode)
		return &ProbeResult{Status: SuspensionUnknown}, nil
	}
}

// suspensionReason extracts the suspension marker from a 403 envelope, or
// "" when the response does not indicate a suspension.
func suspensionReason(envelope forbiddenEnvelope) string {
	upper := strings.ToUpper(envelope.Reason)
	if strings.Contains(upper, "SUSPENDED") || strings.Contains(upper, "BANNED") {
		return envelope.Reason
	}
	if LooksLikeBan(CodeAccessDenied, envelope.Message) {
		if envelope.Reason != "" {
			return envelope.Reason
		}
		return envelope.Message
	}
	return ""
}
