package switcher

import (
	"time"

	"github.com/accshift/accshift/internal/usage"
)

// Result is the structured outcome of a switch or refresh. Callers branch
// on the flags to render "banned" vs "needs re-login" vs "try again later"
// distinctly; they never see a raw error across this boundary.
type Result struct {
	Success              bool   `json:"success"`
	AccountName          string `json:"accountName"`
	Error                string `json:"error,omitempty"`
	ErrorMessage         string `json:"errorMessage,omitempty"`
	IsBanned             bool   `json:"isBanned,omitempty"`
	IsInvalidCredentials bool   `json:"isInvalidCredentials,omitempty"`
	Warning              string `json:"warning,omitempty"`
}

// Health is the outcome of a health check.
type Health struct {
	AccountName      string          `json:"accountName"`
	Suspended        bool            `json:"suspended"`
	SuspensionReason string          `json:"suspensionReason,omitempty"`
	Usage            *usage.Snapshot `json:"usage,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorMessage     string          `json:"errorMessage,omitempty"`
}

// AccountInfo is one row of the account listing.
type AccountInfo struct {
	AccountName     string          `json:"accountName"`
	Region          string          `json:"region"`
	AuthProvider    string          `json:"authProvider"`
	ExpiresAt       time.Time       `json:"expiresAt"`
	Expired         bool            `json:"expired"`
	Active          bool            `json:"active"`
	CanRefresh      bool            `json:"canRefresh"`
	ActivationCount int64           `json:"activationCount"`
	Usage           *usage.Snapshot `json:"usage,omitempty"`
}
