// Package store persists account records, the active-session slot the
// consuming application reads, and the companion client-registration
// records it needs for its own refreshes.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no record exists for the requested account.
var ErrNotFound = errors.New("account not found")

// AccountRecord is one stored account. refreshToken, clientId and
// clientSecret must be present together or absent together; a partial set
// is rejected at save time rather than surfacing as a refresh failure later.
type AccountRecord struct {
	AccountName      string    `json:"accountName"`
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	ExpiresAt        time.Time `json:"expiresAt"`
	ClientID         string    `json:"clientId,omitempty"`
	ClientSecret     string    `json:"clientSecret,omitempty"`
	Region           string    `json:"region"`
	AuthProvider     string    `json:"authProvider"`
	DeviceIdentifier string    `json:"deviceIdentifier,omitempty"`
}

// CanRefresh reports whether the record carries everything a refresh-token
// exchange needs.
func (r *AccountRecord) CanRefresh() bool {
	return r.RefreshToken != "" && r.ClientID != "" && r.ClientSecret != ""
}

// ClientIDHash is the stable hash keying the companion registration record
// and identifying this account's session in the active-session slot.
func (r *AccountRecord) ClientIDHash() string {
	if r.ClientID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.ClientID))
	return hex.EncodeToString(sum[:])
}

// Validate enforces the record invariants.
func (r *AccountRecord) Validate() error {
	if r.AccountName == "" {
		return fmt.Errorf("account record has no name")
	}
	hasAny := r.RefreshToken != "" || r.ClientID != "" || r.ClientSecret != ""
	if hasAny && !r.CanRefresh() {
		return fmt.Errorf("account %q has a partial refresh credential set: refreshToken, clientId and clientSecret must be present together", r.AccountName)
	}
	return nil
}

// ActiveSession is the single credential slot the consuming application
// reads. Exactly one account is materialized into it at a time.
type ActiveSession struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ClientIDHash string    `json:"clientIdHash,omitempty"`
	AuthMethod   string    `json:"authMethod"`
	Provider     string    `json:"provider"`
	Region       string    `json:"region"`
}

// ClientRegistration is the companion record, keyed by ClientIDHash, that
// lets the consuming application run its own refreshes later.
type ClientRegistration struct {
	ClientID     string    `json:"clientId"`
	ClientSecret string    `json:"clientSecret"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
