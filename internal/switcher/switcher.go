// Package switcher orchestrates account switching: refresh verification,
// ban probing, identity rotation and atomic activation of the session slot.
package switcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/accshift/accshift/internal/broker"
	"github.com/accshift/accshift/internal/db"
	"github.com/accshift/accshift/internal/identity"
	"github.com/accshift/accshift/internal/store"
	"github.com/accshift/accshift/internal/usage"
	"github.com/accshift/accshift/internal/util"
	"gorm.io/gorm"
)

// Terminal result codes outside the broker taxonomy.
const (
	ErrNotFound     = "not_found"
	ErrStorageError = "storage_error"
)

// Switch event outcomes recorded in the stats database.
const (
	outcomeActivated = "activated"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// Switcher owns all the state a switch mutates. Nothing here is a package
// global: tests build isolated instances over temp directories.
type Switcher struct {
	mu      sync.Mutex
	store   *store.Store
	oidc    *broker.Client
	probe   *broker.Probe
	rotator *identity.Rotator
	cache   *usage.Cache
	statsDB *gorm.DB

	// graceWindow is how long past expiresAt a stored token may still be
	// activated when the refresh fails transiently.
	graceWindow time.Duration
}

// New wires a switcher from its parts.
func New(st *store.Store, oidc *broker.Client, probe *broker.Probe, rotator *identity.Rotator, cache *usage.Cache, statsDB *gorm.DB, graceWindow time.Duration) *Switcher {
	return &Switcher{
		store:       st,
		oidc:        oidc,
		probe:       probe,
		rotator:     rotator,
		cache:       cache,
		statsDB:     statsDB,
		graceWindow: graceWindow,
	}
}

// SwitchTo makes name the active account. The operation is all-or-nothing
// in observable state: any abort leaves the active session and the device
// identity exactly as they were.
func (s *Switcher) SwitchTo(ctx context.Context, name string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevActive := s.store.ActiveAccountName()

	rec, err := s.store.Get(name)
	if errors.Is(err, store.ErrNotFound) {
		return s.fail(name, ErrNotFound, fmt.Sprintf("no account named %q", name))
	}
	if err != nil {
		return s.fail(name, ErrStorageError, err.Error())
	}

	var warning string

	if !rec.CanRefresh() {
		// No refresh credentials on file: nothing to verify, activate the
		// stored tokens as-is.
		warning = "account has no refresh credentials; activating stored tokens unverified"
		log.Printf("⚠️ %s: %s", name, warning)
	} else {
		result, ok := s.verify(ctx, rec)
		if !ok {
			return result
		}
		warning = result.Warning
	}

	// Rotate in this account's device identifier. Stability matters: the
	// broker must never see one account's identifier change, so an
	// already-assigned identifier is reused verbatim.
	assigned := rec.DeviceIdentifier == ""
	id := s.rotator.IdentifierFor(rec)
	if assigned {
		if err := s.store.Save(rec); err != nil {
			return s.fail(name, ErrStorageError, err.Error())
		}
	}
	prevID := s.rotator.Current()
	if err := s.rotator.Activate(id); err != nil {
		return s.fail(name, ErrStorageError, err.Error())
	}

	if err := s.store.WriteActiveSession(materialize(rec)); err != nil {
		// Roll the device identity back: an aborted switch must leave both
		// the session slot and the identity exactly as they were.
		if rerr := s.rotator.Activate(prevID); rerr != nil {
			log.Printf("⚠️ Failed to restore device identifier after aborted switch to %s: %v", name, rerr)
		}
		return s.fail(name, ErrStorageError, err.Error())
	}

	if err := db.RecordActivation(s.statsDB, name); err != nil {
		log.Printf("⚠️ Failed to record activation for %s: %v", name, err)
	}
	s.recordEvent(name, outcomeActivated, "")

	if prevActive != "" && prevActive != name {
		s.cache.Invalidate(prevActive)
	}

	log.Printf("✅ Switched active session to %s (token %s)", name, util.MaskToken(rec.AccessToken))
	return Result{Success: true, AccountName: name, Warning: warning}
}

// verify refreshes rec's tokens and probes for suspension. On success the
// refreshed fields are already persisted. Returns (result, false) when the
// switch must abort; (warning-only result, true) to proceed.
func (s *Switcher) verify(ctx context.Context, rec *store.AccountRecord) (Result, bool) {
	name := rec.AccountName

	res, err := s.oidc.Refresh(ctx, broker.RefreshRequest{
		RefreshToken: rec.RefreshToken,
		ClientID:     rec.ClientID,
		ClientSecret: rec.ClientSecret,
		Region:       rec.Region,
	})
	if err != nil {
		berr := broker.AsError(err)
		s.recordError(name, berr.Message)

		if berr.Retryable() {
			// Transient: the stored token may still be usable. Fall back to
			// it within the hard-invalidation grace window, otherwise abort.
			if time.Now().Before(rec.ExpiresAt.Add(s.graceWindow)) {
				warning := fmt.Sprintf("refresh failed transiently (%s); reusing stored token", berr.Code)
				log.Printf("⚠️ %s: %s", name, warning)
				return Result{AccountName: name, Warning: warning}, true
			}
			return s.fail(name, string(berr.Code), berr.Message), false
		}

		banned := broker.LooksLikeBan(berr.Code, berr.Message)
		result := Result{
			Success:              false,
			AccountName:          name,
			Error:                string(berr.Code),
			ErrorMessage:         berr.Message,
			IsBanned:             banned,
			IsInvalidCredentials: berr.Fatal() && !banned,
		}
		s.recordEvent(name, outcomeRejected, string(berr.Code))
		log.Printf("❌ %s is unusable (%s), not activating", name, berr.Code)
		return result, false
	}

	applyRefresh(rec, res)

	// Persist before probing: a crash between here and activation must not
	// lose the rotated refresh token.
	if err := s.store.Save(rec); err != nil {
		return s.fail(name, ErrStorageError, err.Error()), false
	}

	probe, err := s.probe.CheckSuspended(ctx, rec.AccessToken, rec.Region)
	if err != nil {
		// A refresh just succeeded; an unreachable probe is treated as
		// unknown rather than blocking the switch.
		log.Printf("⚠️ Ban probe for %s failed, treating as unknown: %v", name, err)
		probe = &broker.ProbeResult{Status: broker.SuspensionUnknown}
	}

	snap := s.recordProbe(name, probe)

	if snap.Suspended {
		s.recordEvent(name, outcomeRejected, string(broker.CodeAccessDenied))
		log.Printf("🚫 %s is suspended (%s), not activating", name, snap.SuspensionReason)
		return Result{
			Success:      false,
			AccountName:  name,
			Error:        string(broker.CodeAccessDenied),
			ErrorMessage: fmt.Sprintf("account is suspended: %s", snap.SuspensionReason),
			IsBanned:     true,
		}, false
	}

	return Result{AccountName: name}, true
}

// Refresh refreshes name's tokens and persists them without touching the
// active session.
func (s *Switcher) Refresh(ctx context.Context, name string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx, name)
}

func (s *Switcher) refreshLocked(ctx context.Context, name string) Result {
	rec, err := s.store.Get(name)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Success: false, AccountName: name, Error: ErrNotFound, ErrorMessage: fmt.Sprintf("no account named %q", name)}
	}
	if err != nil {
		return Result{Success: false, AccountName: name, Error: ErrStorageError, ErrorMessage: err.Error()}
	}

	res, err := s.oidc.Refresh(ctx, broker.RefreshRequest{
		RefreshToken: rec.RefreshToken,
		ClientID:     rec.ClientID,
		ClientSecret: rec.ClientSecret,
		Region:       rec.Region,
	})
	if err != nil {
		berr := broker.AsError(err)
		banned := broker.LooksLikeBan(berr.Code, berr.Message)
		s.recordError(name, berr.Message)
		return Result{
			Success:              false,
			AccountName:          name,
			Error:                string(berr.Code),
			ErrorMessage:         berr.Message,
			IsBanned:             banned,
			IsInvalidCredentials: berr.Fatal() && !banned,
		}
	}

	applyRefresh(rec, res)
	if err := s.store.Save(rec); err != nil {
		return Result{Success: false, AccountName: name, Error: ErrStorageError, ErrorMessage: err.Error()}
	}

	// If this account currently occupies the session slot, keep the slot's
	// tokens in sync so the consuming application sees the fresh ones.
	if s.store.ActiveAccountName() == name {
		if err := s.store.WriteActiveSession(materialize(rec)); err != nil {
			return Result{Success: false, AccountName: name, Error: ErrStorageError, ErrorMessage: err.Error()}
		}
	}

	return Result{Success: true, AccountName: name}
}

// RefreshAll refreshes every refresh-eligible account sequentially and
// reports a per-account outcome. Ineligible accounts are skipped with a
// warning, not an error.
func (s *Switcher) RefreshAll(ctx context.Context) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []Result
	for _, rec := range s.store.List() {
		if !rec.CanRefresh() {
			results = append(results, Result{
				Success:     true,
				AccountName: rec.AccountName,
				Warning:     "no refresh credentials on file, skipped",
			})
			continue
		}
		results = append(results, s.refreshLocked(ctx, rec.AccountName))
	}
	return results
}

// CheckHealth probes name for suspension and current usage, refreshing the
// access token first when it has expired and can be refreshed.
func (s *Switcher) CheckHealth(ctx context.Context, name string) Health {
	rec, err := s.store.Get(name)
	if errors.Is(err, store.ErrNotFound) {
		return Health{AccountName: name, Error: ErrNotFound, ErrorMessage: fmt.Sprintf("no account named %q", name)}
	}
	if err != nil {
		return Health{AccountName: name, Error: ErrStorageError, ErrorMessage: err.Error()}
	}

	if time.Now().After(rec.ExpiresAt) && rec.CanRefresh() {
		if r := s.Refresh(ctx, name); r.Success {
			rec, err = s.store.Get(name)
			if err != nil {
				return Health{AccountName: name, Error: ErrStorageError, ErrorMessage: err.Error()}
			}
		}
	}

	probe, err := s.probe.CheckSuspended(ctx, rec.AccessToken, rec.Region)
	if err != nil {
		log.Printf("⚠️ Ban probe for %s failed, treating as unknown: %v", name, err)
		probe = &broker.ProbeResult{Status: broker.SuspensionUnknown}
	}

	snap := s.recordProbe(name, probe)

	return Health{
		AccountName:      name,
		Suspended:        snap.Suspended,
		SuspensionReason: snap.SuspensionReason,
		Usage:            &snap,
	}
}

// Delete removes the account record, its derived statistics and its cache
// entry. Deleting an absent account succeeds.
func (s *Switcher) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(name); err != nil {
		return err
	}
	if err := db.PurgeAccount(s.statsDB, name); err != nil {
		return fmt.Errorf("purge stats for %q: %w", name, err)
	}
	s.cache.Drop(name)
	log.Printf("🗑️ Deleted account %s", name)
	return nil
}

// ListAccounts returns all accounts with cached usage and activation stats,
// active-first then lexicographic.
func (s *Switcher) ListAccounts() []AccountInfo {
	active := s.store.ActiveAccountName()

	var infos []AccountInfo
	for _, rec := range s.store.List() {
		info := AccountInfo{
			AccountName:  rec.AccountName,
			Region:       rec.Region,
			AuthProvider: rec.AuthProvider,
			ExpiresAt:    rec.ExpiresAt,
			Expired:      time.Now().After(rec.ExpiresAt),
			Active:       rec.AccountName == active,
			CanRefresh:   rec.CanRefresh(),
		}
		if snap, ok := s.cache.Get(rec.AccountName); ok {
			info.Usage = &snap
		}
		if stat, err := db.GetStat(s.statsDB, rec.AccountName); err == nil && stat != nil {
			info.ActivationCount = stat.ActivationCount
			// The stats row is the durable side of the sticky ban; surface
			// it even when the in-memory cache is cold.
			if info.Usage == nil && stat.Suspended {
				info.Usage = &usage.Snapshot{
					CurrentUsage:     stat.CurrentUsage,
					UsageLimit:       stat.UsageLimit,
					Suspended:        true,
					SuspensionReason: stat.SuspensionReason,
					CapturedAt:       stat.CapturedAt,
					Stale:            true,
				}
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// RotateIdentity activates a fresh device identifier bound to no account.
func (s *Switcher) RotateIdentity() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotator.RotateGlobal()
}

func (s *Switcher) fail(name, code, message string) Result {
	s.recordEvent(name, outcomeFailed, code)
	return Result{Success: false, AccountName: name, Error: code, ErrorMessage: message}
}

// recordProbe folds a probe outcome into the cache and the durable stats
// row. A cold cache (fresh process) is seeded from the stats row first, so
// an ambiguous probe after a restart can never clear a recorded suspension.
func (s *Switcher) recordProbe(name string, probe *broker.ProbeResult) usage.Snapshot {
	if _, ok := s.cache.Get(name); !ok {
		if stat, err := db.GetStat(s.statsDB, name); err == nil && stat != nil && stat.Suspended {
			seed := usage.Snapshot{
				CurrentUsage:     stat.CurrentUsage,
				UsageLimit:       stat.UsageLimit,
				Suspended:        true,
				SuspensionReason: stat.SuspensionReason,
				CapturedAt:       stat.CapturedAt,
				Stale:            true,
			}
			if seed.UsageLimit > 0 {
				seed.Percentage = float64(seed.CurrentUsage) / float64(seed.UsageLimit) * 100
			}
			s.cache.Seed(name, seed)
		}
	}

	snap := s.cache.Put(name, *probe)
	if err := db.RecordUsage(s.statsDB, name, snap.CurrentUsage, snap.UsageLimit, snap.Suspended, snap.SuspensionReason, snap.CapturedAt); err != nil {
		log.Printf("⚠️ Failed to record usage for %s: %v", name, err)
	}
	return snap
}

// recordEvent and recordError write best-effort statistics; failures are
// logged, never surfaced.
func (s *Switcher) recordEvent(name, outcome, code string) {
	if err := db.RecordSwitchEvent(s.statsDB, name, outcome, code); err != nil {
		log.Printf("⚠️ Failed to record switch event for %s: %v", name, err)
	}
}

func (s *Switcher) recordError(name, message string) {
	if err := db.RecordError(s.statsDB, name, util.TruncateLog(message, 512)); err != nil {
		log.Printf("⚠️ Failed to record error for %s: %v", name, err)
	}
}

// applyRefresh folds a successful token exchange into the record. expiresAt
// only ever advances: a shorter-lived replacement token never rolls it back.
func applyRefresh(rec *store.AccountRecord, res *broker.RefreshResult) {
	rec.AccessToken = res.AccessToken
	if res.RefreshToken != "" {
		rec.RefreshToken = res.RefreshToken
	}
	if exp := time.Now().Add(res.ExpiresIn); exp.After(rec.ExpiresAt) {
		rec.ExpiresAt = exp
	}
}

// materialize builds the consuming application's session slot contents from
// an account record.
func materialize(rec *store.AccountRecord) *store.ActiveSession {
	authMethod := "social"
	if rec.ClientID != "" {
		authMethod = "idc"
	}
	return &store.ActiveSession{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
		ClientIDHash: rec.ClientIDHash(),
		AuthMethod:   authMethod,
		Provider:     rec.AuthProvider,
		Region:       rec.Region,
	}
}
