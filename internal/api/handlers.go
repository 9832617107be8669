// Package api exposes the account operations over a local HTTP surface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/accshift/accshift/internal/switcher"
	"github.com/accshift/accshift/internal/version"
	"github.com/go-chi/chi/v5"
)

// ListAccountsHandler returns all accounts as JSON, active-first.
func ListAccountsHandler(sw *switcher.Switcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts := sw.ListAccounts()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"accounts": accounts,
			"count":    len(accounts),
		})
	}
}

// SwitchHandler activates the named account.
// POST /api/accounts/{name}/switch
func SwitchHandler(sw *switcher.Switcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		result := sw.SwitchTo(r.Context(), name)
		writeJSON(w, statusFor(result), result)
	}
}

// RefreshAccountHandler refreshes one account's tokens without activation.
// POST /api/accounts/{name}/refresh
func RefreshAccountHandler(sw *switcher.Switcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		result := sw.Refresh(r.Context(), name)
		writeJSON(w, statusFor(result), result)
	}
}

// RefreshAllHandler triggers a sequential refresh of every eligible account.
// POST /api/refresh
func RefreshAllHandler(sw *switcher.Switcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := sw.RefreshAll(r.Context())
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"results": results,
			"count":   len(results),
		})
	}
}

// DeleteAccountHandler removes an account and its derived stats. Deleting
// an absent account succeeds.
// DELETE /api/accounts/{name}
func DeleteAccountHandler(sw *switcher.Switcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := sw.Delete(name); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"accountName": name,
		})
	}
}

// HealthHandler probes the named account for suspension and usage.
// GET /api/accounts/{name}/health
func HealthHandler(sw *switcher.Switcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		health := sw.CheckHealth(r.Context(), name)

		status := http.StatusOK
		if health.Error == switcher.ErrNotFound {
			status = http.StatusNotFound
		} else if health.Error != "" {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, health)
	}
}

// RotateIdentityHandler activates a fresh, account-unbound device
// identifier.
// POST /api/identity/rotate
func RotateIdentityHandler(sw *switcher.Switcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sw.RotateIdentity()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":          true,
			"deviceIdentifier": id,
		})
	}
}

// VersionHandler returns version information as JSON.
// GET /api/version
func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    version.Version,
			"commit":     version.Commit,
			"build_time": version.BuildTime,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a structured result onto an HTTP status so plain HTTP
// callers can branch without parsing the body.
func statusFor(result switcher.Result) int {
	switch {
	case result.Success:
		return http.StatusOK
	case result.Error == switcher.ErrNotFound:
		return http.StatusNotFound
	case result.IsBanned:
		return http.StatusForbidden
	case result.IsInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
