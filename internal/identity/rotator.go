// Package identity manages the device identifier the broker sees. Each
// account keeps the identifier it first used so the broker never watches
// one account's identifier change between refreshes, while different
// accounts never share one.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/accshift/accshift/internal/store"
)

// Rotator owns the process-wide device-identity file.
type Rotator struct {
	path string
}

// NewRotator returns a rotator persisting the identity at path.
func NewRotator(path string) *Rotator {
	return &Rotator{path: path}
}

// NewIdentifier generates a fresh 64-hex-character device identifier.
func NewIdentifier() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// IdentifierFor resolves the identifier a switch to rec must use. An
// already-assigned identifier is returned unchanged; otherwise a fresh one
// is generated and assigned to the record. The caller persists the record;
// Activate makes the identifier current.
func (r *Rotator) IdentifierFor(rec *store.AccountRecord) string {
	if rec.DeviceIdentifier != "" {
		return rec.DeviceIdentifier
	}
	rec.DeviceIdentifier = NewIdentifier()
	log.Printf("🆔 Assigned device identifier %s... to %s", rec.DeviceIdentifier[:8], rec.AccountName)
	return rec.DeviceIdentifier
}

// Activate persists id as the process-wide device identity.
func (r *Rotator) Activate(id string) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create device identity dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp device identity: %w", err)
	}
	if _, err := tmp.WriteString(id + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write device identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close device identity: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace device identity: %w", err)
	}
	return nil
}

// Current reads the active device identity, or "" when none is set.
func (r *Rotator) Current() string {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// RotateGlobal unconditionally activates a fresh identifier bound to no
// account, for one-off operations that must not be attributable.
func (r *Rotator) RotateGlobal() (string, error) {
	id := NewIdentifier()
	if err := r.Activate(id); err != nil {
		return "", err
	}
	log.Printf("🔄 Rotated global device identifier to %s...", id[:8])
	return id, nil
}
