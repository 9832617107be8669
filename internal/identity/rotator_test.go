package identity

import (
	"path/filepath"
	"testing"

	"github.com/accshift/accshift/internal/store"
)

func newTestRotator(t *testing.T) *Rotator {
	t.Helper()
	return NewRotator(filepath.Join(t.TempDir(), "device-id"))
}

func TestIdentifierForStability(t *testing.T) {
	r := newTestRotator(t)
	rec := &store.AccountRecord{AccountName: "alice"}

	first := r.IdentifierFor(rec)
	if first == "" {
		t.Fatal("expected an identifier to be generated")
	}
	if len(first) != 64 {
		t.Fatalf("identifier length = %d, want 64 hex chars", len(first))
	}
	if rec.DeviceIdentifier != first {
		t.Fatal("identifier not assigned to the record")
	}

	// Resolving again must reuse the assigned identifier, never rotate it.
	second := r.IdentifierFor(rec)
	if second != first {
		t.Fatalf("identifier changed across calls: %s vs %s", first, second)
	}
}

func TestIdentifiersDifferAcrossAccounts(t *testing.T) {
	r := newTestRotator(t)
	a := &store.AccountRecord{AccountName: "alice"}
	b := &store.AccountRecord{AccountName: "bob"}
	if r.IdentifierFor(a) == r.IdentifierFor(b) {
		t.Fatal("two accounts received the same identifier")
	}
}

func TestActivateAndCurrent(t *testing.T) {
	r := newTestRotator(t)
	if got := r.Current(); got != "" {
		t.Fatalf("Current on fresh rotator = %q, want empty", got)
	}

	id := NewIdentifier()
	if err := r.Activate(id); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if got := r.Current(); got != id {
		t.Fatalf("Current = %q, want %q", got, id)
	}
}

func TestRotateGlobalAlwaysFresh(t *testing.T) {
	r := newTestRotator(t)

	first, err := r.RotateGlobal()
	if err != nil {
		t.Fatalf("RotateGlobal failed: %v", err)
	}
	second, err := r.RotateGlobal()
	if err != nil {
		t.Fatalf("RotateGlobal failed: %v", err)
	}
	if first == second {
		t.Fatal("RotateGlobal reused an identifier")
	}
	if got := r.Current(); got != second {
		t.Fatalf("Current = %q, want the latest rotation %q", got, second)
	}
}
