package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/accshift/accshift/internal/db/models"
	"gorm.io/gorm"
)

func newTestStatsDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := InitDB(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	return database
}

func TestRecordActivationMonotonic(t *testing.T) {
	database := newTestStatsDB(t)

	for i := 0; i < 3; i++ {
		if err := RecordActivation(database, "alice"); err != nil {
			t.Fatalf("RecordActivation failed: %v", err)
		}
	}

	stat, err := GetStat(database, "alice")
	if err != nil {
		t.Fatalf("GetStat failed: %v", err)
	}
	if stat == nil || stat.ActivationCount != 3 {
		t.Fatalf("ActivationCount = %+v, want 3", stat)
	}
	if stat.LastActivatedAt.IsZero() {
		t.Fatal("LastActivatedAt not set")
	}
}

func TestGetStatMissing(t *testing.T) {
	database := newTestStatsDB(t)
	stat, err := GetStat(database, "ghost")
	if err != nil {
		t.Fatalf("GetStat failed: %v", err)
	}
	if stat != nil {
		t.Fatalf("expected nil for missing account, got %+v", stat)
	}
}

func TestRecordUsageAndError(t *testing.T) {
	database := newTestStatsDB(t)

	captured := time.Now().UTC()
	if err := RecordUsage(database, "bob", 40, 500, true, "TEMPORARILY_SUSPENDED", captured); err != nil {
		t.Fatalf("RecordUsage failed: %v", err)
	}
	if err := RecordError(database, "bob", "invalid_grant: grant revoked"); err != nil {
		t.Fatalf("RecordError failed: %v", err)
	}

	stat, err := GetStat(database, "bob")
	if err != nil || stat == nil {
		t.Fatalf("GetStat failed: %v %+v", err, stat)
	}
	if stat.CurrentUsage != 40 || stat.UsageLimit != 500 {
		t.Fatalf("usage mismatch: %+v", stat)
	}
	if !stat.Suspended || stat.SuspensionReason != "TEMPORARILY_SUSPENDED" {
		t.Fatalf("suspension not persisted: %+v", stat)
	}
	if stat.LastError == "" {
		t.Fatal("LastError not persisted")
	}
}

func TestPurgeAccount(t *testing.T) {
	database := newTestStatsDB(t)

	if err := RecordActivation(database, "carol"); err != nil {
		t.Fatalf("RecordActivation failed: %v", err)
	}
	if err := RecordSwitchEvent(database, "carol", "activated", ""); err != nil {
		t.Fatalf("RecordSwitchEvent failed: %v", err)
	}

	if err := PurgeAccount(database, "carol"); err != nil {
		t.Fatalf("PurgeAccount failed: %v", err)
	}

	stat, err := GetStat(database, "carol")
	if err != nil {
		t.Fatalf("GetStat failed: %v", err)
	}
	if stat != nil {
		t.Fatalf("stats row survived purge: %+v", stat)
	}

	var count int64
	database.Model(&models.SwitchEvent{}).Where("account_name = ?", "carol").Count(&count)
	if count != 0 {
		t.Fatalf("%d switch events survived purge", count)
	}

	// Purging an account with no rows is a no-op.
	if err := PurgeAccount(database, "ghost"); err != nil {
		t.Fatalf("PurgeAccount(ghost) errored: %v", err)
	}
}
