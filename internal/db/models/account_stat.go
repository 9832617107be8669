package models

import "time"

// AccountStat holds the derived per-account statistics: the monotonic
// activation counter and the last persisted usage/suspension snapshot.
// Rows live and die with the account record they describe.
type AccountStat struct {
	AccountName      string `gorm:"primaryKey"`
	ActivationCount  int64
	LastActivatedAt  time.Time
	LastError        string
	Suspended        bool
	SuspensionReason string
	CurrentUsage     int
	UsageLimit       int
	CapturedAt       time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
