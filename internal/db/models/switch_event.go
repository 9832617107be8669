package models

import "time"

// SwitchEvent is one attempted account switch, successful or not.
type SwitchEvent struct {
	ID          string `gorm:"primaryKey"` // UUID
	AccountName string `gorm:"index"`
	Outcome     string // "activated", "rejected", "failed"
	ErrorCode   string
	CreatedAt   time.Time
}
