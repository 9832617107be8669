package db

import (
	"errors"
	"time"

	"github.com/accshift/accshift/internal/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordActivation bumps the monotonic activation counter for name.
func RecordActivation(database *gorm.DB, name string) error {
	stat, err := getOrCreateStat(database, name)
	if err != nil {
		return err
	}
	stat.ActivationCount++
	stat.LastActivatedAt = time.Now()
	return database.Save(stat).Error
}

// RecordSwitchEvent appends one switch attempt to the history.
func RecordSwitchEvent(database *gorm.DB, name, outcome, errorCode string) error {
	return database.Create(&models.SwitchEvent{
		ID:          uuid.NewString(),
		AccountName: name,
		Outcome:     outcome,
		ErrorCode:   errorCode,
	}).Error
}

// RecordUsage persists the latest usage/suspension figures for name.
func RecordUsage(database *gorm.DB, name string, currentUsage, usageLimit int, suspended bool, reason string, capturedAt time.Time) error {
	stat, err := getOrCreateStat(database, name)
	if err != nil {
		return err
	}
	stat.CurrentUsage = currentUsage
	stat.UsageLimit = usageLimit
	stat.Suspended = suspended
	stat.SuspensionReason = reason
	stat.CapturedAt = capturedAt
	return database.Save(stat).Error
}

// RecordError stores the most recent refresh/probe error for name.
func RecordError(database *gorm.DB, name, message string) error {
	stat, err := getOrCreateStat(database, name)
	if err != nil {
		return err
	}
	stat.LastError = message
	return database.Save(stat).Error
}

// GetStat returns the stats row for name, or nil when none exists.
func GetStat(database *gorm.DB, name string) (*models.AccountStat, error) {
	var stat models.AccountStat
	err := database.First(&stat, "account_name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// PurgeAccount removes all derived statistics for name. Idempotent.
func PurgeAccount(database *gorm.DB, name string) error {
	if err := database.Delete(&models.AccountStat{}, "account_name = ?", name).Error; err != nil {
		return err
	}
	return database.Delete(&models.SwitchEvent{}, "account_name = ?", name).Error
}

func getOrCreateStat(database *gorm.DB, name string) (*models.AccountStat, error) {
	var stat models.AccountStat
	err := database.First(&stat, "account_name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stat = models.AccountStat{AccountName: name}
		if err := database.Create(&stat).Error; err != nil {
			return nil, err
		}
		return &stat, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}
