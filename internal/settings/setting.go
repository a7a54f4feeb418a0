// Package settings is a small durable key-value store backed by the
// application database. Values are only durable after an explicit write;
// reads on hot paths go through a short-lived cache.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Well-known setting keys
const (
	KeyPrivacySettings = "privacy_settings"
)

var valueCache *cache.Cache[string, string]

// SetupDefaults ensures well-known settings rows exist and initializes the
// read cache.
func SetupDefaults(db *gorm.DB, logger *slog.Logger, defaults map[string]string) error {
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		for key, value := range defaults {
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, key, value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				return fmt.Errorf("failed to upsert setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	loadCache(db, logger)
	return nil
}

// Get retrieves a setting value from the database
func Get(db *gorm.DB, key string) (string, error) {
	var setting Setting
	if err := db.Where("key = ?", key).First(&setting).Error; err != nil {
		return "", err
	}
	return setting.Value, nil
}

// GetCached retrieves a setting value through the TTL cache. Intended for
// hot read paths such as per-event privacy checks on ingest. Falls back to
// a direct read when the cache has not been initialized.
func GetCached(db *gorm.DB, key string) (string, error) {
	if valueCache == nil {
		return Get(db, key)
	}
	return valueCache.Get(key)
}

// Set creates or updates a setting and invalidates the read cache.
func Set(db *gorm.DB, logger *slog.Logger, key, value string) error {
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			if err := tx.Create(&Setting{Key: key, Value: value}).Error; err != nil {
				return fmt.Errorf("failed to create setting: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if valueCache != nil {
		valueCache.Clear()
	}
	return nil
}

func loadCache(db *gorm.DB, logger *slog.Logger) {
	fetchFunc := func(key string) (string, error) {
		var value string
		err := db.WithContext(context.Background()).
			Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).
			Scan(&value).Error
		if err != nil {
			return "", err
		}
		return value, nil
	}
	valueCache = cache.NewCache[string, string](logger, 5*time.Minute, fetchFunc)
}
