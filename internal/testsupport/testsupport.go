package testsupport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clickpulse/internal/events"
	"clickpulse/internal/settings"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// allModels returns all clickpulse models for migration
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&events.Event{},
		&settings.Setting{},
	}
}

// SetupTestDB creates a test database with all clickpulse models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test. Caches the database
// by root test name so subtests share it too.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	if len(tableNames) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tableNames {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// PageView builds a pageview event for tests.
func PageView(sessionID, pageURL string, at time.Time) events.Event {
	return events.Event{
		SessionID: sessionID,
		EventType: events.EventTypePageView,
		PageURL:   pageURL,
		CreatedAt: at,
	}
}

// Click builds a click event with coordinate metadata for tests.
func Click(sessionID, pageURL, elementID, elementText string, x, y int, at time.Time) events.Event {
	meta, _ := json.Marshal(events.ClickMetadata{X: x, Y: y})
	return events.Event{
		SessionID:   sessionID,
		EventType:   events.EventTypeClick,
		PageURL:     pageURL,
		ElementID:   elementID,
		ElementText: elementText,
		Metadata:    string(meta),
		CreatedAt:   at,
	}
}

// Scroll builds a scroll event with a depth payload for tests.
func Scroll(sessionID, pageURL string, depth int, at time.Time) events.Event {
	meta, _ := json.Marshal(events.ScrollMetadata{Depth: depth})
	return events.Event{
		SessionID: sessionID,
		EventType: events.EventTypeScroll,
		PageURL:   pageURL,
		Metadata:  string(meta),
		CreatedAt: at,
	}
}

// FieldBlur builds a field_blur event for tests.
func FieldBlur(sessionID, pageURL, fieldName string, timeSpentMs int64, hasError bool, at time.Time) events.Event {
	meta, _ := json.Marshal(events.FieldBlurMetadata{
		FieldName:   fieldName,
		TimeSpentMs: timeSpentMs,
		HasError:    hasError,
	})
	return events.Event{
		SessionID: sessionID,
		EventType: events.EventTypeFieldBlur,
		PageURL:   pageURL,
		Metadata:  string(meta),
		CreatedAt: at,
	}
}

// FieldError builds a field_error event for tests.
func FieldError(sessionID, pageURL, fieldName, message string, at time.Time) events.Event {
	meta, _ := json.Marshal(events.FieldErrorMetadata{FieldName: fieldName, Message: message})
	return events.Event{
		SessionID: sessionID,
		EventType: events.EventTypeFieldError,
		PageURL:   pageURL,
		Metadata:  string(meta),
		CreatedAt: at,
	}
}

// FormAbandonment builds a form_abandonment event for tests.
func FormAbandonment(sessionID, pageURL, formID string, fields []events.FieldDetail, at time.Time) events.Event {
	meta, _ := json.Marshal(events.FormAbandonmentMetadata{FormID: formID, FieldDetails: fields})
	return events.Event{
		SessionID: sessionID,
		EventType: events.EventTypeFormAbandonment,
		PageURL:   pageURL,
		Metadata:  string(meta),
		CreatedAt: at,
	}
}

// SeedEvents inserts events directly, bypassing the collect path.
func SeedEvents(t *testing.T, db *gorm.DB, evts ...events.Event) {
	t.Helper()
	for i := range evts {
		if evts[i].CreatedAt.IsZero() {
			evts[i].CreatedAt = time.Now().UTC()
		}
		if err := db.Create(&evts[i]).Error; err != nil {
			t.Fatalf("testsupport: failed to seed event: %v", err)
		}
	}
}
