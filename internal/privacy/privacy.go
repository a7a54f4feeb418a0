// Package privacy holds the recording exclusion rules and masking policy
// consulted before events are recorded or exported.
package privacy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gorm.io/gorm"

	"clickpulse/internal/settings"
)

// Settings is the full privacy policy. MaskPasswords and MaskCreditCards
// are pinned true and can never be disabled.
type Settings struct {
	MaskAllInputs     bool     `json:"maskAllInputs"`
	MaskPasswords     bool     `json:"maskPasswords"`
	MaskEmails        bool     `json:"maskEmails"`
	MaskCreditCards   bool     `json:"maskCreditCards"`
	MaskPhoneNumbers  bool     `json:"maskPhoneNumbers"`
	ExcludedPages     []string `json:"excludedPages"`
	ExcludedSelectors []string `json:"excludedSelectors"`
	RecordCanvas      bool     `json:"recordCanvas"`
	CollectFonts      bool     `json:"collectFonts"`
	InlineStylesheet  bool     `json:"inlineStylesheet"`
}

// Update is a partial settings change: nil fields are left untouched.
type Update struct {
	MaskAllInputs     *bool     `json:"maskAllInputs,omitempty"`
	MaskPasswords     *bool     `json:"maskPasswords,omitempty"`
	MaskEmails        *bool     `json:"maskEmails,omitempty"`
	MaskCreditCards   *bool     `json:"maskCreditCards,omitempty"`
	MaskPhoneNumbers  *bool     `json:"maskPhoneNumbers,omitempty"`
	ExcludedPages     *[]string `json:"excludedPages,omitempty"`
	ExcludedSelectors *[]string `json:"excludedSelectors,omitempty"`
	RecordCanvas      *bool     `json:"recordCanvas,omitempty"`
	CollectFonts      *bool     `json:"collectFonts,omitempty"`
	InlineStylesheet  *bool     `json:"inlineStylesheet,omitempty"`
}

// PolicyViolation reports an attempt to disable a pinned masking field.
// The rejected update leaves the settings unchanged.
type PolicyViolation struct {
	Field string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("privacy policy violation: %s is required and cannot be disabled", e.Field)
}

// DefaultSettings returns the policy applied before any operator edits.
func DefaultSettings() Settings {
	return Settings{
		MaskAllInputs:    false,
		MaskPasswords:    true,
		MaskEmails:       false,
		MaskCreditCards:  true,
		MaskPhoneNumbers: false,
		RecordCanvas:     false,
		CollectFonts:     false,
		InlineStylesheet: true,
	}
}

// DefaultSettingsJSON returns the default policy serialized for seeding the
// settings table.
func DefaultSettingsJSON() string {
	data, _ := json.Marshal(DefaultSettings())
	return string(data)
}

// Enforcer owns the live privacy settings for one process. Edits are
// visible immediately but only durable after Save.
type Enforcer struct {
	db     *gorm.DB
	logger *slog.Logger

	mu      sync.RWMutex
	current Settings
}

// NewEnforcer loads settings from the durable store, falling back to
// defaults when nothing has been saved yet.
func NewEnforcer(db *gorm.DB, logger *slog.Logger) *Enforcer {
	enforcer := &Enforcer{db: db, logger: logger, current: DefaultSettings()}

	raw, err := settings.Get(db, settings.KeyPrivacySettings)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Warn("Failed to load privacy settings, using defaults", slog.Any("error", err))
		}
		return enforcer
	}

	var loaded Settings
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		logger.Warn("Invalid stored privacy settings, using defaults", slog.Any("error", err))
		return enforcer
	}

	// Stored state never overrides the pinned fields.
	loaded.MaskPasswords = true
	loaded.MaskCreditCards = true
	enforcer.current = loaded
	return enforcer
}

// Current returns a copy of the active settings.
func (e *Enforcer) Current() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copySettings(e.current)
}

// Apply merges a partial update into the active settings and returns the
// result. Attempts to set maskPasswords or maskCreditCards to false are
// rejected with a PolicyViolation and leave all settings unchanged.
func (e *Enforcer) Apply(update Update) (Settings, error) {
	if update.MaskPasswords != nil && !*update.MaskPasswords {
		return e.Current(), &PolicyViolation{Field: "maskPasswords"}
	}
	if update.MaskCreditCards != nil && !*update.MaskCreditCards {
		return e.Current(), &PolicyViolation{Field: "maskCreditCards"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.current
	if update.MaskAllInputs != nil {
		next.MaskAllInputs = *update.MaskAllInputs
	}
	if update.MaskEmails != nil {
		next.MaskEmails = *update.MaskEmails
	}
	if update.MaskPhoneNumbers != nil {
		next.MaskPhoneNumbers = *update.MaskPhoneNumbers
	}
	if update.ExcludedPages != nil {
		next.ExcludedPages = cleanPatterns(*update.ExcludedPages)
	}
	if update.ExcludedSelectors != nil {
		next.ExcludedSelectors = cleanPatterns(*update.ExcludedSelectors)
	}
	if update.RecordCanvas != nil {
		next.RecordCanvas = *update.RecordCanvas
	}
	if update.CollectFonts != nil {
		next.CollectFonts = *update.CollectFonts
	}
	if update.InlineStylesheet != nil {
		next.InlineStylesheet = *update.InlineStylesheet
	}
	next.MaskPasswords = true
	next.MaskCreditCards = true

	e.current = next
	return copySettings(next), nil
}

// Save persists the active settings. In-memory edits before Save are
// visible to the current session only.
func (e *Enforcer) Save() error {
	current := e.Current()
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal privacy settings: %w", err)
	}
	if err := settings.Set(e.db, e.logger, settings.KeyPrivacySettings, string(data)); err != nil {
		return fmt.Errorf("failed to save privacy settings: %w", err)
	}
	return nil
}

// IsPageExcluded reports whether the given path matches any excluded page
// pattern.
func (e *Enforcer) IsPageExcluded(path string) bool {
	e.mu.RLock()
	patterns := e.current.ExcludedPages
	e.mu.RUnlock()
	return MatchesPage(patterns, path)
}

// IsSelectorExcluded reports whether the given CSS selector is excluded.
func (e *Enforcer) IsSelectorExcluded(selector string) bool {
	e.mu.RLock()
	patterns := e.current.ExcludedSelectors
	e.mu.RUnlock()

	for _, pattern := range patterns {
		if pattern == selector {
			return true
		}
	}
	return false
}

// MatchesPage checks a path against exclusion patterns. A pattern matches
// exactly, or as a prefix when it ends with "/*".
func MatchesPage(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if pattern == path {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// IsPageExcludedCached checks page exclusion through the settings read
// cache; used on the ingest hot path where no live Enforcer is available.
func IsPageExcludedCached(db *gorm.DB, path string) bool {
	raw, err := settings.GetCached(db, settings.KeyPrivacySettings)
	if err != nil || raw == "" {
		return false
	}
	var stored Settings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return false
	}
	return MatchesPage(stored.ExcludedPages, path)
}

func copySettings(s Settings) Settings {
	out := s
	out.ExcludedPages = append([]string(nil), s.ExcludedPages...)
	out.ExcludedSelectors = append([]string(nil), s.ExcludedSelectors...)
	return out
}

func cleanPatterns(patterns []string) []string {
	cleaned := make([]string, 0, len(patterns))
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || seen[pattern] {
			continue
		}
		seen[pattern] = true
		cleaned = append(cleaned, pattern)
	}
	return cleaned
}
