package privacy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickpulse/internal/privacy"
	"clickpulse/internal/settings"
	"clickpulse/internal/testsupport"
)

func boolPtr(b bool) *bool { return &b }

func strsPtr(s ...string) *[]string { return &s }

func TestDefaultsPinRequiredMasking(t *testing.T) {
	defaults := privacy.DefaultSettings()
	assert.True(t, defaults.MaskPasswords)
	assert.True(t, defaults.MaskCreditCards)
	assert.False(t, defaults.MaskAllInputs)
	assert.True(t, defaults.InlineStylesheet)
}

func TestApplyMergesPartialUpdate(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	enforcer := privacy.NewEnforcer(db, testsupport.GetLogger())

	updated, err := enforcer.Apply(privacy.Update{
		MaskEmails:    boolPtr(true),
		ExcludedPages: strsPtr("/admin/*", "/internal"),
	})
	require.NoError(t, err)

	assert.True(t, updated.MaskEmails)
	assert.Equal(t, []string{"/admin/*", "/internal"}, updated.ExcludedPages)
	// Untouched fields keep their previous values.
	assert.False(t, updated.MaskAllInputs)
	assert.True(t, updated.MaskPasswords)
}

func TestApplyRejectsDisablingPinnedFields(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	tests := []struct {
		name   string
		update privacy.Update
		field  string
	}{
		{"passwords", privacy.Update{MaskPasswords: boolPtr(false)}, "maskPasswords"},
		{"credit cards", privacy.Update{MaskCreditCards: boolPtr(false)}, "maskCreditCards"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			enforcer := privacy.NewEnforcer(db, testsupport.GetLogger())
			before := enforcer.Current()

			_, err := enforcer.Apply(tc.update)
			require.Error(t, err)

			var violation *privacy.PolicyViolation
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tc.field, violation.Field)

			// A rejected update leaves everything unchanged.
			assert.Equal(t, before, enforcer.Current())
		})
	}
}

func TestApplyAllowsReassertingPinnedFields(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	enforcer := privacy.NewEnforcer(db, testsupport.GetLogger())

	updated, err := enforcer.Apply(privacy.Update{
		MaskPasswords:   boolPtr(true),
		MaskCreditCards: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.MaskPasswords)
	assert.True(t, updated.MaskCreditCards)
}

func TestMatchesPage(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"exact match", []string{"/checkout"}, "/checkout", true},
		{"exact mismatch", []string{"/checkout"}, "/checkout/step-2", false},
		{"wildcard matches subpath", []string{"/admin/*"}, "/admin/users", true},
		{"wildcard matches nested subpath", []string{"/admin/*"}, "/admin/users/42/edit", true},
		{"wildcard matches prefix itself", []string{"/admin/*"}, "/admin", true},
		{"wildcard requires path boundary", []string{"/admin/*"}, "/administrator", false},
		{"no patterns", nil, "/anything", false},
		{"second pattern matches", []string{"/a", "/b/*"}, "/b/c", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, privacy.MatchesPage(tc.patterns, tc.path))
		})
	}
}

func TestIsSelectorExcluded(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	enforcer := privacy.NewEnforcer(db, testsupport.GetLogger())

	_, err := enforcer.Apply(privacy.Update{ExcludedSelectors: strsPtr(".sensitive", "#ssn")})
	require.NoError(t, err)

	assert.True(t, enforcer.IsSelectorExcluded(".sensitive"))
	assert.True(t, enforcer.IsSelectorExcluded("#ssn"))
	assert.False(t, enforcer.IsSelectorExcluded(".public"))
}

func TestSaveAndReload(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	enforcer := privacy.NewEnforcer(db, logger)
	_, err := enforcer.Apply(privacy.Update{
		MaskAllInputs: boolPtr(true),
		ExcludedPages: strsPtr("/billing/*"),
	})
	require.NoError(t, err)
	require.NoError(t, enforcer.Save())

	// A fresh enforcer sees the saved state.
	reloaded := privacy.NewEnforcer(db, logger)
	current := reloaded.Current()
	assert.True(t, current.MaskAllInputs)
	assert.Equal(t, []string{"/billing/*"}, current.ExcludedPages)
	assert.True(t, current.MaskPasswords)
}

func TestUnsavedEditsAreNotDurable(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	enforcer := privacy.NewEnforcer(db, logger)
	_, err := enforcer.Apply(privacy.Update{MaskEmails: boolPtr(true)})
	require.NoError(t, err)

	// In-memory only: a fresh load sees defaults.
	reloaded := privacy.NewEnforcer(db, logger)
	assert.False(t, reloaded.Current().MaskEmails)
}

func TestLoadPinsStoredPinnedFields(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	// Tampered stored state cannot disable required masking.
	tampered := `{"maskPasswords":false,"maskCreditCards":false,"maskEmails":true}`
	require.NoError(t, settings.Set(db, logger, settings.KeyPrivacySettings, tampered))

	enforcer := privacy.NewEnforcer(db, logger)
	current := enforcer.Current()
	assert.True(t, current.MaskPasswords)
	assert.True(t, current.MaskCreditCards)
	assert.True(t, current.MaskEmails)
}

func TestIsPageExcludedCached(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	enforcer := privacy.NewEnforcer(db, logger)
	_, err := enforcer.Apply(privacy.Update{ExcludedPages: strsPtr("/private/*")})
	require.NoError(t, err)
	require.NoError(t, enforcer.Save())

	assert.True(t, privacy.IsPageExcludedCached(db, "/private/data"))
	assert.False(t, privacy.IsPageExcludedCached(db, "/public"))
}
