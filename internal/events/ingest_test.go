package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickpulse/internal/events"
	"clickpulse/internal/privacy"
	"clickpulse/internal/testsupport"
)

func TestCollectStoresEvent(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	store := events.NewStore(db, logger)

	input := &events.CollectInput{
		SessionID:   "s1",
		UserID:      "u1",
		PageURL:     "https://example.com/pricing",
		ElementID:   "cta",
		ElementText: "  Start Trial  ",
		EventType:   events.EventTypeClick,
		IPAddress:   "203.0.113.5",
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
		Metadata:    map[string]any{"x": 10, "y": 20},
		Timestamp:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, events.Collect(store, logger, input))

	got, err := store.FetchEvents(events.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	stored := got[0]
	assert.Equal(t, "/pricing", stored.PageURL)
	assert.Equal(t, "Start Trial", stored.ElementText)
	assert.Equal(t, events.UnknownCountry, stored.Country)
	assert.JSONEq(t, `{"x":10,"y":20}`, stored.Metadata)

	// The raw IP never reaches storage.
	assert.NotContains(t, stored.Metadata, "203.0.113.5")
}

func TestCollectAcceptsBarePaths(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	store := events.NewStore(db, logger)

	require.NoError(t, events.Collect(store, logger, &events.CollectInput{
		SessionID: "s1",
		PageURL:   "/checkout",
		EventType: events.EventTypePageView,
	}))

	got, err := store.FetchEvents(events.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/checkout", got[0].PageURL)
}

func TestCollectRejectsBadInput(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	store := events.NewStore(db, logger)

	tests := []struct {
		name  string
		input events.CollectInput
	}{
		{"missing session", events.CollectInput{PageURL: "/x", EventType: events.EventTypeClick}},
		{"unknown event type", events.CollectInput{SessionID: "s1", PageURL: "/x", EventType: "hover"}},
		{"empty url", events.CollectInput{SessionID: "s1", EventType: events.EventTypeClick}},
		{"url without hostname", events.CollectInput{SessionID: "s1", PageURL: "example.com", EventType: events.EventTypeClick}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := tc.input
			assert.Error(t, events.Collect(store, logger, &input))
		})
	}
}

func TestCollectDropsExcludedPages(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	store := events.NewStore(db, logger)

	enforcer := privacy.NewEnforcer(db, logger)
	excluded := []string{"/admin/*"}
	_, err := enforcer.Apply(privacy.Update{ExcludedPages: &excluded})
	require.NoError(t, err)
	require.NoError(t, enforcer.Save())

	// Dropped silently: no error, no row.
	require.NoError(t, events.Collect(store, logger, &events.CollectInput{
		SessionID: "s1",
		PageURL:   "/admin/users",
		EventType: events.EventTypePageView,
	}))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
