package events_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickpulse/internal/events"
	"clickpulse/internal/testsupport"
)

func newStore(t *testing.T) *events.Store {
	t.Helper()
	return events.NewStore(testsupport.SetupTestDB(t), testsupport.GetLogger())
}

func TestFetchEventsFilters(t *testing.T) {
	store := newStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(&events.Event{
		SessionID: "s1", EventType: events.EventTypePageView, PageURL: "/home", CreatedAt: now,
	}))
	require.NoError(t, store.Insert(&events.Event{
		SessionID: "s1", EventType: events.EventTypeClick, PageURL: "/pricing", CreatedAt: now.Add(time.Minute),
	}))
	require.NoError(t, store.Insert(&events.Event{
		SessionID: "s2", EventType: events.EventTypeClick, PageURL: "/home", CreatedAt: now.Add(2 * time.Minute),
	}))

	t.Run("by event type", func(t *testing.T) {
		got, err := store.FetchEvents(events.Filter{EventType: events.EventTypeClick})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by session", func(t *testing.T) {
		got, err := store.FetchEvents(events.Filter{SessionID: "s2"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "/home", got[0].PageURL)
	})

	t.Run("by page substring", func(t *testing.T) {
		got, err := store.FetchEvents(events.Filter{PageURL: "pric"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, events.EventTypeClick, got[0].EventType)
	})

	t.Run("by time range", func(t *testing.T) {
		got, err := store.FetchEvents(events.Filter{
			Since: now.Add(30 * time.Second),
			Until: now.Add(90 * time.Second),
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "/pricing", got[0].PageURL)
	})

	t.Run("newest first", func(t *testing.T) {
		got, err := store.FetchEvents(events.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "s2", got[0].SessionID)
		assert.Equal(t, "/home", got[2].PageURL)
	})
}

func TestFetchEventsEmptyResultIsNotAnError(t *testing.T) {
	store := newStore(t)

	got, err := store.FetchEvents(events.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchEventsInvalidRange(t *testing.T) {
	store := newStore(t)
	now := time.Now().UTC()

	_, err := store.FetchEvents(events.Filter{Since: now, Until: now.Add(-time.Hour)})
	require.Error(t, err)

	var rangeErr *events.InvalidRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestFetchEventsCapsLimit(t *testing.T) {
	store := newStore(t)
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < events.MaxFetchLimit+20; i++ {
		require.NoError(t, store.Insert(&events.Event{
			SessionID: "s1",
			EventType: events.EventTypePageView,
			PageURL:   "/home",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := store.FetchEvents(events.Filter{Limit: 10_000})
	require.NoError(t, err)
	assert.Len(t, got, events.MaxFetchLimit)
}

func TestSubscribeInserts(t *testing.T) {
	store := newStore(t)

	var mu sync.Mutex
	var seen []events.Event
	sub := store.SubscribeInserts(func(e events.Event) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})

	require.NoError(t, store.Insert(&events.Event{
		SessionID: "s1", EventType: events.EventTypeClick, PageURL: "/home",
	}))

	mu.Lock()
	require.Len(t, seen, 1)
	assert.Equal(t, events.EventTypeClick, seen[0].EventType)
	mu.Unlock()

	sub.Cancel()
	sub.Cancel() // safe to call twice

	require.NoError(t, store.Insert(&events.Event{
		SessionID: "s1", EventType: events.EventTypeClick, PageURL: "/home",
	}))

	mu.Lock()
	assert.Len(t, seen, 1)
	mu.Unlock()
}

func TestBulkDeleteRequiresConfirmation(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Insert(&events.Event{
		SessionID: "s1", EventType: events.EventTypePageView, PageURL: "/home",
	}))

	_, err := store.BulkDelete("delete all events")
	assert.ErrorIs(t, err, events.ErrConfirmationRequired)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := store.BulkDelete(events.BulkDeleteConfirmation)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err = store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestElementKeyFallback(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  string
	}{
		{"text preferred", events.Event{ElementText: "Buy Now", ElementID: "btn-1"}, "Buy Now"},
		{"id fallback", events.Event{ElementID: "btn-1"}, "btn-1"},
		{"unknown fallback", events.Event{}, events.UnknownElement},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.event.ElementKey())
		})
	}
}

func TestMetadataDecodeRejectsWrongType(t *testing.T) {
	scroll := testsupport.Scroll("s1", "/home", 75, time.Now().UTC())

	meta, ok := scroll.ScrollMeta()
	require.True(t, ok)
	assert.Equal(t, 75, meta.Depth)

	_, ok = scroll.ClickMeta()
	assert.False(t, ok)
}
