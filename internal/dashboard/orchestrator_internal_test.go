package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickpulse/internal/config"
	"clickpulse/internal/events"
	"clickpulse/internal/testsupport"
)

func newRunningOrchestrator(t *testing.T) (*Orchestrator, *events.Store) {
	t.Helper()
	db := testsupport.SetupTestDB(t)
	store := events.NewStore(db, testsupport.GetLogger())
	cfg := &config.Config{
		RefreshIntervalSeconds: 3600, // keep the timer out of the way
		FetchLimit:             200,
	}
	o := NewOrchestrator(store, nil, nil, nil, cfg, testsupport.GetLogger())
	o.Start(context.Background())
	t.Cleanup(o.Stop)
	return o, store
}

// An insert landing between fetch initiation and the snapshot swap is not
// in the fetched batch, so the new-events counter and the staleness flag
// must survive the apply.
func TestPushDuringInFlightFetchIsNotDropped(t *testing.T) {
	o, store := newRunningOrchestrator(t)
	require.Zero(t, o.NewEventsCount())
	require.False(t, o.Stale())

	startedAt := time.Now()
	batch, err := store.FetchEvents(events.Filter{Limit: 200})
	require.NoError(t, err)

	// The push arrives while the batch is still being computed.
	require.NoError(t, store.Insert(&events.Event{
		SessionID: "late", EventType: events.EventTypeClick, PageURL: "/",
	}))
	require.Equal(t, 1, o.NewEventsCount())

	before := o.Snapshot().Version
	o.applySnapshot(o.compute(context.Background(), batch), startedAt)

	snapshot := o.Snapshot()
	assert.Equal(t, before+1, snapshot.Version)
	assert.Zero(t, snapshot.Overview.TotalEvents) // the late insert is not in this batch
	assert.Equal(t, 1, o.NewEventsCount())
	assert.True(t, o.Stale())
}

func TestPushBeforeFetchInitiationResetsOnApply(t *testing.T) {
	o, store := newRunningOrchestrator(t)

	require.NoError(t, store.Insert(&events.Event{
		SessionID: "early", EventType: events.EventTypeClick, PageURL: "/",
	}))
	require.Equal(t, 1, o.NewEventsCount())

	startedAt := time.Now()
	batch, err := store.FetchEvents(events.Filter{Limit: 200})
	require.NoError(t, err)

	o.applySnapshot(o.compute(context.Background(), batch), startedAt)

	assert.Equal(t, 1, o.Snapshot().Overview.TotalEvents)
	assert.Zero(t, o.NewEventsCount())
	assert.False(t, o.Stale())
}

func TestStaleFetchResultDoesNotOverwriteNewerSnapshot(t *testing.T) {
	o, _ := newRunningOrchestrator(t)

	applied := o.Snapshot()
	staleStart := applied.FetchedAt.Add(-time.Second)

	o.applySnapshot(&Snapshot{}, staleStart)

	assert.Equal(t, applied.Version, o.Snapshot().Version)
	assert.Equal(t, applied.FetchedAt, o.Snapshot().FetchedAt)
}
