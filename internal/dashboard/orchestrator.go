// Package dashboard orchestrates the analytics views over one bounded
// event batch. All state is per-instance; producers (refresh timer, push
// subscription, manual refresh) feed one goroutine that serializes every
// update, and a finished refresh lands as a single snapshot swap.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clickpulse/internal/analytics"
	"clickpulse/internal/config"
	"clickpulse/internal/events"
	"clickpulse/internal/geo"
	"clickpulse/internal/pkg/async"
	"clickpulse/internal/struggle"
)

// View names the dashboard screens.
type View string

const (
	ViewOverview      View = "overview"
	ViewFunnel        View = "funnel"
	ViewJourneys      View = "journeys"
	ViewClicks        View = "clicks"
	ViewHeatmapClick  View = "heatmap-click"
	ViewHeatmapScroll View = "heatmap-scroll"
	ViewDevice        View = "device"
	ViewGeo           View = "geo"
	ViewEvents        View = "events"
	ViewPrivacy       View = "privacy"
	ViewForms         View = "forms"
	ViewStruggle      View = "struggle"
	ViewComparison    View = "comparison"
)

var validViews = map[View]bool{
	ViewOverview: true, ViewFunnel: true, ViewJourneys: true,
	ViewClicks: true, ViewHeatmapClick: true, ViewHeatmapScroll: true,
	ViewDevice: true, ViewGeo: true, ViewEvents: true,
	ViewPrivacy: true, ViewForms: true, ViewStruggle: true,
	ViewComparison: true,
}

// ComputedFunnel is one named funnel with its computed steps.
type ComputedFunnel struct {
	Name  string                 `json:"name"`
	Steps []analytics.FunnelStep `json:"steps"`
}

// Snapshot is the result of one refresh: the fetched batch plus every
// aggregate derived from it. A snapshot is immutable once published;
// renderers compare Version to detect changes.
type Snapshot struct {
	Version       uint64                          `json:"version"`
	FetchedAt     time.Time                       `json:"fetchedAt"`
	Batch         []events.Event                  `json:"-"`
	Overview      analytics.Overview              `json:"overview"`
	Funnels       []ComputedFunnel                `json:"funnels"`
	Journeys      []analytics.Journey             `json:"journeys"`
	CommonPaths   []analytics.CommonPath          `json:"commonPaths"`
	ClickHeatmap  []analytics.HeatmapCell         `json:"clickHeatmap"`
	ScrollHeatmap []analytics.PageScrollHistogram `json:"scrollHeatmap"`
	Devices       analytics.DeviceBreakdown       `json:"devices"`
	Geo           []analytics.BreakdownEntry      `json:"geo"`
	FieldMetrics  []analytics.FieldMetric         `json:"fieldMetrics"`
	Comparison    analytics.Comparison            `json:"comparison"`
}

// Orchestrator owns the dashboard state for one instance.
type Orchestrator struct {
	store    *events.Store
	logger   *slog.Logger
	cfg      *config.Config
	funnels  []analytics.FunnelDefinition
	resolver *geo.Resolver
	detector *struggle.Detector

	mu             sync.Mutex
	view           View
	snapshot       *Snapshot
	version        uint64
	appliedFetchAt time.Time
	newEvents      int
	lastPushAt     time.Time
	stale          bool
	lastFetchErr   error
	location       *geo.Location
	analysis       *struggle.Analysis

	refreshCh chan struct{}
	sub       *events.Subscription
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewOrchestrator wires the orchestrator. Resolver and detector may be
// nil; their views then report an unavailable state.
func NewOrchestrator(
	store *events.Store,
	funnels []analytics.FunnelDefinition,
	resolver *geo.Resolver,
	detector *struggle.Detector,
	cfg *config.Config,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		logger:    logger,
		cfg:       cfg,
		funnels:   funnels,
		resolver:  resolver,
		detector:  detector,
		view:      ViewOverview,
		snapshot:  &Snapshot{},
		refreshCh: make(chan struct{}, 1),
	}
}

// Start performs an initial refresh, subscribes to the insert feed and
// launches the periodic refresh loop.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	o.done = make(chan struct{})

	o.sub = o.store.SubscribeInserts(func(events.Event) {
		o.mu.Lock()
		o.newEvents++
		o.lastPushAt = time.Now()
		o.stale = true
		o.mu.Unlock()
	})

	o.refresh(ctx)

	go o.run(ctx)
}

// Stop cancels the refresh loop and the push subscription.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	if o.sub != nil {
		o.sub.Cancel()
	}
	if o.done != nil {
		<-o.done
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)

	ticker := time.NewTicker(o.cfg.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.refresh(ctx)
		case <-o.refreshCh:
			o.refresh(ctx)
			// Debounce: the periodic timer restarts so a manual refresh
			// does not double up with an imminent tick.
			ticker.Reset(o.cfg.RefreshInterval())
		}
	}
}

// SetView switches the active view. Switching never refetches; views
// render from the already-held snapshot.
func (o *Orchestrator) SetView(view View) error {
	if !validViews[view] {
		return fmt.Errorf("unknown view: %s", view)
	}
	o.mu.Lock()
	o.view = view
	o.mu.Unlock()
	return nil
}

// View returns the active view name.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// RequestRefresh queues a manual refresh. Requests arriving while one is
// already queued coalesce into a single run.
func (o *Orchestrator) RequestRefresh() {
	select {
	case o.refreshCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the current published snapshot.
func (o *Orchestrator) Snapshot() *Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot
}

// NewEventsCount reports how many push notifications arrived since the
// last applied refresh.
func (o *Orchestrator) NewEventsCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.newEvents
}

// Stale reports whether the held batch has been invalidated by a push.
func (o *Orchestrator) Stale() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stale
}

// LastFetchError returns the error of the most recent failed refresh, nil
// after a successful one.
func (o *Orchestrator) LastFetchError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastFetchErr
}

// refresh fetches a bounded batch and recomputes every aggregate. The
// result lands as one snapshot swap.
func (o *Orchestrator) refresh(ctx context.Context) {
	startedAt := time.Now()

	batch, err := o.store.FetchEvents(events.Filter{Limit: o.cfg.FetchLimit})
	if err != nil {
		o.mu.Lock()
		o.lastFetchErr = err
		o.mu.Unlock()
		o.logger.Warn("Dashboard refresh failed", slog.Any("error", err))
		return
	}

	o.applySnapshot(o.compute(ctx, batch), startedAt)
}

// applySnapshot publishes a computed snapshot; last write wins by fetch
// initiation time, so a result from a fetch initiated before the
// currently applied one is discarded. Pushes that arrived after this
// fetch started are not in its batch, so their counter and the staleness
// flag survive the swap.
func (o *Orchestrator) applySnapshot(snapshot *Snapshot, startedAt time.Time) {
	snapshot.FetchedAt = startedAt

	o.mu.Lock()
	defer o.mu.Unlock()

	if startedAt.Before(o.appliedFetchAt) {
		o.logger.Debug("Discarding stale refresh result",
			slog.Time("initiated_at", startedAt),
			slog.Time("applied_at", o.appliedFetchAt))
		return
	}

	o.version++
	snapshot.Version = o.version
	o.snapshot = snapshot
	o.appliedFetchAt = startedAt
	o.lastFetchErr = nil

	if o.lastPushAt.Before(startedAt) {
		o.newEvents = 0
		o.stale = false
	}
}

// compute derives all view aggregates from the batch. The aggregations
// are pure and independent, so they fan out over the worker pool.
func (o *Orchestrator) compute(ctx context.Context, batch []events.Event) *Snapshot {
	snapshot := &Snapshot{Batch: batch}

	tasks := []async.Task{
		{Name: "overview", Execute: func() (any, error) {
			return analytics.BuildOverview(batch), nil
		}},
		{Name: "funnels", Execute: func() (any, error) {
			funnels := make([]ComputedFunnel, 0, len(o.funnels))
			for _, def := range o.funnels {
				funnels = append(funnels, ComputedFunnel{
					Name:  def.Name,
					Steps: analytics.BuildFunnel(batch, def.Compile()),
				})
			}
			return funnels, nil
		}},
		{Name: "journeys", Execute: func() (any, error) {
			return analytics.BuildJourneys(batch, analytics.DefaultJourneyLimit, nil), nil
		}},
		{Name: "clickHeatmap", Execute: func() (any, error) {
			return analytics.BuildClickHeatmap(batch, analytics.DefaultHeatmapLimit), nil
		}},
		{Name: "scrollHeatmap", Execute: func() (any, error) {
			return analytics.BuildScrollHistogram(batch, analytics.DefaultHeatmapLimit), nil
		}},
		{Name: "devices", Execute: func() (any, error) {
			return analytics.BuildDeviceBreakdown(batch), nil
		}},
		{Name: "geo", Execute: func() (any, error) {
			return analytics.BuildGeoBreakdown(batch), nil
		}},
		{Name: "fields", Execute: func() (any, error) {
			metrics := analytics.NewFieldMetrics()
			metrics.Accumulate(batch)
			return metrics.Sorted(), nil
		}},
	}

	results := async.NewPool(4).Execute(ctx, tasks)

	if r, ok := results["overview"]; ok && r.Err == nil {
		snapshot.Overview = r.Data.(analytics.Overview)
	}
	if r, ok := results["funnels"]; ok && r.Err == nil {
		snapshot.Funnels = r.Data.([]ComputedFunnel)
	}
	if r, ok := results["journeys"]; ok && r.Err == nil {
		snapshot.Journeys = r.Data.([]analytics.Journey)
		snapshot.CommonPaths = analytics.CommonPaths(snapshot.Journeys)
	}
	if r, ok := results["clickHeatmap"]; ok && r.Err == nil {
		snapshot.ClickHeatmap = r.Data.([]analytics.HeatmapCell)
	}
	if r, ok := results["scrollHeatmap"]; ok && r.Err == nil {
		snapshot.ScrollHeatmap = r.Data.([]analytics.PageScrollHistogram)
	}
	if r, ok := results["devices"]; ok && r.Err == nil {
		snapshot.Devices = r.Data.(analytics.DeviceBreakdown)
	}
	if r, ok := results["geo"]; ok && r.Err == nil {
		snapshot.Geo = r.Data.([]analytics.BreakdownEntry)
	}
	if r, ok := results["fields"]; ok && r.Err == nil {
		snapshot.FieldMetrics = r.Data.([]analytics.FieldMetric)
	}

	snapshot.Comparison = o.buildComparison(batch)
	return snapshot
}

// buildComparison pairs the current 24h window with the preceding one.
func (o *Orchestrator) buildComparison(batch []events.Event) analytics.Comparison {
	now := time.Now().UTC()
	cutoff := now.Add(-24 * time.Hour)

	var current []events.Event
	for _, e := range batch {
		if !e.CreatedAt.Before(cutoff) {
			current = append(current, e)
		}
	}

	previous, err := o.store.FetchEvents(events.Filter{
		Since: cutoff.Add(-24 * time.Hour),
		Until: cutoff,
		Limit: o.cfg.FetchLimit,
	})
	if err != nil {
		o.logger.Warn("Failed to fetch comparison window", slog.Any("error", err))
		previous = nil
	}

	return analytics.Comparison{
		Current:  analytics.BuildOverview(current),
		Previous: analytics.BuildOverview(previous),
	}
}

// ResolveLocation runs the two-provider geo lookup and caches the result
// on the orchestrator. Unavailable results are stored too: the geo view
// renders a degraded state and offers a manual refresh.
func (o *Orchestrator) ResolveLocation(ctx context.Context, force bool) geo.Location {
	if o.resolver == nil {
		return geo.Location{Unavailable: true}
	}

	var loc geo.Location
	if force {
		loc = o.resolver.Refresh(ctx)
	} else {
		loc = o.resolver.Resolve(ctx)
	}

	o.mu.Lock()
	o.location = &loc
	o.mu.Unlock()
	return loc
}

// RunStruggleAnalysis submits the held batch to the scoring service. On
// failure the previous analysis is kept; the error is surfaced to the
// caller as a dismissible notice.
func (o *Orchestrator) RunStruggleAnalysis(ctx context.Context) (*struggle.Analysis, error) {
	if o.detector == nil {
		return nil, &struggle.AnalysisError{Reason: "struggle detection is not configured"}
	}

	batch := o.Snapshot().Batch
	analysis, err := o.detector.Analyze(ctx, batch)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.analysis = analysis
	o.mu.Unlock()
	return analysis, nil
}

// StruggleAnalysis returns the last successful analysis, nil when none
// has completed yet.
func (o *Orchestrator) StruggleAnalysis() *struggle.Analysis {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.analysis
}

// Location returns the last resolved operator location, nil before the
// first lookup.
func (o *Orchestrator) Location() *geo.Location {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.location
}

// DeleteAllEvents is the confirmation-gated destructive path. After a
// successful delete the dashboard refreshes immediately.
func (o *Orchestrator) DeleteAllEvents(ctx context.Context, confirmation string) (int64, error) {
	deleted, err := o.store.BulkDelete(confirmation)
	if err != nil {
		return 0, err
	}
	o.refresh(ctx)
	return deleted, nil
}
