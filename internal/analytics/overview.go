package analytics

import (
	"clickpulse/internal/events"
)

// Overview is the summary card data for the default dashboard view. It is
// also the stats object embedded in JSON exports.
type Overview struct {
	TotalEvents    int              `json:"totalEvents"`
	UniqueSessions int              `json:"uniqueSessions"`
	UniqueUsers    int              `json:"uniqueUsers"`
	Pageviews      int              `json:"pageviews"`
	Clicks         int              `json:"clicks"`
	FormSubmits    int              `json:"formSubmits"`
	TopPages       []BreakdownEntry `json:"topPages"`
}

// BuildOverview computes batch-wide totals in a single pass.
func BuildOverview(batch []events.Event) Overview {
	sessions := make(map[string]struct{})
	users := make(map[string]struct{})
	pageViews := make(map[string]int)

	overview := Overview{TotalEvents: len(batch)}
	for _, e := range batch {
		sessions[e.SessionID] = struct{}{}
		if e.UserID != "" {
			users[e.UserID] = struct{}{}
		}

		switch e.EventType {
		case events.EventTypePageView:
			overview.Pageviews++
			pageViews[e.PageURL]++
		case events.EventTypeClick:
			overview.Clicks++
		case events.EventTypeFormSubmit:
			overview.FormSubmits++
		}
	}

	overview.UniqueSessions = len(sessions)
	overview.UniqueUsers = len(users)
	overview.TopPages = topPages(pageViews, overview.Pageviews, 10)
	return overview
}

func topPages(counts map[string]int, total, limit int) []BreakdownEntry {
	entries := rankEntries(counts, total)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Comparison pairs two overviews so the dashboard can render a
// side-by-side of the current and previous period.
type Comparison struct {
	Current  Overview `json:"current"`
	Previous Overview `json:"previous"`
}

// DeltaPercent returns the relative change of total events between the
// two periods; 0 when the previous period had no events.
func (c Comparison) DeltaPercent() float64 {
	if c.Previous.TotalEvents == 0 {
		return 0
	}
	return float64(c.Current.TotalEvents-c.Previous.TotalEvents) /
		float64(c.Previous.TotalEvents) * 100
}
