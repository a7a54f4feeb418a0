package analytics

import (
	"sort"
	"strings"

	"clickpulse/internal/events"
)

// DefaultJourneyLimit caps how many journeys the reconstructor reports.
const DefaultJourneyLimit = 10

// PathSeparator joins page names into a common-path signature.
const PathSeparator = " → "

// JourneyStep is one interaction on a session's timeline.
type JourneyStep struct {
	Page      string `json:"page"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Element   string `json:"element,omitempty"`
}

// Journey is the reconstructed timeline of one session. Converted flips
// true the first time a conversion event is seen and never flips back.
type Journey struct {
	SessionID       string        `json:"sessionId"`
	Steps           []JourneyStep `json:"steps"`
	Converted       bool          `json:"converted"`
	DurationSeconds int64         `json:"durationSeconds"`
}

// CommonPath is a ranked path signature across journeys.
type CommonPath struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// DefaultConversion marks the events that count as a conversion: a form
// submit anywhere, or landing on a post-purchase page.
func DefaultConversion(e events.Event) bool {
	if e.EventType == events.EventTypeFormSubmit {
		return true
	}
	if e.EventType != events.EventTypePageView {
		return false
	}
	switch {
	case strings.HasPrefix(e.PageURL, "/thank-you"),
		strings.HasPrefix(e.PageURL, "/success"),
		strings.HasPrefix(e.PageURL, "/confirmation"):
		return true
	}
	return false
}

// BuildJourneys reconstructs per-session journeys from the batch with a
// single ascending-time walk per session. Ordering is deterministic: equal
// timestamps keep their original batch position. Journeys with fewer than
// two steps are dropped; output is sorted by step count descending and
// capped to limit.
func BuildJourneys(batch []events.Event, limit int, isConversion func(events.Event) bool) []Journey {
	if limit <= 0 {
		limit = DefaultJourneyLimit
	}
	if isConversion == nil {
		isConversion = DefaultConversion
	}

	type indexed struct {
		event events.Event
		pos   int
	}
	bySession := make(map[string][]indexed)
	for i, e := range batch {
		bySession[e.SessionID] = append(bySession[e.SessionID], indexed{event: e, pos: i})
	}

	journeys := make([]Journey, 0, len(bySession))
	for sessionID, entries := range bySession {
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if !a.event.CreatedAt.Equal(b.event.CreatedAt) {
				return a.event.CreatedAt.Before(b.event.CreatedAt)
			}
			return a.pos < b.pos
		})

		journey := Journey{SessionID: sessionID, Steps: make([]JourneyStep, 0, len(entries))}
		for _, entry := range entries {
			e := entry.event
			step := JourneyStep{
				Page:      e.PageURL,
				Action:    string(e.EventType),
				Timestamp: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			}
			if e.ElementText != "" || e.ElementID != "" {
				step.Element = e.ElementKey()
			}
			journey.Steps = append(journey.Steps, step)

			if !journey.Converted && isConversion(e) {
				journey.Converted = true
			}
		}

		if len(journey.Steps) < 2 {
			continue
		}

		first := entries[0].event.CreatedAt
		last := entries[len(entries)-1].event.CreatedAt
		journey.DurationSeconds = int64(last.Sub(first).Seconds())

		journeys = append(journeys, journey)
	}

	sort.Slice(journeys, func(i, j int) bool {
		if len(journeys[i].Steps) != len(journeys[j].Steps) {
			return len(journeys[i].Steps) > len(journeys[j].Steps)
		}
		return journeys[i].SessionID < journeys[j].SessionID
	})

	if len(journeys) > limit {
		journeys = journeys[:limit]
	}
	return journeys
}

// CommonPaths extracts the most frequent entry paths: the first three page
// names of each journey joined by the path separator, counted across all
// journeys, top five returned.
func CommonPaths(journeys []Journey) []CommonPath {
	counts := make(map[string]int)
	for _, journey := range journeys {
		pages := make([]string, 0, 3)
		for _, step := range journey.Steps {
			pages = append(pages, step.Page)
			if len(pages) == 3 {
				break
			}
		}
		if len(pages) == 0 {
			continue
		}
		counts[strings.Join(pages, PathSeparator)]++
	}

	paths := make([]CommonPath, 0, len(counts))
	for path, count := range counts {
		paths = append(paths, CommonPath{Path: path, Count: count})
	}
	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Count != paths[j].Count {
			return paths[i].Count > paths[j].Count
		}
		return paths[i].Path < paths[j].Path
	})

	if len(paths) > 5 {
		paths = paths[:5]
	}
	return paths
}
