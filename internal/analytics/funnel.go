// Package analytics holds the pure aggregation functions that turn an
// in-memory event batch into funnels, heatmaps, journeys and breakdowns.
// Every function in this package is total: empty input yields zeroed
// results, never an error.
package analytics

import (
	"math"

	"clickpulse/internal/events"
)

// StepDefinition pairs a funnel step name with the predicate that decides
// whether an event belongs to the step.
type StepDefinition struct {
	Name  string
	Match func(events.Event) bool
}

// FunnelStep is one computed funnel stage. Percentage is relative to the
// first step; DropOffPercent is relative to the previous step and never
// negative.
type FunnelStep struct {
	Name           string  `json:"name"`
	Count          int     `json:"count"`
	Percentage     float64 `json:"percentage"`
	DropOffPercent int     `json:"dropOffPercent"`
}

// BuildFunnel counts batch events per step definition, in order. The
// divisor for percentages is max(count[0], 1) so an empty first step does
// not divide by zero.
func BuildFunnel(batch []events.Event, steps []StepDefinition) []FunnelStep {
	result := make([]FunnelStep, len(steps))

	for i, step := range steps {
		count := 0
		for _, e := range batch {
			if step.Match(e) {
				count++
			}
		}
		result[i] = FunnelStep{Name: step.Name, Count: count}
	}

	base := 1
	if len(result) > 0 && result[0].Count > 0 {
		base = result[0].Count
	}

	for i := range result {
		result[i].Percentage = float64(result[i].Count) / float64(base) * 100

		if i == 0 {
			continue
		}
		prev := result[i-1].Count
		if prev > 0 {
			dropOff := int(math.Round(float64(prev-result[i].Count) / float64(prev) * 100))
			if dropOff < 0 {
				dropOff = 0
			}
			result[i].DropOffPercent = dropOff
		}
	}

	return result
}
