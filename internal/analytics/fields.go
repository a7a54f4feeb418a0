package analytics

import (
	"math"
	"sort"

	"clickpulse/internal/events"
)

// FieldMetric accumulates interaction counters for one form field. All
// counters are additive; derived rates are computed on read, never stored.
type FieldMetric struct {
	FieldName        string `json:"fieldName"`
	Interactions     int    `json:"interactions"`
	TotalTimeMs      int64  `json:"totalTimeMs"`
	ErrorCount       int    `json:"errorCount"`
	AbandonmentCount int    `json:"abandonmentCount"`
}

// ErrorRate returns the error percentage over interactions, 0 when the
// field has no interactions yet.
func (m FieldMetric) ErrorRate() float64 {
	if m.Interactions == 0 {
		return 0
	}
	return math.Round(float64(m.ErrorCount)/float64(m.Interactions)*100*10) / 10
}

// AbandonmentRate returns the abandonment percentage over interactions.
func (m FieldMetric) AbandonmentRate() float64 {
	if m.Interactions == 0 {
		return 0
	}
	return math.Round(float64(m.AbandonmentCount)/float64(m.Interactions)*100*10) / 10
}

// AvgTimeMs returns the mean time spent per interaction.
func (m FieldMetric) AvgTimeMs() int64 {
	if m.Interactions == 0 {
		return 0
	}
	return m.TotalTimeMs / int64(m.Interactions)
}

// FieldMetrics is the accumulation map keyed by field name.
type FieldMetrics map[string]*FieldMetric

// NewFieldMetrics returns an empty accumulation map.
func NewFieldMetrics() FieldMetrics {
	return make(FieldMetrics)
}

// Accumulate folds a batch into the metrics map with three independent
// passes: field_blur events add interactions and time, field_error events
// add error counts, form_abandonment events add per-field abandonment
// counts. Counters are additive across calls; callers wanting a fresh
// computation must start from NewFieldMetrics.
func (fm FieldMetrics) Accumulate(batch []events.Event) {
	for _, e := range batch {
		meta, ok := e.FieldBlurMeta()
		if !ok || meta.FieldName == "" {
			continue
		}
		metric := fm.get(meta.FieldName)
		metric.Interactions++
		metric.TotalTimeMs += meta.TimeSpentMs
	}

	for _, e := range batch {
		meta, ok := e.FieldErrorMeta()
		if !ok || meta.FieldName == "" {
			continue
		}
		fm.get(meta.FieldName).ErrorCount++
	}

	for _, e := range batch {
		meta, ok := e.FormAbandonmentMeta()
		if !ok {
			continue
		}
		for _, detail := range meta.FieldDetails {
			if detail.FieldName == "" {
				continue
			}
			fm.get(detail.FieldName).AbandonmentCount++
		}
	}
}

func (fm FieldMetrics) get(fieldName string) *FieldMetric {
	metric, ok := fm[fieldName]
	if !ok {
		metric = &FieldMetric{FieldName: fieldName}
		fm[fieldName] = metric
	}
	return metric
}

// Sorted returns the metrics ordered by interactions descending, field
// name ascending for ties.
func (fm FieldMetrics) Sorted() []FieldMetric {
	result := make([]FieldMetric, 0, len(fm))
	for _, metric := range fm {
		result = append(result, *metric)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Interactions != result[j].Interactions {
			return result[i].Interactions > result[j].Interactions
		}
		return result[i].FieldName < result[j].FieldName
	})
	return result
}
