package analytics

import (
	"sort"

	"clickpulse/internal/events"
)

// DefaultHeatmapLimit caps how many cells or pages a heatmap reports.
const DefaultHeatmapLimit = 15

// HeatmapCell is one ranked element in the click-density heatmap.
// Intensity is relative to the batch maximum, so exactly one cell carries
// 100 unless the batch holds no clicks.
type HeatmapCell struct {
	ElementKey string  `json:"elementKey"`
	Page       string  `json:"page"`
	Count      int     `json:"count"`
	Intensity  float64 `json:"intensity"`
}

// BuildClickHeatmap groups click events by element key, ranks them by
// count descending and truncates to limit. Ties are broken by element key
// so the output is deterministic.
func BuildClickHeatmap(batch []events.Event, limit int) []HeatmapCell {
	if limit <= 0 {
		limit = DefaultHeatmapLimit
	}

	type cellAgg struct {
		count int
		page  string
	}
	byElement := make(map[string]*cellAgg)

	for _, e := range batch {
		if e.EventType != events.EventTypeClick {
			continue
		}
		key := e.ElementKey()
		agg, ok := byElement[key]
		if !ok {
			agg = &cellAgg{page: e.PageURL}
			byElement[key] = agg
		}
		agg.count++
	}

	cells := make([]HeatmapCell, 0, len(byElement))
	maxCount := 0
	for key, agg := range byElement {
		cells = append(cells, HeatmapCell{ElementKey: key, Page: agg.page, Count: agg.count})
		if agg.count > maxCount {
			maxCount = agg.count
		}
	}

	for i := range cells {
		cells[i].Intensity = float64(cells[i].Count) / float64(maxCount) * 100
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Count != cells[j].Count {
			return cells[i].Count > cells[j].Count
		}
		return cells[i].ElementKey < cells[j].ElementKey
	})

	if len(cells) > limit {
		cells = cells[:limit]
	}
	return cells
}

// ScrollDepthBucket is one depth stop on a page's scroll histogram.
type ScrollDepthBucket struct {
	Percent int `json:"percent"`
	Count   int `json:"count"`
}

// PageScrollHistogram is the per-page scroll-depth distribution, buckets
// ordered by percent ascending.
type PageScrollHistogram struct {
	Page       string              `json:"page"`
	TotalViews int                 `json:"totalViews"`
	Buckets    []ScrollDepthBucket `json:"buckets"`
}

// BuildScrollHistogram groups scroll events by page then by reported depth
// percent. Pages are ranked by total scroll views descending and capped to
// limit.
func BuildScrollHistogram(batch []events.Event, limit int) []PageScrollHistogram {
	if limit <= 0 {
		limit = DefaultHeatmapLimit
	}

	byPage := make(map[string]map[int]int)
	for _, e := range batch {
		meta, ok := e.ScrollMeta()
		if !ok {
			continue
		}
		depths, exists := byPage[e.PageURL]
		if !exists {
			depths = make(map[int]int)
			byPage[e.PageURL] = depths
		}
		depths[meta.Depth]++
	}

	histograms := make([]PageScrollHistogram, 0, len(byPage))
	for page, depths := range byPage {
		buckets := make([]ScrollDepthBucket, 0, len(depths))
		total := 0
		for percent, count := range depths {
			buckets = append(buckets, ScrollDepthBucket{Percent: percent, Count: count})
			total += count
		}
		sort.Slice(buckets, func(i, j int) bool { return buckets[i].Percent < buckets[j].Percent })
		histograms = append(histograms, PageScrollHistogram{Page: page, TotalViews: total, Buckets: buckets})
	}

	sort.Slice(histograms, func(i, j int) bool {
		if histograms[i].TotalViews != histograms[j].TotalViews {
			return histograms[i].TotalViews > histograms[j].TotalViews
		}
		return histograms[i].Page < histograms[j].Page
	})

	if len(histograms) > limit {
		histograms = histograms[:limit]
	}
	return histograms
}
