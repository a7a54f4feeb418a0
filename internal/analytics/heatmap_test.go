package analytics_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickpulse/internal/analytics"
	"clickpulse/internal/events"
	"clickpulse/internal/testsupport"
)

func TestBuildClickHeatmap(t *testing.T) {
	var batch []events.Event
	for i := 0; i < 6; i++ {
		batch = append(batch, testsupport.Click("s", "/pricing", "cta", "Get Quote", 0, 0, t0))
	}
	for i := 0; i < 3; i++ {
		batch = append(batch, testsupport.Click("s", "/", "nav", "Docs", 0, 0, t0))
	}
	batch = append(batch, testsupport.Click("s", "/", "", "", 0, 0, t0))
	// Non-clicks are ignored entirely.
	batch = append(batch, testsupport.PageView("s", "/", t0))

	cells := analytics.BuildClickHeatmap(batch, 15)
	require.Len(t, cells, 3)

	assert.Equal(t, "Get Quote", cells[0].ElementKey)
	assert.Equal(t, 6, cells[0].Count)
	assert.Equal(t, 100.0, cells[0].Intensity)
	assert.Equal(t, "/pricing", cells[0].Page)

	assert.Equal(t, "Docs", cells[1].ElementKey)
	assert.Equal(t, 50.0, cells[1].Intensity)

	assert.Equal(t, events.UnknownElement, cells[2].ElementKey)

	for _, cell := range cells {
		assert.GreaterOrEqual(t, cell.Intensity, 0.0)
		assert.LessOrEqual(t, cell.Intensity, 100.0)
	}
}

func TestBuildClickHeatmapTruncatesToLimit(t *testing.T) {
	var batch []events.Event
	for i := 0; i < 20; i++ {
		text := fmt.Sprintf("Button %02d", i)
		for j := 0; j <= i; j++ {
			batch = append(batch, testsupport.Click("s", "/", "", text, 0, 0, t0))
		}
	}

	cells := analytics.BuildClickHeatmap(batch, 15)
	require.Len(t, cells, 15)
	assert.Equal(t, "Button 19", cells[0].ElementKey)
	assert.Equal(t, 100.0, cells[0].Intensity)
}

func TestBuildClickHeatmapEmptyBatch(t *testing.T) {
	assert.Empty(t, analytics.BuildClickHeatmap(nil, 15))
}

func TestBuildScrollHistogram(t *testing.T) {
	batch := []events.Event{
		testsupport.Scroll("s1", "/article", 25, t0),
		testsupport.Scroll("s1", "/article", 50, t0),
		testsupport.Scroll("s2", "/article", 50, t0),
		testsupport.Scroll("s2", "/article", 100, t0),
		testsupport.Scroll("s1", "/about", 75, t0),
	}

	histograms := analytics.BuildScrollHistogram(batch, 15)
	require.Len(t, histograms, 2)

	// Pages ranked by total scroll views descending.
	article := histograms[0]
	assert.Equal(t, "/article", article.Page)
	assert.Equal(t, 4, article.TotalViews)

	// Buckets ordered by percent ascending.
	require.Len(t, article.Buckets, 3)
	assert.Equal(t, analytics.ScrollDepthBucket{Percent: 25, Count: 1}, article.Buckets[0])
	assert.Equal(t, analytics.ScrollDepthBucket{Percent: 50, Count: 2}, article.Buckets[1])
	assert.Equal(t, analytics.ScrollDepthBucket{Percent: 100, Count: 1}, article.Buckets[2])

	assert.Equal(t, "/about", histograms[1].Page)
}

func TestBuildScrollHistogramIgnoresMalformedMetadata(t *testing.T) {
	batch := []events.Event{
		{SessionID: "s1", EventType: events.EventTypeScroll, PageURL: "/x", Metadata: "not json", CreatedAt: t0},
		testsupport.Scroll("s1", "/x", 50, t0),
	}

	histograms := analytics.BuildScrollHistogram(batch, 15)
	require.Len(t, histograms, 1)
	assert.Equal(t, 1, histograms[0].TotalViews)
}
