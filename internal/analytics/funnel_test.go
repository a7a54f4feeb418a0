package analytics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickpulse/internal/analytics"
	"clickpulse/internal/events"
	"clickpulse/internal/testsupport"
)

var t0 = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func pageIn(pages ...string) func(events.Event) bool {
	return func(e events.Event) bool {
		if e.EventType != events.EventTypePageView {
			return false
		}
		for _, p := range pages {
			if e.PageURL == p {
				return true
			}
		}
		return false
	}
}

func clickWithText(text string) func(events.Event) bool {
	return func(e events.Event) bool {
		return e.EventType == events.EventTypeClick && e.ElementText == text
	}
}

func TestBuildFunnelScenario(t *testing.T) {
	var batch []events.Event
	for i := 0; i < 10; i++ {
		batch = append(batch, testsupport.PageView("s", "/", t0))
	}
	for i := 0; i < 5; i++ {
		batch = append(batch, testsupport.PageView("s", "/pricing", t0))
	}
	for i := 0; i < 3; i++ {
		batch = append(batch, testsupport.Click("s", "/pricing", "cta", "Get Quote", 0, 0, t0))
	}

	steps := []analytics.StepDefinition{
		{Name: "Landing Page", Match: pageIn("/", "/pricing")},
		{Name: "Pricing View", Match: pageIn("/pricing")},
		{Name: "Quote Request", Match: clickWithText("Get Quote")},
	}

	result := analytics.BuildFunnel(batch, steps)
	require.Len(t, result, 3)

	assert.Equal(t, 15, result[0].Count) // 10 on / plus 5 on /pricing
	assert.Equal(t, 5, result[1].Count)
	assert.Equal(t, 3, result[2].Count)

	assert.InDelta(t, 100.0, result[0].Percentage, 0.001)
	assert.InDelta(t, 33.333, result[1].Percentage, 0.01)

	assert.Equal(t, 0, result[0].DropOffPercent)
	assert.Equal(t, 67, result[1].DropOffPercent) // round((15-5)/15*100)
	assert.Equal(t, 40, result[2].DropOffPercent) // round((5-3)/5*100)
}

func TestBuildFunnelEmptyBatch(t *testing.T) {
	steps := []analytics.StepDefinition{
		{Name: "A", Match: pageIn("/")},
		{Name: "B", Match: pageIn("/next")},
	}

	result := analytics.BuildFunnel(nil, steps)
	require.Len(t, result, 2)
	for _, step := range result {
		assert.Zero(t, step.Count)
		assert.Zero(t, step.Percentage)
		assert.Zero(t, step.DropOffPercent)
	}
}

func TestBuildFunnelDropOffNeverNegative(t *testing.T) {
	// A later step can out-count an earlier one; drop-off must clamp at 0.
	batch := []events.Event{
		testsupport.PageView("s", "/", t0),
		testsupport.PageView("s", "/next", t0),
		testsupport.PageView("s", "/next", t0),
		testsupport.PageView("s", "/next", t0),
	}
	steps := []analytics.StepDefinition{
		{Name: "A", Match: pageIn("/")},
		{Name: "B", Match: pageIn("/next")},
	}

	result := analytics.BuildFunnel(batch, steps)
	assert.Equal(t, 1, result[0].Count)
	assert.Equal(t, 3, result[1].Count)
	assert.GreaterOrEqual(t, result[1].DropOffPercent, 0)
}

func TestBuildFunnelZeroPreviousStep(t *testing.T) {
	batch := []events.Event{testsupport.PageView("s", "/last", t0)}
	steps := []analytics.StepDefinition{
		{Name: "A", Match: pageIn("/nowhere")},
		{Name: "B", Match: pageIn("/last")},
	}

	result := analytics.BuildFunnel(batch, steps)
	assert.Zero(t, result[0].Count)
	// Division guard: percentage base is max(count[0], 1).
	assert.InDelta(t, 100.0, result[1].Percentage, 0.001)
	assert.Zero(t, result[1].DropOffPercent)
}

func TestLoadFunnels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "funnels.yml")
	content := `
funnels:
  - name: Signup
    steps:
      - name: Landing Page
        pages: ["/", "/pricing"]
        eventType: pageview
      - name: Quote Request
        eventType: click
        elementText: Get Quote
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	funnels, err := analytics.LoadFunnels(path)
	require.NoError(t, err)
	require.Len(t, funnels, 1)
	assert.Equal(t, "Signup", funnels[0].Name)

	steps := funnels[0].Compile()
	require.Len(t, steps, 2)

	assert.True(t, steps[0].Match(testsupport.PageView("s", "/pricing", t0)))
	assert.False(t, steps[0].Match(testsupport.PageView("s", "/blog", t0)))
	assert.False(t, steps[0].Match(testsupport.Click("s", "/", "x", "y", 0, 0, t0)))

	assert.True(t, steps[1].Match(testsupport.Click("s", "/pricing", "cta", "Get Quote", 0, 0, t0)))
	assert.False(t, steps[1].Match(testsupport.Click("s", "/pricing", "cta", "Learn More", 0, 0, t0)))
}

func TestLoadFunnelsMissingFileIsEmpty(t *testing.T) {
	funnels, err := analytics.LoadFunnels(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Empty(t, funnels)
}

func TestLoadFunnelsRejectsUnnamedSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funnels.yml")
	require.NoError(t, os.WriteFile(path, []byte("funnels:\n  - name: X\n    steps:\n      - pages: [\"/\"]\n"), 0o644))

	_, err := analytics.LoadFunnels(path)
	assert.Error(t, err)
}
