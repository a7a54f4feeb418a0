package analytics

import (
	"sort"
	"strings"

	"github.com/pariz/gountries"

	"clickpulse/internal/events"
	"clickpulse/internal/pkg/useragent"
)

// BreakdownEntry is one ranked category in a device or geo breakdown.
// Counts are distinct sessions, not raw events, so one chatty session
// cannot dominate the split.
type BreakdownEntry struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DeviceBreakdown splits the batch's sessions by device class, browser and
// operating system.
type DeviceBreakdown struct {
	Devices          []BreakdownEntry `json:"devices"`
	Browsers         []BreakdownEntry `json:"browsers"`
	OperatingSystems []BreakdownEntry `json:"operatingSystems"`
}

// BuildDeviceBreakdown classifies each session's user agent once, using
// the first event carrying a non-empty agent string.
func BuildDeviceBreakdown(batch []events.Event) DeviceBreakdown {
	agentBySession := make(map[string]string)
	for _, e := range batch {
		if _, seen := agentBySession[e.SessionID]; !seen || agentBySession[e.SessionID] == "" {
			agentBySession[e.SessionID] = e.UserAgent
		}
	}

	devices := make(map[string]int)
	browsers := make(map[string]int)
	oses := make(map[string]int)
	for _, agent := range agentBySession {
		c := useragent.Classify(agent)
		devices[c.Device]++
		browsers[c.Browser]++
		oses[c.OS]++
	}

	total := len(agentBySession)
	return DeviceBreakdown{
		Devices:          rankEntries(devices, total),
		Browsers:         rankEntries(browsers, total),
		OperatingSystems: rankEntries(oses, total),
	}
}

// BuildGeoBreakdown splits sessions by country, expanding ISO codes to
// common country names. Sessions without a resolved country are grouped
// under "Unknown".
func BuildGeoBreakdown(batch []events.Event) []BreakdownEntry {
	countryBySession := make(map[string]string)
	for _, e := range batch {
		current, seen := countryBySession[e.SessionID]
		if !seen || current == events.UnknownCountry {
			countryBySession[e.SessionID] = e.Country
		}
	}

	query := gountries.New()
	counts := make(map[string]int)
	for _, code := range countryBySession {
		counts[countryLabel(query, code)]++
	}

	return rankEntries(counts, len(countryBySession))
}

func countryLabel(query *gountries.Query, code string) string {
	if code == "" || code == events.UnknownCountry {
		return "Unknown"
	}
	country, err := query.FindCountryByAlpha(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	return country.Name.Common
}

func rankEntries(counts map[string]int, total int) []BreakdownEntry {
	entries := make([]BreakdownEntry, 0, len(counts))
	for label, count := range counts {
		entry := BreakdownEntry{Label: label, Count: count}
		if total > 0 {
			entry.Percentage = float64(count) / float64(total) * 100
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	return entries
}
