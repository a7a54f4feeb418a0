package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"clickpulse/internal/pkg/geoip"
	"clickpulse/internal/privacy"
)

// CollectInput carries a raw event submitted by the tracking script. The
// IP address is used once for country enrichment and never stored.
type CollectInput struct {
	SessionID    string
	UserID       string
	PageURL      string
	ElementID    string
	ElementText  string
	ElementClass string
	EventType    EventType
	IPAddress    string
	UserAgent    string
	Metadata     map[string]any
	Timestamp    time.Time
}

var validEventTypes = map[EventType]bool{
	EventTypePageView:        true,
	EventTypeClick:           true,
	EventTypeScroll:          true,
	EventTypeFieldBlur:       true,
	EventTypeFieldError:      true,
	EventTypeFormSubmit:      true,
	EventTypeFormAbandonment: true,
}

// Collect validates, enriches and stores a raw tracking event. Events on
// privacy-excluded pages are silently dropped; that is a policy decision,
// not an error.
func Collect(store *Store, logger *slog.Logger, input *CollectInput) error {
	if input.SessionID == "" {
		return fmt.Errorf("missing session id")
	}
	if !validEventTypes[input.EventType] {
		return fmt.Errorf("unknown event type: %s", input.EventType)
	}

	pagePath, err := parseInputURL(input.PageURL, logger)
	if err != nil {
		logger.Warn("Failed to parse URL", slog.Any("error", err), slog.String("url", input.PageURL))
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	if privacy.IsPageExcludedCached(store.db, pagePath) {
		logger.Debug("Skipping event for excluded page", slog.String("page", pagePath))
		return nil
	}

	country := UnknownCountry
	if code := geoip.CountryCodeFromIP(input.IPAddress); code != "" {
		country = code
	}

	metadata := ""
	if len(input.Metadata) > 0 {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
		metadata = string(data)
	}

	event := &Event{
		SessionID:    input.SessionID,
		UserID:       input.UserID,
		EventType:    input.EventType,
		PageURL:      pagePath,
		ElementID:    input.ElementID,
		ElementText:  strings.TrimSpace(input.ElementText),
		ElementClass: input.ElementClass,
		UserAgent:    input.UserAgent,
		Country:      country,
		Metadata:     metadata,
		CreatedAt:    input.Timestamp.UTC(),
	}

	return store.Insert(event)
}

// parseInputURL normalizes a submitted page URL to its path. Full URLs are
// reduced to their path component; bare paths pass through unchanged.
func parseInputURL(urlStr string, logger *slog.Logger) (string, error) {
	if urlStr == "" {
		logger.Error("Empty URL provided")
		return "", fmt.Errorf("empty URL provided")
	}

	if strings.HasPrefix(urlStr, "/") {
		return urlStr, nil
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Hostname() == "" {
		return "", fmt.Errorf("URL missing hostname")
	}

	pathname := parsedURL.Path
	if pathname == "" {
		pathname = "/"
	}
	return pathname, nil
}
