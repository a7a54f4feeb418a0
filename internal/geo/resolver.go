// Package geo resolves the dashboard operator's own location through
// public IP geolocation services. Resolution is best effort: when every
// provider fails the dashboard shows an unavailable placeholder instead of
// an error.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"clickpulse/internal/config"
)

// Location is the resolved operator location. Unavailable is set when no
// provider could answer; the other fields are then zero.
type Location struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Unavailable bool    `json:"unavailable"`
}

// Resolver queries geolocation providers in order and caches the first
// successful answer for the lifetime of the process.
type Resolver struct {
	logger       *slog.Logger
	client       *http.Client
	primaryURL   string
	secondaryURL string
	timeout      time.Duration

	mu     sync.Mutex
	cached *Location
}

// NewResolver builds a resolver from configuration. The per-provider
// timeout bounds each attempt individually, not the whole chain.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	timeout := cfg.GeoTimeout()
	return &Resolver{
		logger:       logger,
		client:       &http.Client{Timeout: timeout},
		primaryURL:   cfg.GeoPrimaryURL,
		secondaryURL: cfg.GeoSecondaryURL,
		timeout:      timeout,
	}
}

// Resolve returns the operator location, trying the primary provider then
// the secondary. Results are cached; use Refresh to force a new lookup.
func (r *Resolver) Resolve(ctx context.Context) Location {
	r.mu.Lock()
	if r.cached != nil {
		loc := *r.cached
		r.mu.Unlock()
		return loc
	}
	r.mu.Unlock()

	loc := r.lookup(ctx)
	if !loc.Unavailable {
		r.mu.Lock()
		cached := loc
		r.cached = &cached
		r.mu.Unlock()
	}
	return loc
}

// Refresh drops the cached location and resolves again.
func (r *Resolver) Refresh(ctx context.Context) Location {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
	return r.Resolve(ctx)
}

func (r *Resolver) lookup(ctx context.Context) Location {
	if loc, err := r.queryPrimary(ctx); err == nil {
		return loc
	} else {
		r.logger.Warn("Primary geolocation provider failed, trying secondary",
			slog.String("url", r.primaryURL),
			slog.Any("error", err))
	}

	if loc, err := r.querySecondary(ctx); err == nil {
		return loc
	} else {
		r.logger.Warn("Secondary geolocation provider failed",
			slog.String("url", r.secondaryURL),
			slog.Any("error", err))
	}

	return Location{Unavailable: true}
}

// primaryResponse is the ipapi.co JSON shape.
type primaryResponse struct {
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

func (r *Resolver) queryPrimary(ctx context.Context) (Location, error) {
	body, err := r.fetch(ctx, r.primaryURL)
	if err != nil {
		return Location{}, err
	}

	var parsed primaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Location{}, fmt.Errorf("invalid provider response: %w", err)
	}
	if parsed.Error {
		return Location{}, fmt.Errorf("provider error: %s", parsed.Reason)
	}
	if parsed.CountryName == "" {
		return Location{}, fmt.Errorf("provider returned no country")
	}

	return Location{
		Country:     parsed.CountryName,
		CountryCode: parsed.CountryCode,
		City:        parsed.City,
		Region:      parsed.Region,
		Latitude:    parsed.Latitude,
		Longitude:   parsed.Longitude,
	}, nil
}

// secondaryResponse is the ip-api.com JSON shape.
type secondaryResponse struct {
	Status      string  `json:"status"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	City        string  `json:"city"`
	RegionName  string  `json:"regionName"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Message     string  `json:"message"`
}

func (r *Resolver) querySecondary(ctx context.Context) (Location, error) {
	body, err := r.fetch(ctx, r.secondaryURL)
	if err != nil {
		return Location{}, err
	}

	var parsed secondaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Location{}, fmt.Errorf("invalid provider response: %w", err)
	}
	if parsed.Status != "success" {
		return Location{}, fmt.Errorf("provider error: %s", parsed.Message)
	}

	return Location{
		Country:     parsed.Country,
		CountryCode: parsed.CountryCode,
		City:        parsed.City,
		Region:      parsed.RegionName,
		Latitude:    parsed.Lat,
		Longitude:   parsed.Lon,
	}, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
