// Package struggle submits event samples to an external scoring service
// and interprets the returned frustration score. The dashboard must stay
// usable without these results, so every failure surfaces as a typed
// AnalysisError rather than a fabricated score.
package struggle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"clickpulse/internal/analytics"
	"clickpulse/internal/config"
	"clickpulse/internal/events"
)

// Frustration score bands. The thresholds are referenced by alert docs,
// so they must not drift.
const (
	BandHigh     = "High Frustration"
	BandModerate = "Moderate Friction"
	BandSmooth   = "Smooth Experience"
)

// Analysis is the scoring service's structured response, passed through
// verbatim.
type Analysis struct {
	RageClicks              int                     `json:"rageClicks"`
	DeadClicks              int                     `json:"deadClicks"`
	FormAbandonment         int                     `json:"formAbandonment"`
	FieldAnalytics          []analytics.FieldMetric `json:"fieldAnalytics"`
	AIInsights              []string                `json:"aiInsights"`
	OverallFrustrationScore int                     `json:"overallFrustrationScore"`
	Recommendations         []string                `json:"recommendations"`
}

// Band classifies the overall score into the documented frustration bands.
func (a Analysis) Band() string {
	return FrustrationBand(a.OverallFrustrationScore)
}

// FrustrationBand maps a score to its band: >=70 high, 40-69 moderate,
// below 40 smooth.
func FrustrationBand(score int) string {
	switch {
	case score >= 70:
		return BandHigh
	case score >= 40:
		return BandModerate
	default:
		return BandSmooth
	}
}

// AnalysisError reports a failed scoring call. The dashboard surfaces it
// as a dismissible notice and keeps every other view working.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("struggle analysis failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("struggle analysis failed: %s", e.Reason)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Detector calls the external scoring service.
type Detector struct {
	logger      *slog.Logger
	client      *http.Client
	endpoint    string
	apiKey      string
	sampleLimit int
}

// NewDetector builds a detector from configuration. The HTTP client
// timeout is the hard bound: a hanging service call fails instead of
// blocking the dashboard.
func NewDetector(cfg *config.Config, logger *slog.Logger) *Detector {
	return &Detector{
		logger:      logger,
		client:      &http.Client{Timeout: cfg.StruggleTimeout()},
		endpoint:    cfg.StruggleEndpoint,
		apiKey:      cfg.StruggleAPIKey,
		sampleLimit: cfg.StruggleSampleLimit,
	}
}

// submission is the request payload sent to the scoring service.
type submission struct {
	Events []events.Event `json:"events"`
}

// Analyze submits at most the configured sample of events and returns the
// service's analysis. The context cancels an in-flight call when the
// dashboard navigates away.
func (d *Detector) Analyze(ctx context.Context, batch []events.Event) (*Analysis, error) {
	if d.endpoint == "" {
		return nil, &AnalysisError{Reason: "no scoring endpoint configured"}
	}

	sample := batch
	if d.sampleLimit > 0 && len(sample) > d.sampleLimit {
		sample = sample[:d.sampleLimit]
	}

	payload, err := json.Marshal(submission{Events: sample})
	if err != nil {
		return nil, &AnalysisError{Reason: "failed to encode events", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &AnalysisError{Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &AnalysisError{Reason: "scoring service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AnalysisError{Reason: fmt.Sprintf("scoring service returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &AnalysisError{Reason: "failed to read response", Err: err}
	}

	var analysis Analysis
	if err := json.Unmarshal(body, &analysis); err != nil {
		return nil, &AnalysisError{Reason: "invalid scoring response", Err: err}
	}
	if analysis.OverallFrustrationScore < 0 || analysis.OverallFrustrationScore > 100 {
		return nil, &AnalysisError{Reason: fmt.Sprintf("score %d out of range", analysis.OverallFrustrationScore)}
	}

	d.logger.Debug("Struggle analysis completed",
		slog.Int("submitted_events", len(sample)),
		slog.Int("score", analysis.OverallFrustrationScore),
		slog.Duration("elapsed", time.Since(start)))

	return &analysis, nil
}
