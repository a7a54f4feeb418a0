// Package v1 is the public event ingestion API used by the tracking
// script embedded on customer pages.
package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"clickpulse/internal/events"
)

const msgEventAdded = "Event added successfully"

// CreateEventParams is the collect request payload.
type CreateEventParams struct {
	SessionID    string           `json:"sessionId"`
	UserID       string           `json:"userId"`
	EventType    events.EventType `json:"eventType"`
	URL          string           `json:"url"`
	ElementID    string           `json:"elementId"`
	ElementText  string           `json:"elementText"`
	ElementClass string           `json:"elementClass"`
	Metadata     map[string]any   `json:"metadata"`
	Timestamp    time.Time        `json:"timestamp"`
	UserAgent    string           `json:"userAgent"`
}

// CollectHandler serves POST /api/v1/events.
type CollectHandler struct {
	Store  *events.Store
	Logger *slog.Logger
}

// Create ingests one tracking event.
func (h *CollectHandler) Create(c *fiber.Ctx) error {
	var params CreateEventParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request",
			"code":  "INVALID_REQUEST",
		})
	}

	userAgent := params.UserAgent
	if userAgent == "" {
		userAgent = c.Get("User-Agent")
	}
	timestamp := params.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	input := &events.CollectInput{
		SessionID:    params.SessionID,
		UserID:       params.UserID,
		PageURL:      params.URL,
		ElementID:    params.ElementID,
		ElementText:  params.ElementText,
		ElementClass: params.ElementClass,
		EventType:    params.EventType,
		IPAddress:    getClientIP(c),
		UserAgent:    userAgent,
		Metadata:     params.Metadata,
		Timestamp:    timestamp,
	}

	if err := events.Collect(h.Store, h.Logger, input); err != nil {
		h.Logger.Error("Failed to collect event", slog.Any("error", err))
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "busy") {
			return c.Status(599).JSON(fiber.Map{})
		}

		var fetchErr *events.FetchError
		if errors.As(err, &fetchErr) {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to store event",
				"code":  "COLLECTION_ERROR",
			})
		}

		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INVALID_EVENT",
		})
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgEventAdded,
		"status":  http.StatusAccepted,
	})
}
