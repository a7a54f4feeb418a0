package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"clickpulse/internal/events"
)

// EventsIndex lists stored events with optional filters. Ranges come as
// RFC 3339 query parameters.
func (h *Handlers) EventsIndex(c *fiber.Ctx) error {
	filter := events.Filter{
		EventType: events.EventType(c.Query("type")),
		SessionID: c.Query("session"),
		PageURL:   c.Query("page"),
		Limit:     c.QueryInt("limit", 0),
	}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid since timestamp"})
		}
		filter.Since = since
	}
	if raw := c.Query("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid until timestamp"})
		}
		filter.Until = until
	}

	results, err := h.Store.FetchEvents(filter)
	if err != nil {
		var rangeErr *events.InvalidRangeError
		if errors.As(err, &rangeErr) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": rangeErr.Error()})
		}
		h.Logger.Error("Failed to fetch events", slog.Any("error", err))
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"error":     "event store unavailable",
			"retryable": true,
		})
	}

	return c.JSON(fiber.Map{
		"events": results,
		"count":  len(results),
	})
}

type bulkDeleteParams struct {
	Confirmation string `json:"confirmation"`
}

// EventsBulkDelete removes every stored event. The exact confirmation
// phrase gates the operation; there is no undo.
func (h *Handlers) EventsBulkDelete(c *fiber.Ctx) error {
	var params bulkDeleteParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	deleted, err := h.Orchestrator.DeleteAllEvents(c.UserContext(), params.Confirmation)
	if err != nil {
		if errors.Is(err, events.ErrConfirmationRequired) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error":        err.Error(),
				"confirmation": events.BulkDeleteConfirmation,
			})
		}
		h.Logger.Error("Bulk delete failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "bulk delete failed"})
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}
