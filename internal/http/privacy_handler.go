package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"clickpulse/internal/privacy"
)

// PrivacyShow returns the active privacy settings.
func (h *Handlers) PrivacyShow(c *fiber.Ctx) error {
	return c.JSON(h.Enforcer.Current())
}

// PrivacyUpdate applies a partial settings update. Attempts to disable
// the required masking fields are rejected, not silently ignored.
func (h *Handlers) PrivacyUpdate(c *fiber.Ctx) error {
	var update privacy.Update
	if err := c.BodyParser(&update); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	updated, err := h.Enforcer.Apply(update)
	if err != nil {
		var violation *privacy.PolicyViolation
		if errors.As(err, &violation) {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": violation.Error(),
				"field": violation.Field,
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(updated)
}

// PrivacySave persists the in-memory settings. Until this runs, edits
// are visible to the current session only.
func (h *Handlers) PrivacySave(c *fiber.Ctx) error {
	if err := h.Enforcer.Save(); err != nil {
		h.Logger.Error("Failed to save privacy settings", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save settings"})
	}
	return c.JSON(fiber.Map{"saved": true})
}
