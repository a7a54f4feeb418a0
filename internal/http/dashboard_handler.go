// Package http holds the admin dashboard's HTTP handlers.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"clickpulse/internal/dashboard"
	"clickpulse/internal/events"
	"clickpulse/internal/privacy"
	"clickpulse/internal/struggle"
)

// Handlers bundles the dependencies shared by the admin endpoints.
type Handlers struct {
	Orchestrator *dashboard.Orchestrator
	Store        *events.Store
	Enforcer     *privacy.Enforcer
	DB           *gorm.DB
	Logger       *slog.Logger
}

// DashboardShow returns the active view plus the current snapshot.
func (h *Handlers) DashboardShow(c *fiber.Ctx) error {
	snapshot := h.Orchestrator.Snapshot()

	response := fiber.Map{
		"view":      h.Orchestrator.View(),
		"newEvents": h.Orchestrator.NewEventsCount(),
		"stale":     h.Orchestrator.Stale(),
		"snapshot":  snapshot,
	}
	if err := h.Orchestrator.LastFetchError(); err != nil {
		response["fetchError"] = err.Error()
	}
	if loc := h.Orchestrator.Location(); loc != nil {
		response["location"] = loc
	}
	if analysis := h.Orchestrator.StruggleAnalysis(); analysis != nil {
		response["struggle"] = analysis
		response["struggleBand"] = analysis.Band()
	}

	return c.JSON(response)
}

type viewParams struct {
	View string `json:"view"`
}

// DashboardSetView switches the active view without refetching.
func (h *Handlers) DashboardSetView(c *fiber.Ctx) error {
	var params viewParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	if err := h.Orchestrator.SetView(dashboard.View(params.View)); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"view": params.View})
}

// DashboardRefresh queues a debounced manual refresh.
func (h *Handlers) DashboardRefresh(c *fiber.Ctx) error {
	h.Orchestrator.RequestRefresh()
	return c.SendStatus(http.StatusAccepted)
}

// LocationShow resolves the operator location. Unavailable is a valid
// degraded answer rendered as "Unknown Location", not an error status.
func (h *Handlers) LocationShow(c *fiber.Ctx) error {
	force := c.QueryBool("refresh", false)
	loc := h.Orchestrator.ResolveLocation(c.UserContext(), force)
	return c.JSON(loc)
}

// StruggleRun submits the held batch to the scoring service. Failures
// surface as a dismissible notice; the rest of the dashboard keeps
// working.
func (h *Handlers) StruggleRun(c *fiber.Ctx) error {
	analysis, err := h.Orchestrator.RunStruggleAnalysis(c.UserContext())
	if err != nil {
		var analysisErr *struggle.AnalysisError
		if errors.As(err, &analysisErr) {
			h.Logger.Warn("Struggle analysis failed", slog.Any("error", err))
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{
				"error":       analysisErr.Error(),
				"dismissible": true,
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"analysis": analysis,
		"band":     analysis.Band(),
	})
}
