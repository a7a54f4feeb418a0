// Package internal contains core application functionality
package internal

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	v1 "clickpulse/api/v1"
	clickhttp "clickpulse/internal/http"
)

// publicCORSConfig is the permissive CORS setup for the tracking
// endpoint, which is called cross-origin from customer pages.
var publicCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, User-Agent",
}

// MountAppRoutes mounts all application routes on the Fiber app.
func MountAppRoutes(app *fiber.App, h *clickhttp.Handlers, collect *v1.CollectHandler) {
	app.Get("/health", h.HealthShow)

	// Public ingestion API.
	api := app.Group("/api/v1", cors.New(publicCORSConfig))
	api.Post("/events", collect.Create)

	// Admin dashboard API.
	admin := app.Group("/admin")
	admin.Get("/dashboard", h.DashboardShow)
	admin.Post("/dashboard/view", h.DashboardSetView)
	admin.Post("/dashboard/refresh", h.DashboardRefresh)
	admin.Get("/location", h.LocationShow)
	admin.Post("/struggle", h.StruggleRun)

	admin.Get("/events", h.EventsIndex)
	admin.Delete("/events", h.EventsBulkDelete)
	admin.Get("/export", h.ExportDownload)

	admin.Get("/privacy", h.PrivacyShow)
	admin.Patch("/privacy", h.PrivacyUpdate)
	admin.Post("/privacy/save", h.PrivacySave)
}
