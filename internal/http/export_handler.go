package http

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"clickpulse/internal/export"
)

// ExportDownload serializes the currently held batch. Email delivery
// requests degrade to a download with a notice header.
func (h *Handlers) ExportDownload(c *fiber.Ctx) error {
	snapshot := h.Orchestrator.Snapshot()

	format := export.Format(c.Query("format", string(export.FormatCSV)))
	opts := export.Options{
		IncludeMetadata: c.QueryBool("includeMetadata", false),
		IncludeSessions: c.QueryBool("includeSessions", false),
	}
	method := export.DeliveryMethod(c.Query("method", string(export.DeliverDownload)))

	result, err := export.Deliver(snapshot.Batch, snapshot.Overview, format, opts, method)
	if err != nil {
		var exportErr *export.ExportError
		if errors.As(err, &exportErr) {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": exportErr.Error()})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	contentType := "text/csv"
	if format == export.FormatJSON {
		contentType = "application/json"
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+result.Filename+`"`)
	if result.Notice != "" {
		c.Set("X-Export-Notice", result.Notice)
	}
	return c.Send(result.Payload)
}
