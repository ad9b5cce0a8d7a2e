package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	router.Post("/commands", h.SubmitCommand)
	router.Get("/operations", h.GetOperations)
	router.Get("/events", h.GetEvents)
	router.Get("/events/stream", h.GetEventsStream)
	router.Post("/webhooks", h.CreateWebhook)
	router.Get("/webhooks", h.GetWebhooks)
	router.Delete("/webhooks/:id", h.DeleteWebhook)
	router.Get("/webhooks/:id/deliveries", h.GetWebhookDeliveries)
	router.Get("/audit/export", h.ExportAudit)
	router.Get("/status", h.GetStatus)
	return nil
}
