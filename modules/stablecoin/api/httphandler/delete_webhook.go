package httphandler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sss-network/sss-indexer/common/errs"
)

// parseWebhookID treats a malformed id as an unknown webhook.
func parseWebhookID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.UUID{}, errors.Wrap(errs.NotFound, "webhook not found")
	}
	return id, nil
}

func (h *HttpHandler) DeleteWebhook(ctx *fiber.Ctx) (err error) {
	id, err := parseWebhookID(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := h.usecase.DeleteWebhook(ctx.UserContext(), id); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(ctx.SendStatus(http.StatusNoContent))
}
