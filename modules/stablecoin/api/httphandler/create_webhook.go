package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/usecase"
)

type createWebhookRequest struct {
	URL        string   `json:"url"`
	EventTypes []string `json:"eventTypes"`
	Secret     string   `json:"secret"`
}

func (h *HttpHandler) CreateWebhook(ctx *fiber.Ctx) (err error) {
	if err := validateBody(webhookRequestSchema, ctx.Body()); err != nil {
		return errors.WithStack(err)
	}
	var req createWebhookRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return errs.NewPublicError("invalid request body")
	}

	created, err := h.usecase.CreateWebhook(ctx.UserContext(), usecase.CreateWebhookInput{
		URL:        req.URL,
		EventTypes: req.EventTypes,
		Secret:     req.Secret,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(ctx.Status(http.StatusCreated).JSON(mapWebhook(created)))
}
