package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

type getWebhooksResult struct {
	List []webhook `json:"list"`
}

func (h *HttpHandler) GetWebhooks(ctx *fiber.Ctx) (err error) {
	webhooks, err := h.usecase.GetWebhooks(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during GetWebhooks")
	}
	return errors.WithStack(ctx.JSON(getWebhooksResult{
		List: lo.Map(webhooks, func(w *entity.Webhook, _ int) webhook { return mapWebhook(w) }),
	}))
}
