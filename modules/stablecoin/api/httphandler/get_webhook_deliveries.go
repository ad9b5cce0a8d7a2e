package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/sss-network/sss-indexer/common"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

type getWebhookDeliveriesRequest struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

type getWebhookDeliveriesResponse = common.Page[delivery]

func (h *HttpHandler) GetWebhookDeliveries(ctx *fiber.Ctx) (err error) {
	id, err := parseWebhookID(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	var req getWebhookDeliveriesRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	page := pageRequest{Page: req.Page, Limit: req.Limit}
	if err := validationError(page.validate()); err != nil {
		return errors.WithStack(err)
	}

	deliveries, total, err := h.usecase.GetWebhookDeliveries(ctx.UserContext(), id, page.Limit, page.offset())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(ctx.JSON(getWebhookDeliveriesResponse{
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
		Items: lo.Map(deliveries, func(d *entity.Delivery, _ int) delivery { return mapDelivery(d) }),
	}))
}
