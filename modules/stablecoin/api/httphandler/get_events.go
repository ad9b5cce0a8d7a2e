package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/sss-network/sss-indexer/common"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

type getEventsRequest struct {
	Type    string `query:"type"`
	Subject string `query:"subject"`
	From    string `query:"from"`
	To      string `query:"to"`
	Page    int    `query:"page"`
	Limit   int    `query:"limit"`
}

type getEventsResponse = common.Page[event]

func (h *HttpHandler) GetEvents(ctx *fiber.Ctx) (err error) {
	var req getEventsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	page := pageRequest{Page: req.Page, Limit: req.Limit}
	errList := page.validate()
	timeRange, rangeErrs := parseTimeRange(req.From, req.To)
	if err := validationError(append(errList, rangeErrs...)); err != nil {
		return errors.WithStack(err)
	}

	events, total, err := h.usecase.GetEvents(ctx.UserContext(), entity.EventFilter{
		Type:    req.Type,
		Subject: req.Subject,
		From:    timeRange.From,
		To:      timeRange.To,
		Offset:  page.offset(),
		Limit:   page.Limit,
	})
	if err != nil {
		return errors.Wrap(err, "error during GetEvents")
	}

	resp := getEventsResponse{
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
		Items: lo.Map(events, func(e *entity.Event, _ int) event { return mapEvent(e) }),
	}
	return errors.WithStack(ctx.JSON(resp))
}
