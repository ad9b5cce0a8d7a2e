package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/sss-network/sss-indexer/common"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

type getOperationsRequest struct {
	Type  string `query:"type"`
	From  string `query:"from"`
	To    string `query:"to"`
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
}

type getOperationsResponse = common.Page[operation]

func (h *HttpHandler) GetOperations(ctx *fiber.Ctx) (err error) {
	var req getOperationsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	page := pageRequest{Page: req.Page, Limit: req.Limit}
	errList := page.validate()
	if req.Type != "" && !entity.OperationKind(req.Type).IsValid() {
		errList = append(errList, errors.Newf("'type' %q is not a known command kind", req.Type))
	}
	timeRange, rangeErrs := parseTimeRange(req.From, req.To)
	if err := validationError(append(errList, rangeErrs...)); err != nil {
		return errors.WithStack(err)
	}

	operations, total, err := h.usecase.GetOperations(ctx.UserContext(), entity.OperationFilter{
		Kind:   entity.OperationKind(req.Type),
		From:   timeRange.From,
		To:     timeRange.To,
		Offset: page.offset(),
		Limit:  page.Limit,
	})
	if err != nil {
		return errors.Wrap(err, "error during GetOperations")
	}

	resp := getOperationsResponse{
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
		Items: lo.Map(operations, func(o *entity.Operation, _ int) operation { return mapOperation(o) }),
	}
	return errors.WithStack(ctx.JSON(resp))
}
