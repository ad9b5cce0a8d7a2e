package httphandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/usecase"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type submitCommandRequest struct {
	Kind   string      `json:"kind"`
	Target string      `json:"target"`
	To     string      `json:"to"`
	Amount json.Number `json:"amount"`
	Memo   string      `json:"memo"`
	Reason string      `json:"reason"`
	Roles  *int        `json:"roles"`
	Quota  json.Number `json:"quota"`
}

func (h *HttpHandler) SubmitCommand(ctx *fiber.Ctx) (err error) {
	key := strings.TrimSpace(ctx.Get(IdempotencyKeyHeader))
	if key == "" {
		return errs.NewPublicError("'Idempotency-Key' header is required")
	}
	if err := validateBody(commandRequestSchema, ctx.Body()); err != nil {
		return errors.WithStack(err)
	}

	var req submitCommandRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return errs.NewPublicError("invalid request body: 'amount' and 'quota' must be integer numbers of base units")
	}
	cmd, err := usecase.CommandInput{
		Kind:   req.Kind,
		Target: req.Target,
		To:     req.To,
		Amount: req.Amount.String(),
		Memo:   req.Memo,
		Reason: req.Reason,
		Roles:  req.Roles,
		Quota:  req.Quota.String(),
	}.Validate()
	if err != nil {
		return errors.WithStack(err)
	}

	response, err := h.usecase.SubmitCommand(ctx.UserContext(), key, cmd)
	if err != nil {
		return errors.WithStack(err)
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return errors.WithStack(ctx.Status(http.StatusCreated).Send(response))
}
