package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sss-network/sss-indexer/modules/stablecoin/usecase"
	"github.com/sss-network/sss-indexer/pkg/bufferpool"
)

const (
	auditFormatJSON = "json"
	auditFormatCSV  = "csv"
)

type exportAuditRequest struct {
	Format string `query:"format"`
	From   string `query:"from"`
	To     string `query:"to"`
}

func (h *HttpHandler) ExportAudit(ctx *fiber.Ctx) (err error) {
	var req exportAuditRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	var errList []error
	if req.Format == "" {
		req.Format = auditFormatJSON
	}
	if req.Format != auditFormatJSON && req.Format != auditFormatCSV {
		errList = append(errList, errors.New("'format' must be json or csv"))
	}
	timeRange, rangeErrs := parseTimeRange(req.From, req.To)
	if err := validationError(append(errList, rangeErrs...)); err != nil {
		return errors.WithStack(err)
	}

	rows, err := h.usecase.GetAuditTrail(ctx.UserContext(), timeRange.From, timeRange.To)
	if err != nil {
		return errors.Wrap(err, "error during GetAuditTrail")
	}

	if req.Format == auditFormatCSV {
		buf := bufferpool.Get()
		defer buf.Release()
		if err := usecase.WriteAuditCSV(buf, rows); err != nil {
			return errors.WithStack(err)
		}
		ctx.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="audit.csv"`)
		// Write copies, the buffer goes back to the pool once the handler returns
		_, err := ctx.Write(buf.Bytes())
		return errors.WithStack(err)
	}
	if rows == nil {
		rows = []usecase.AuditRow{}
	}
	return errors.WithStack(ctx.JSON(rows))
}
