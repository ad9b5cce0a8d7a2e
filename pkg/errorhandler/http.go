package errorhandler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

// NewHTTPErrorHandler translates error kinds into `{"error": "..."}` responses.
// Errors of no known kind are logged and answered with 500.
func NewHTTPErrorHandler() func(ctx *fiber.Ctx, err error) error {
	return func(ctx *fiber.Ctx, err error) error {
		if e := new(errs.ConflictError); errors.As(err, &e) {
			body := map[string]any{"error": e.Message}
			if len(e.Result) > 0 {
				body["result"] = e.Result
			}
			return errors.WithStack(ctx.Status(http.StatusConflict).JSON(body))
		}
		if e := new(errs.PublicError); errors.As(err, &e) {
			return errors.WithStack(ctx.Status(statusCode(err, http.StatusBadRequest)).JSON(map[string]any{
				"error": e.Message(),
			}))
		}
		if e := new(fiber.Error); errors.As(err, &e) {
			return errors.WithStack(ctx.Status(e.Code).JSON(map[string]any{
				"error": e.Message,
			}))
		}

		status := statusCode(err, http.StatusInternalServerError)
		switch status {
		case http.StatusInternalServerError:
			logger.ErrorContext(ctx.UserContext(), "Something went wrong, unhandled api error", err,
				slogx.String("event", "api_unhandled_error"),
			)
			return errors.WithStack(ctx.Status(status).JSON(map[string]any{
				"error": "Internal Server Error",
			}))
		case http.StatusServiceUnavailable:
			logger.WarnContext(ctx.UserContext(), "Dependency is unavailable",
				slogx.String("event", "api_unavailable"),
				slogx.Error(err),
			)
		}
		return errors.WithStack(ctx.Status(status).JSON(map[string]any{
			"error": http.StatusText(status),
		}))
	}
}

func statusCode(err error, fallback int) int {
	switch {
	case errors.Is(err, errs.Conflict):
		return http.StatusConflict
	case errors.Is(err, errs.NotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.UpstreamRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.Unavailable), errors.Is(err, errs.Timeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.InvalidArgument):
		return http.StatusBadRequest
	}
	return fallback
}
