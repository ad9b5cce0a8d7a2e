// Package requestcontext copies per request values (request id, client ip) from fiber into the request's context.Context,
// so handlers and loggers downstream can read them without a *fiber.Ctx.
package requestcontext

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sss-network/sss-indexer/pkg/logger"
)

// Option derives the next request context. Returning a *fiber.Error rejects the request with that status.
type Option func(ctx context.Context, c *fiber.Ctx) (context.Context, error)

func New(opts ...Option) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		for _, opt := range opts {
			next, err := opt(ctx, c)
			if err != nil {
				if fe := new(fiber.Error); errors.As(err, &fe) {
					return fe
				}
				logger.ErrorContext(ctx, "Failed to setup request context", err, slog.String("package", "requestcontext"))
				return fiber.ErrInternalServerError
			}
			ctx = next
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}
