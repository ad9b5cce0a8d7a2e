package requestcontext

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sss-network/sss-indexer/pkg/logger"
)

type requestIDKey struct{}

// GetRequestId returns the request id stored by WithRequestId, or "".
func GetRequestId(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithRequestId reuses the id set by the requestid middleware, falling back to the request header or a new UUID.
// The id is also attached to the context logger.
func WithRequestId() Option {
	header := requestid.ConfigDefault.Header
	localKey := requestid.ConfigDefault.ContextKey
	return func(ctx context.Context, c *fiber.Ctx) (context.Context, error) {
		id, _ := c.Locals(localKey).(string)
		if id == "" {
			id = c.Get(header)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(header, id)
			c.Locals(localKey, id)
		}
		ctx = context.WithValue(ctx, requestIDKey{}, id)
		return logger.WithContext(ctx, "requestId", id), nil
	}
}
