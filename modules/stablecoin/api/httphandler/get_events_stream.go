package httphandler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

// GetEventsStream pushes newly ingested events to the client as server-sent events,
// with a comment line every keepalive interval so idle connections stay open.
func (h *HttpHandler) GetEventsStream(ctx *fiber.Ctx) (err error) {
	if !h.broker.Ready() {
		return errors.Wrap(errs.Unavailable, "live event stream is not ready")
	}

	ch := make(chan *entity.Event)
	sub, err := h.broker.Subscribe(ch)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to live events")
	}

	// the stream outlives the handler, so it must not touch ctx
	logCtx := logger.WithContext(context.Background(),
		slogx.String("package", "httphandler"),
		slogx.String("event", "events_stream"),
		slogx.String("ip", ctx.IP()),
	)
	keepalive := h.keepalive

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Unsubscribe()
		logger.DebugContext(logCtx, "live listener connected")
		defer logger.DebugContext(logCtx, "live listener disconnected")

		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()

		if err := writeComment(w, "connected"); err != nil {
			return
		}
		for {
			select {
			case event := <-ch:
				if err := writeEvent(w, event); err != nil {
					return
				}
			case <-ticker.C:
				if err := writeComment(w, "ping"); err != nil {
					return
				}
			case <-sub.Done():
				return
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, e *entity.Event) error {
	data, err := json.Marshal(mapEvent(e))
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data); err != nil {
		return errors.WithStack(err)
	}
	// a flush error means the client is gone
	return errors.WithStack(w.Flush())
}

func writeComment(w *bufio.Writer, comment string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", comment); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(w.Flush())
}
