package stablecoin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/anchor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/payload"
	"github.com/sss-network/sss-indexer/modules/stablecoin/metrics"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

// Process indexes the events of one transaction.
//
// Events, the watermark and the webhook deliveries they fan out to are written in one transaction,
// so a batch is either fully indexed or not at all. Live listeners and the dispatcher are only told
// about events after the commit.
func (p *Processor) Process(ctx context.Context, batch types.LogBatch) error {
	ctx = logger.WithContext(ctx,
		slogx.String("signature", batch.Signature),
		slog.Int64("slot", batch.Slot),
	)

	if batch.Failed {
		metrics.BatchesTotal.WithLabelValues("reverted").Inc()
		logger.DebugContext(ctx, "Skipping reverted transaction")
		return nil
	}

	// undecodable lines are dropped, the rest of the transaction is still indexed
	decoded, err := anchor.ParseLogs(p.programID, batch.Logs)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("parse_error").Inc()
		logger.WarnContext(ctx, "Failed to parse some program log lines",
			slogx.Error(err),
			slogx.String("event", "parse_error"),
			slog.Int("decoded", len(decoded)),
		)
	}

	receivedAt := batch.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = p.Now()
	}
	events := make([]*entity.Event, 0, len(decoded))
	for i, ev := range decoded {
		data := payload.Normalize(ev.Data)
		events = append(events, &entity.Event{
			Type:      ev.Name,
			Subject:   payload.Subject(data),
			Signature: naturalKey(batch.Signature, i),
			Slot:      batch.Slot,
			Timestamp: payload.Timestamp(data, receivedAt).UTC(),
			Payload:   data,
		})
	}

	result, err := p.persist(ctx, batch.Slot, events)
	if err != nil {
		return errors.WithStack(err)
	}
	inserted, enqueued, watermark := result.inserted, result.enqueued, result.watermark
	if !result.advanced {
		metrics.BatchesTotal.WithLabelValues("duplicate").Inc()
		logger.DebugContext(ctx, "Transaction was already indexed", slog.Int("events", len(events)))
		return nil
	}
	metrics.BatchesTotal.WithLabelValues("processed").Inc()
	metrics.Watermark.Set(float64(watermark))

	for _, event := range inserted {
		p.publisher.Publish(ctx, event)
	}
	if enqueued > 0 {
		p.dispatcher.Trigger()
	}

	if len(events) > 0 {
		logger.InfoContext(ctx, "Indexed transaction",
			slog.Int("events", len(events)),
			slog.Int("new_events", len(inserted)),
			slog.Int64("deliveries", enqueued),
			slog.Int64("watermark", watermark),
		)
	}
	return nil
}

type persistResult struct {
	inserted  []*entity.Event
	enqueued  int64
	watermark int64
	advanced  bool // false when every event of the batch was already indexed
}

// persist writes the new events of a batch and advances the watermark to slot.
// A batch whose events were all indexed before leaves the store untouched.
func (p *Processor) persist(ctx context.Context, slot int64, events []*entity.Event) (persistResult, error) {
	var result persistResult
	stablecoinDgTx, err := p.stablecoinDg.BeginStablecoinTx(ctx)
	if err != nil {
		return persistResult{}, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := stablecoinDgTx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to rollback transaction", slogx.Error(err))
		}
	}()

	now := p.Now()
	for _, event := range events {
		ok, err := stablecoinDgTx.InsertEventIfAbsent(ctx, event)
		if err != nil {
			return persistResult{}, errors.Wrapf(err, "failed to insert event %s", event.Signature)
		}
		if !ok {
			metrics.EventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
			logger.DebugContext(ctx, "Duplicate event", slogx.String("key", event.Signature))
			continue
		}
		metrics.EventsTotal.WithLabelValues(event.Type, "new").Inc()
		result.inserted = append(result.inserted, event)

		created, err := stablecoinDgTx.EnqueueDeliveries(ctx, event.ID, event.Type, now)
		if err != nil {
			return persistResult{}, errors.Wrapf(err, "failed to enqueue deliveries for event %d", event.ID)
		}
		result.enqueued += created
	}
	if len(events) > 0 && len(result.inserted) == 0 {
		return result, nil
	}

	result.watermark, err = stablecoinDgTx.AdvanceWatermark(ctx, slot)
	if err != nil {
		return persistResult{}, errors.Wrap(err, "failed to advance watermark")
	}
	result.advanced = true

	if err := stablecoinDgTx.Commit(ctx); err != nil {
		return persistResult{}, errors.Wrap(err, "failed to commit transaction")
	}
	return result, nil
}

// naturalKey identifies the index-th event of a transaction. The first event keeps the bare signature.
func naturalKey(signature string, index int) string {
	if index == 0 {
		return signature
	}
	return fmt.Sprintf("%s:%d", signature, index)
}
