package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/datagateway"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/metrics"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchLimit  = 50
	DefaultConcurrency = 8
	DefaultClaimLease  = time.Minute
)

// Store is what the dispatcher needs from the data gateway.
type Store interface {
	datagateway.WebhookDataGateway
	GetEventByID(ctx context.Context, id int64) (*entity.Event, error)
}

type DispatcherConfig struct {
	Policy      RetryPolicy
	BatchLimit  int
	Concurrency int
	// ClaimLease hides a claimed delivery from other dispatchers until its attempt is recorded.
	// Deliveries are claimed one wave of Concurrency at a time, so the lease only has to outlive one attempt.
	ClaimLease time.Duration
	// AttemptTimeout bounds a single send. It must be shorter than ClaimLease.
	AttemptTimeout time.Duration
}

// Validate rejects a lease that could expire while an attempt is still in flight.
func (c DispatcherConfig) Validate() error {
	if c.ClaimLease > 0 && c.AttemptTimeout > 0 && c.ClaimLease <= c.AttemptTimeout {
		return errors.Wrapf(errs.InvalidArgument, "claim lease %s must be longer than the attempt timeout %s", c.ClaimLease, c.AttemptTimeout)
	}
	return nil
}

type Dispatcher struct {
	store  Store
	sender Sender
	config DispatcherConfig

	Now func() time.Time
}

type DispatchStats struct {
	Claimed   int
	Delivered int
	Failed    int
	Skipped   int // deliveries finalized without an attempt because their webhook or event is gone
	Lost      int // attempts not recorded because another dispatcher took the delivery over
}

func NewDispatcher(store Store, sender Sender, config DispatcherConfig) *Dispatcher {
	if config.BatchLimit <= 0 {
		config.BatchLimit = DefaultBatchLimit
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultRequestTimeout
	}
	if config.ClaimLease <= 0 {
		config.ClaimLease = max(DefaultClaimLease, 2*config.AttemptTimeout)
	}
	return &Dispatcher{
		store:  store,
		sender: sender,
		config: config,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// EnqueueForEvent creates one pending delivery per active webhook subscribed to eventType.
func (d *Dispatcher) EnqueueForEvent(ctx context.Context, eventID int64, eventType string) (int64, error) {
	created, err := d.store.EnqueueDeliveries(ctx, eventID, eventType, d.Now())
	if err != nil {
		return 0, errors.Wrap(err, "failed to enqueue deliveries")
	}
	return created, nil
}

// DispatchPending claims up to batchLimit due deliveries and attempts each once.
// Deliveries are claimed in waves of at most Concurrency, each wave with a fresh lease, and the next wave
// is only claimed once the previous one is recorded. Every started attempt is recorded even if ctx is canceled meanwhile.
func (d *Dispatcher) DispatchPending(ctx context.Context, batchLimit int) (DispatchStats, error) {
	ctx = logger.WithContext(ctx, slogx.String("package", "webhook"))
	if batchLimit <= 0 {
		batchLimit = d.config.BatchLimit
	}

	var (
		stats    DispatchStats
		mu       sync.Mutex
		webhooks = newWebhookCache(d.store)
	)
	attemptCtx := context.WithoutCancel(ctx)
	for stats.Claimed < batchLimit && ctx.Err() == nil {
		wave := min(d.config.Concurrency, batchLimit-stats.Claimed)
		now := d.Now()
		deliveries, err := d.store.ClaimDeliveries(ctx, datagateway.ClaimDeliveriesParams{
			Now:         now,
			MaxAttempts: d.config.Policy.MaxAttempts,
			Limit:       int32(wave),
			LeaseUntil:  now.Add(d.config.ClaimLease),
		})
		if err != nil {
			return stats, errors.Wrap(err, "failed to claim deliveries")
		}
		stats.Claimed += len(deliveries)

		group := new(errgroup.Group)
		for _, delivery := range deliveries {
			delivery := delivery
			group.Go(func() error {
				status, err := d.attempt(attemptCtx, delivery, webhooks)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					return errors.WithStack(err)
				case status == statusLost:
					stats.Lost++
				case status == statusSkipped:
					stats.Skipped++
				case status == entity.DeliveryStatusDelivered:
					stats.Delivered++
				default:
					stats.Failed++
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return stats, errors.Wrap(err, "failed to record delivery attempt")
		}
		if len(deliveries) < wave {
			break
		}
	}
	return stats, nil
}

// webhookCache looks each webhook up at most once per dispatch without serializing lookups of different ids.
type webhookCache struct {
	store Store

	mu      sync.Mutex
	entries map[uuid.UUID]*webhookEntry
}

type webhookEntry struct {
	once    sync.Once
	webhook *entity.Webhook
	err     error
}

func newWebhookCache(store Store) *webhookCache {
	return &webhookCache{store: store, entries: make(map[uuid.UUID]*webhookEntry)}
}

// Get returns nil without error when the webhook no longer exists.
func (c *webhookCache) Get(ctx context.Context, id uuid.UUID) (*entity.Webhook, error) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok {
		entry = &webhookEntry{}
		c.entries[id] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		webhook, err := c.store.GetWebhookByID(ctx, id)
		if err != nil && !errors.Is(err, errs.NotFound) {
			entry.err = errors.WithStack(err)
			return
		}
		entry.webhook = webhook
	})
	return entry.webhook, entry.err
}

const (
	statusSkipped entity.DeliveryStatus = "skipped"
	statusLost    entity.DeliveryStatus = "lost"
)

func (d *Dispatcher) attempt(ctx context.Context, delivery *entity.Delivery, webhooks *webhookCache) (entity.DeliveryStatus, error) {
	ctx = logger.WithContext(ctx,
		slogx.Int64("delivery_id", delivery.ID),
		slogx.Stringer("webhook_id", delivery.WebhookID),
		slogx.Int64("event_id", delivery.EventID),
	)

	webhook, err := webhooks.Get(ctx, delivery.WebhookID)
	if err != nil {
		return "", errors.WithStack(err)
	}
	event, err := d.store.GetEventByID(ctx, delivery.EventID)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return "", errors.WithStack(err)
	}
	if webhook == nil || !webhook.Active || event == nil {
		// nothing left to deliver to, close the lineage
		logger.WarnContext(ctx, "webhook or event no longer exists, giving up delivery")
		return d.record(ctx, statusSkipped, entity.DeliveryAttempt{
			ID:            delivery.ID,
			Status:        entity.DeliveryStatusFailed,
			Attempts:      d.config.Policy.MaxAttempts,
			PriorAttempts: delivery.Attempts,
			AttemptedAt:   d.Now(),
		})
	}

	body, err := NewEnvelope(event).Marshal()
	if err != nil {
		return "", errors.WithStack(err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.config.AttemptTimeout)
	defer cancel()
	start := time.Now()
	code, sendErr := d.sender.Send(sendCtx, Request{
		URL:        webhook.URL,
		Secret:     webhook.Secret,
		EventType:  event.Type,
		DeliveryID: delivery.ID,
		Body:       body,
	})
	metrics.DeliveryDuration.Observe(time.Since(start).Seconds())

	now := d.Now()
	result := entity.DeliveryAttempt{
		ID:            delivery.ID,
		Attempts:      delivery.Attempts + 1,
		PriorAttempts: delivery.Attempts,
		AttemptedAt:   now,
		ResponseCode:  int32(code),
	}
	if sendErr == nil && code >= 200 && code < 300 {
		result.Status = entity.DeliveryStatusDelivered
	} else {
		result.Status = entity.DeliveryStatusFailed
		result.NextRetryAt = d.config.Policy.NextRetryAt(delivery.Attempts, now)
		attrs := []any{slogx.Int("status_code", code), slogx.Int64("attempts", int64(result.Attempts))}
		if result.NextRetryAt != nil {
			attrs = append(attrs, slogx.Time("next_retry_at", *result.NextRetryAt))
		}
		if sendErr != nil {
			attrs = append(attrs, slogx.Error(sendErr))
		}
		logger.WarnContext(ctx, "webhook delivery failed", attrs...)
	}
	metrics.DeliveryAttemptsTotal.WithLabelValues(string(result.Status)).Inc()

	return d.record(ctx, result.Status, result)
}

// record stores the attempt and returns status, or statusLost when the delivery moved on since it was claimed.
func (d *Dispatcher) record(ctx context.Context, status entity.DeliveryStatus, attempt entity.DeliveryAttempt) (entity.DeliveryStatus, error) {
	if err := d.store.UpdateDeliveryAttempt(ctx, attempt); err != nil {
		if errors.Is(err, errs.Conflict) {
			logger.WarnContext(ctx, "delivery claim was lost before the attempt was recorded", slogx.Error(err))
			return statusLost, nil
		}
		logger.ErrorContext(ctx, "failed to record delivery attempt", err)
		return "", errors.Wrapf(err, "failed to update delivery %d", attempt.ID)
	}
	return status, nil
}
