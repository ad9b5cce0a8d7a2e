package datagateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

type StablecoinDataGateway interface {
	StablecoinReaderDataGateway
	StablecoinWriterDataGateway
	WebhookDataGateway
	IndexerInfoDataGateway

	// BeginStablecoinTx returns a new StablecoinDataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginStablecoinTx(ctx context.Context) (StablecoinDataGatewayWithTx, error)
}

type StablecoinDataGatewayWithTx interface {
	StablecoinDataGateway
	Tx
}

type StablecoinReaderDataGateway interface {
	// GetEvents returns a page of events, newest first, and the total number of events matching the filter.
	GetEvents(ctx context.Context, filter entity.EventFilter) ([]*entity.Event, int64, error)
	// GetEventByID returns errs.NotFound if the event does not exist.
	GetEventByID(ctx context.Context, id int64) (*entity.Event, error)
	// GetOperations returns a page of operations, newest first, and the total number of operations matching the filter.
	GetOperations(ctx context.Context, filter entity.OperationFilter) ([]*entity.Operation, int64, error)
}

type StablecoinWriterDataGateway interface {
	// InsertEventIfAbsent stores the event unless an event with the same signature exists.
	// It reports whether the event was inserted, and sets event.ID and event.CreatedAt when it was.
	InsertEventIfAbsent(ctx context.Context, event *entity.Event) (bool, error)
	CreateOperation(ctx context.Context, operation *entity.Operation) error
}

type WebhookDataGateway interface {
	GetWebhooks(ctx context.Context) ([]*entity.Webhook, error)
	// GetWebhookByID returns errs.NotFound if the webhook does not exist.
	GetWebhookByID(ctx context.Context, id uuid.UUID) (*entity.Webhook, error)
	CreateWebhook(ctx context.Context, webhook *entity.Webhook) error
	// DeleteWebhook returns errs.NotFound if the webhook does not exist. Its deliveries are kept.
	DeleteWebhook(ctx context.Context, id uuid.UUID) error

	// EnqueueDeliveries creates one pending delivery per active webhook subscribed to eventType
	// and returns how many were created.
	EnqueueDeliveries(ctx context.Context, eventID int64, eventType string, now time.Time) (int64, error)
	// ClaimDeliveries selects due deliveries, oldest first, and leases them until params.LeaseUntil
	// so that concurrent dispatchers never claim the same delivery.
	ClaimDeliveries(ctx context.Context, params ClaimDeliveriesParams) ([]*entity.Delivery, error)
	// UpdateDeliveryAttempt persists the outcome of one attempt as a single update.
	// It returns errs.Conflict when the delivery no longer has attempt.PriorAttempts attempts or is already delivered.
	UpdateDeliveryAttempt(ctx context.Context, attempt entity.DeliveryAttempt) error
	GetDeliveriesByWebhookID(ctx context.Context, webhookID uuid.UUID, limit, offset int) ([]*entity.Delivery, int64, error)
}

type ClaimDeliveriesParams struct {
	Now         time.Time
	MaxAttempts int32
	Limit       int32
	LeaseUntil  time.Time
}
