package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/internal/postgres"
	"github.com/sss-network/sss-indexer/modules/stablecoin/datagateway"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/repository/postgres/gen"
)

func (r *Repository) GetWebhooks(ctx context.Context) ([]*entity.Webhook, error) {
	models, err := r.queries.GetWebhooks(ctx)
	if err != nil {
		return nil, postgres.WrapError(err, "error during query")
	}
	return lo.Map(models, func(model gen.StablecoinWebhook, _ int) *entity.Webhook {
		return mapWebhookModelToType(model)
	}), nil
}

func (r *Repository) GetWebhookByID(ctx context.Context, id uuid.UUID) (*entity.Webhook, error) {
	model, err := r.queries.GetWebhookByID(ctx, pgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "webhook %s not found", id)
		}
		return nil, postgres.WrapError(err, "error during query")
	}
	return mapWebhookModelToType(model), nil
}

func (r *Repository) CreateWebhook(ctx context.Context, webhook *entity.Webhook) error {
	err := r.queries.CreateWebhook(ctx, gen.CreateWebhookParams{
		ID:         pgUUID(webhook.ID),
		Url:        webhook.URL,
		EventTypes: webhook.EventTypes,
		Secret:     webhook.Secret,
		Active:     webhook.Active,
		CreatedAt:  timestamptz(webhook.CreatedAt),
	})
	if err != nil {
		return postgres.WrapError(err, "error during exec")
	}
	return nil
}

func (r *Repository) DeleteWebhook(ctx context.Context, id uuid.UUID) error {
	affected, err := r.queries.DeleteWebhook(ctx, pgUUID(id))
	if err != nil {
		return postgres.WrapError(err, "error during exec")
	}
	if affected == 0 {
		return errors.Wrapf(errs.NotFound, "webhook %s not found", id)
	}
	return nil
}

func (r *Repository) EnqueueDeliveries(ctx context.Context, eventID int64, eventType string, now time.Time) (int64, error) {
	created, err := r.queries.EnqueueDeliveries(ctx, gen.EnqueueDeliveriesParams{
		EventID:   eventID,
		CreatedAt: timestamptz(now),
		EventType: eventType,
	})
	if err != nil {
		return 0, postgres.WrapError(err, "error during exec")
	}
	return created, nil
}

func (r *Repository) ClaimDeliveries(ctx context.Context, params datagateway.ClaimDeliveriesParams) ([]*entity.Delivery, error) {
	models, err := r.queries.ClaimDeliveries(ctx, gen.ClaimDeliveriesParams{
		MaxAttempts: params.MaxAttempts,
		Now:         timestamptz(params.Now),
		BatchLimit:  params.Limit,
		LeaseUntil:  timestamptz(params.LeaseUntil),
	})
	if err != nil {
		return nil, postgres.WrapError(err, "error during query")
	}
	deliveries := lo.Map(models, func(model gen.StablecoinDelivery, _ int) *entity.Delivery {
		return mapDeliveryModelToType(model)
	})
	// UPDATE ... RETURNING has no order
	sort.Slice(deliveries, func(i, j int) bool {
		if deliveries[i].CreatedAt.Equal(deliveries[j].CreatedAt) {
			return deliveries[i].ID < deliveries[j].ID
		}
		return deliveries[i].CreatedAt.Before(deliveries[j].CreatedAt)
	})
	return deliveries, nil
}

func (r *Repository) UpdateDeliveryAttempt(ctx context.Context, attempt entity.DeliveryAttempt) error {
	responseCode := pgtype.Int4{Int32: attempt.ResponseCode, Valid: attempt.ResponseCode != 0}
	affected, err := r.queries.UpdateDeliveryAttempt(ctx, gen.UpdateDeliveryAttemptParams{
		ID:            attempt.ID,
		Status:        string(attempt.Status),
		Attempts:      attempt.Attempts,
		LastAttemptAt: timestamptz(attempt.AttemptedAt),
		NextRetryAt:   nullTimestamptz(attempt.NextRetryAt),
		ResponseCode:  responseCode,
		Attempts_2:    attempt.PriorAttempts,
	})
	if err != nil {
		return postgres.WrapError(err, "error during exec")
	}
	if affected == 0 {
		return errors.Wrapf(errs.Conflict, "delivery %d was not at attempt %d", attempt.ID, attempt.PriorAttempts)
	}
	return nil
}

func (r *Repository) GetDeliveriesByWebhookID(ctx context.Context, webhookID uuid.UUID, limit, offset int) ([]*entity.Delivery, int64, error) {
	total, err := r.queries.CountDeliveriesByWebhookID(ctx, pgUUID(webhookID))
	if err != nil {
		return nil, 0, postgres.WrapError(err, "error during query")
	}
	models, err := r.queries.GetDeliveriesByWebhookID(ctx, gen.GetDeliveriesByWebhookIDParams{
		WebhookID: pgUUID(webhookID),
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, 0, postgres.WrapError(err, "error during query")
	}
	return lo.Map(models, func(model gen.StablecoinDelivery, _ int) *entity.Delivery {
		return mapDeliveryModelToType(model)
	}), total, nil
}
