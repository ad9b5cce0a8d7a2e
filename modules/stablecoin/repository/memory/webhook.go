package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/datagateway"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

func (r *Repository) GetWebhooks(ctx context.Context) ([]*entity.Webhook, error) {
	var webhooks []*entity.Webhook
	r.read(func(s *store) {
		webhooks = lo.Map(s.webhooks, func(webhook *entity.Webhook, _ int) *entity.Webhook {
			return cloneWebhook(webhook)
		})
	})
	return webhooks, nil
}

func (r *Repository) GetWebhookByID(ctx context.Context, id uuid.UUID) (*entity.Webhook, error) {
	var webhook *entity.Webhook
	r.read(func(s *store) {
		if found, ok := lo.Find(s.webhooks, func(w *entity.Webhook) bool { return w.ID == id }); ok {
			webhook = cloneWebhook(found)
		}
	})
	if webhook == nil {
		return nil, errors.Wrapf(errs.NotFound, "webhook %s not found", id)
	}
	return webhook, nil
}

func (r *Repository) CreateWebhook(ctx context.Context, webhook *entity.Webhook) error {
	var err error
	r.write(func(s *store) func() {
		if lo.ContainsBy(s.webhooks, func(w *entity.Webhook) bool { return w.ID == webhook.ID }) {
			err = errors.Wrapf(errs.Duplicate, "webhook %s already exists", webhook.ID)
			return nil
		}
		s.webhooks = append(s.webhooks, cloneWebhook(webhook))
		return func() {
			s.webhooks = s.webhooks[:len(s.webhooks)-1]
		}
	})
	return err
}

func (r *Repository) DeleteWebhook(ctx context.Context, id uuid.UUID) error {
	deleted := false
	r.write(func(s *store) func() {
		_, index, ok := lo.FindIndexOf(s.webhooks, func(w *entity.Webhook) bool { return w.ID == id })
		if !ok {
			return nil
		}
		removed := s.webhooks[index]
		s.webhooks = append(s.webhooks[:index:index], s.webhooks[index+1:]...)
		deleted = true
		return func() {
			s.webhooks = append(s.webhooks[:index:index], append([]*entity.Webhook{removed}, s.webhooks[index:]...)...)
		}
	})
	if !deleted {
		return errors.Wrapf(errs.NotFound, "webhook %s not found", id)
	}
	return nil
}

func (r *Repository) EnqueueDeliveries(ctx context.Context, eventID int64, eventType string, now time.Time) (int64, error) {
	var created int64
	r.write(func(s *store) func() {
		before := len(s.deliveries)
		var keys []deliveryKey
		for _, webhook := range s.webhooks {
			if !webhook.Matches(eventType) {
				continue
			}
			key := deliveryKey{webhookID: webhook.ID, eventID: eventID}
			if _, ok := s.delivered[key]; ok {
				continue
			}
			s.deliveries = append(s.deliveries, &entity.Delivery{
				ID:        int64(len(s.deliveries) + 1),
				WebhookID: webhook.ID,
				EventID:   eventID,
				Status:    entity.DeliveryStatusPending,
				CreatedAt: now.UTC(),
			})
			s.delivered[key] = struct{}{}
			keys = append(keys, key)
		}
		created = int64(len(keys))
		return func() {
			s.deliveries = s.deliveries[:before]
			for _, key := range keys {
				delete(s.delivered, key)
			}
		}
	})
	return created, nil
}

func (r *Repository) ClaimDeliveries(ctx context.Context, params datagateway.ClaimDeliveriesParams) ([]*entity.Delivery, error) {
	var claimed []*entity.Delivery
	r.write(func(s *store) func() {
		type previous struct {
			delivery    *entity.Delivery
			nextRetryAt *time.Time
		}
		var undo []previous
		// deliveries are kept in creation order, so the first due ones are the oldest
		for _, delivery := range s.deliveries {
			if int32(len(claimed)) >= params.Limit {
				break
			}
			if !claimable(delivery, params) {
				continue
			}
			undo = append(undo, previous{delivery: delivery, nextRetryAt: delivery.NextRetryAt})
			leaseUntil := params.LeaseUntil.UTC()
			delivery.NextRetryAt = &leaseUntil
			claimed = append(claimed, cloneDelivery(delivery))
		}
		return func() {
			for _, p := range undo {
				p.delivery.NextRetryAt = p.nextRetryAt
			}
		}
	})
	sort.SliceStable(claimed, func(i, j int) bool {
		return claimed[i].CreatedAt.Before(claimed[j].CreatedAt)
	})
	return claimed, nil
}

func claimable(delivery *entity.Delivery, params datagateway.ClaimDeliveriesParams) bool {
	if delivery.Status != entity.DeliveryStatusPending && delivery.Status != entity.DeliveryStatusFailed {
		return false
	}
	if delivery.Attempts >= params.MaxAttempts {
		return false
	}
	return delivery.NextRetryAt == nil || !delivery.NextRetryAt.After(params.Now)
}

func (r *Repository) UpdateDeliveryAttempt(ctx context.Context, attempt entity.DeliveryAttempt) error {
	var err error
	r.write(func(s *store) func() {
		if attempt.ID < 1 || attempt.ID > int64(len(s.deliveries)) {
			err = errors.Wrapf(errs.NotFound, "delivery %d not found", attempt.ID)
			return nil
		}
		delivery := s.deliveries[attempt.ID-1]
		if delivery.Attempts != attempt.PriorAttempts || delivery.Status == entity.DeliveryStatusDelivered {
			err = errors.Wrapf(errs.Conflict, "delivery %d was not at attempt %d", attempt.ID, attempt.PriorAttempts)
			return nil
		}
		before := *delivery
		attemptedAt := attempt.AttemptedAt.UTC()
		delivery.Status = attempt.Status
		delivery.Attempts = attempt.Attempts
		delivery.LastAttemptAt = &attemptedAt
		delivery.NextRetryAt = attempt.NextRetryAt
		delivery.ResponseCode = attempt.ResponseCode
		return func() {
			*delivery = before
		}
	})
	return err
}

func (r *Repository) GetDeliveriesByWebhookID(ctx context.Context, webhookID uuid.UUID, limit, offset int) ([]*entity.Delivery, int64, error) {
	var matched []*entity.Delivery
	r.read(func(s *store) {
		for i := len(s.deliveries) - 1; i >= 0; i-- {
			if s.deliveries[i].WebhookID == webhookID {
				matched = append(matched, cloneDelivery(s.deliveries[i]))
			}
		}
	})
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func cloneWebhook(src *entity.Webhook) *entity.Webhook {
	webhook := *src
	webhook.EventTypes = append([]string(nil), src.EventTypes...)
	return &webhook
}

func cloneDelivery(src *entity.Delivery) *entity.Delivery {
	delivery := *src
	if src.LastAttemptAt != nil {
		t := *src.LastAttemptAt
		delivery.LastAttemptAt = &t
	}
	if src.NextRetryAt != nil {
		t := *src.NextRetryAt
		delivery.NextRetryAt = &t
	}
	return &delivery
}
