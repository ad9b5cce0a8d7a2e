package usecase

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/anchor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

type CreateWebhookInput struct {
	URL        string
	EventTypes []string
	Secret     string
}

func (input CreateWebhookInput) Validate() error {
	var errList []error
	target, err := url.Parse(strings.TrimSpace(input.URL))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		errList = append(errList, errors.New("'url' must be an absolute http or https url"))
	}
	if len(input.EventTypes) == 0 {
		errList = append(errList, errors.New("'eventTypes' must not be empty"))
	}
	known := anchor.EventNames()
	for _, eventType := range input.EventTypes {
		if !lo.Contains(known, eventType) {
			errList = append(errList, errors.Newf("'eventTypes' contains unknown event type %q", eventType))
		}
	}
	if input.Secret == "" {
		errList = append(errList, errors.New("'secret' is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

func (u *Usecase) CreateWebhook(ctx context.Context, input CreateWebhookInput) (*entity.Webhook, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	webhook := &entity.Webhook{
		ID:         uuid.New(),
		URL:        strings.TrimSpace(input.URL),
		EventTypes: lo.Uniq(input.EventTypes),
		Secret:     input.Secret,
		Active:     true,
		CreatedAt:  u.Now().UTC(),
	}
	if err := u.stablecoinDg.CreateWebhook(ctx, webhook); err != nil {
		return nil, errors.Wrap(err, "error during CreateWebhook")
	}
	logger.InfoContext(ctx, "webhook registered",
		slogx.String("package", "usecase"),
		slogx.Stringer("webhook_id", webhook.ID),
		slogx.Strings("event_types", webhook.EventTypes),
	)
	return webhook, nil
}

func (u *Usecase) GetWebhooks(ctx context.Context) ([]*entity.Webhook, error) {
	webhooks, err := u.stablecoinDg.GetWebhooks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error during GetWebhooks")
	}
	return webhooks, nil
}

// DeleteWebhook stops deliveries to the webhook. Its delivery history is kept.
func (u *Usecase) DeleteWebhook(ctx context.Context, id uuid.UUID) error {
	if err := u.stablecoinDg.DeleteWebhook(ctx, id); err != nil {
		return errors.Wrap(err, "error during DeleteWebhook")
	}
	logger.InfoContext(ctx, "webhook deleted", slogx.String("package", "usecase"), slogx.Stringer("webhook_id", id))
	return nil
}

func (u *Usecase) GetWebhookDeliveries(ctx context.Context, id uuid.UUID, limit, offset int) ([]*entity.Delivery, int64, error) {
	if _, err := u.stablecoinDg.GetWebhookByID(ctx, id); err != nil {
		return nil, 0, errors.Wrap(err, "error during GetWebhookByID")
	}
	deliveries, total, err := u.stablecoinDg.GetDeliveriesByWebhookID(ctx, id, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "error during GetDeliveriesByWebhookID")
	}
	return deliveries, total, nil
}
