package httphandler

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

type event struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Subject   string         `json:"subject"`
	Signature string         `json:"signature"`
	Slot      int64          `json:"slot"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

func mapEvent(src *entity.Event) event {
	return event{
		ID:        src.ID,
		Type:      src.Type,
		Subject:   src.Subject,
		Signature: src.Signature,
		Slot:      src.Slot,
		Timestamp: src.Timestamp.UTC(),
		Payload:   src.Payload,
		CreatedAt: src.CreatedAt.UTC(),
	}
}

type operation struct {
	ID             uuid.UUID        `json:"id"`
	Kind           string           `json:"kind"`
	Target         string           `json:"target,omitempty"`
	To             string           `json:"to,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Memo           string           `json:"memo,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Roles          *uint8           `json:"roles,omitempty"`
	Quota          *decimal.Decimal `json:"quota,omitempty"`
	Signature      string           `json:"signature,omitempty"`
	IdempotencyKey string           `json:"idempotencyKey,omitempty"`
	Status         string           `json:"status"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

func mapOperation(src *entity.Operation) operation {
	dst := operation{
		ID:             src.ID,
		Kind:           src.Kind.String(),
		Target:         src.Target,
		To:             src.To,
		Memo:           src.Memo,
		Reason:         src.Reason,
		Roles:          src.Roles,
		Quota:          src.Quota,
		Signature:      src.Signature,
		IdempotencyKey: src.IdempotencyKey,
		Status:         string(src.Status),
		Error:          src.Error,
		CreatedAt:      src.CreatedAt.UTC(),
	}
	if src.Kind.HasAmount() {
		dst.Amount = lo.ToPtr(src.Amount)
	}
	return dst
}

const redactedSecret = "********"

type webhook struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	EventTypes []string  `json:"eventTypes"`
	Secret     string    `json:"secret"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

// mapWebhook never exposes the shared secret.
func mapWebhook(src *entity.Webhook) webhook {
	return webhook{
		ID:         src.ID,
		URL:        src.URL,
		EventTypes: src.EventTypes,
		Secret:     redactedSecret,
		Active:     src.Active,
		CreatedAt:  src.CreatedAt.UTC(),
	}
}

type delivery struct {
	ID            int64      `json:"id"`
	WebhookID     uuid.UUID  `json:"webhookId"`
	EventID       int64      `json:"eventId"`
	Status        string     `json:"status"`
	Attempts      int32      `json:"attempts"`
	LastAttemptAt *time.Time `json:"lastAttemptAt"`
	NextRetryAt   *time.Time `json:"nextRetryAt"`
	ResponseCode  *int32     `json:"responseCode"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func mapDelivery(src *entity.Delivery) delivery {
	dst := delivery{
		ID:            src.ID,
		WebhookID:     src.WebhookID,
		EventID:       src.EventID,
		Status:        string(src.Status),
		Attempts:      src.Attempts,
		LastAttemptAt: src.LastAttemptAt,
		NextRetryAt:   src.NextRetryAt,
		CreatedAt:     src.CreatedAt.UTC(),
	}
	if src.ResponseCode != 0 {
		dst.ResponseCode = lo.ToPtr(src.ResponseCode)
	}
	return dst
}
