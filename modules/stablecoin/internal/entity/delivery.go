package entity

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

type Delivery struct {
	ID            int64
	WebhookID     uuid.UUID
	EventID       int64
	Status        DeliveryStatus
	Attempts      int32
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time
	ResponseCode  int32 // zero when no response was received
	CreatedAt     time.Time
}

// DeliveryAttempt is the outcome of one dispatch attempt, persisted as a single update.
// It only applies while the delivery still has PriorAttempts attempts and is not delivered,
// so an attempt whose claim was lost cannot overwrite a newer one.
type DeliveryAttempt struct {
	ID            int64
	PriorAttempts int32
	Status        DeliveryStatus
	Attempts      int32
	AttemptedAt   time.Time
	NextRetryAt   *time.Time
	ResponseCode  int32
}
