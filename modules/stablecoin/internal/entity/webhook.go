package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Webhook struct {
	ID         uuid.UUID
	URL        string
	EventTypes []string
	Secret     string
	Active     bool
	CreatedAt  time.Time
}

// Matches reports whether the webhook is subscribed to eventType. Matching is exact, there are no wildcards.
func (w Webhook) Matches(eventType string) bool {
	return w.Active && lo.Contains(w.EventTypes, eventType)
}
