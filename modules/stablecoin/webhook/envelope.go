package webhook

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

// Envelope is the JSON body posted to subscribers.
type Envelope struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Signature string         `json:"signature"`
}

func NewEnvelope(event *entity.Event) Envelope {
	data := event.Payload
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{
		Event:     event.Type,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Data:      data,
		Signature: event.Signature,
	}
}

func (e Envelope) Marshal() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal webhook envelope")
	}
	return body, nil
}
