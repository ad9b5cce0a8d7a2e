package entity

import "time"

// UnknownSubject is the subject of an event whose payload carries no `config` field.
const UnknownSubject = "unknown"

type Event struct {
	ID        int64
	Type      string
	Subject   string
	Signature string
	Slot      int64
	Timestamp time.Time
	Payload   map[string]any
	CreatedAt time.Time
}
