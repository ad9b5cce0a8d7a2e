package entity

import "time"

type IndexerState struct {
	ProgramID          string
	LastSlot           int64
	DBVersion          int32
	EventSchemaVersion int32
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
