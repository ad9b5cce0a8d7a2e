package entity

import "time"

type EventFilter struct {
	Type    string
	Subject string
	From    *time.Time
	To      *time.Time
	Offset  int
	Limit   int
}

type OperationFilter struct {
	Kind   OperationKind
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}
