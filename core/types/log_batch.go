package types

import "time"

// LogBatch is one transaction's worth of program log lines, as delivered by the log source.
type LogBatch struct {
	Signature string
	Slot      int64

	// Failed is set when the transaction reverted. Its logs must not be indexed.
	Failed bool
	Logs   []string

	ReceivedAt time.Time
}
