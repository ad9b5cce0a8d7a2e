package webhook

import "time"

// RetryPolicy schedules the next attempt of a failed delivery.
type RetryPolicy struct {
	MaxAttempts int32
	// Base is the wait before the first retry. Each later retry waits twice the previous one.
	Base time.Duration
	// MaxBackoff caps the wait. Zero disables the cap.
	MaxBackoff time.Duration
}

// Backoff returns the wait after a failed attempt, given the attempts made before it.
func (p RetryPolicy) Backoff(priorAttempts int32) time.Duration {
	delay := p.Base
	for i := int32(0); i < priorAttempts; i++ {
		if p.MaxBackoff > 0 && delay >= p.MaxBackoff {
			break
		}
		if delay > time.Duration(1<<62) {
			// doubling again would overflow
			break
		}
		delay *= 2
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

// NextRetryAt returns when a delivery that failed at now, after priorAttempts earlier attempts,
// must be retried. It returns nil when the attempt budget is spent.
func (p RetryPolicy) NextRetryAt(priorAttempts int32, now time.Time) *time.Time {
	if priorAttempts+1 >= p.MaxAttempts {
		return nil
	}
	next := now.Add(p.Backoff(priorAttempts))
	return &next
}
