package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("monotonic_backoff", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 5, Base: time.Second}
		expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
		for attempts, delay := range expected {
			next := policy.NextRetryAt(int32(attempts), now)
			if assert.NotNil(t, next) {
				assert.Equal(t, now.Add(delay), *next)
			}
		}
		assert.Nil(t, policy.NextRetryAt(4, now))
		assert.Nil(t, policy.NextRetryAt(5, now))
	})
	t.Run("cap", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 100, Base: time.Second, MaxBackoff: 5 * time.Second}
		assert.Equal(t, 4*time.Second, policy.Backoff(2))
		assert.Equal(t, 5*time.Second, policy.Backoff(3))
		assert.Equal(t, 5*time.Second, policy.Backoff(90))
	})
	t.Run("no_cap_does_not_overflow", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 100, Base: time.Second}
		assert.Positive(t, policy.Backoff(90))
		assert.GreaterOrEqual(t, policy.Backoff(90), policy.Backoff(30))
	})
}

func TestSign(t *testing.T) {
	body := []byte(`{"event":"TokensMinted"}`)
	signature := Sign("secret", body)

	assert.Len(t, signature, 64)
	assert.True(t, Verify("secret", body, signature))
	assert.False(t, Verify("other", body, signature))
	assert.False(t, Verify("secret", append(body, ' '), signature))
	assert.False(t, Verify("secret", body, "not-hex"))
}
