// Package idempotency guarantees that at most one request holds an idempotency key at a time,
// and remembers the response of the request that completed it.
package idempotency

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

const DefaultTTL = 24 * time.Hour

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

type Record struct {
	Key         string
	Status      Status
	RequestHash string
	Response    json.RawMessage // set when Status is completed
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

type LockResult struct {
	Acquired bool
	// Existing is the record of the current holder when the key was not acquired.
	Existing *Record
}

type Store interface {
	// Lock takes key for the caller unless another live record holds it.
	// An expired record is replaced as if absent.
	Lock(ctx context.Context, key string, requestHash string) (LockResult, error)
	// Complete stores the response of the holder and keeps the record for the TTL.
	// It returns errs.NotFound if the key is not held.
	Complete(ctx context.Context, key string, response json.RawMessage) error
	// Clear releases key so the next request can retry. Clearing an absent key is a no-op.
	Clear(ctx context.Context, key string) error
	// PurgeExpired removes expired records and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
}

var ErrEmptyKey = errors.Mark(errors.New("idempotency key is required"), errs.InvalidArgument)

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.WithStack(ErrEmptyKey)
	}
	return nil
}

// RunJanitor purges expired records every interval until ctx is done.
func RunJanitor(ctx context.Context, store Store, interval time.Duration) {
	ctx = logger.WithContext(ctx, slogx.String("package", "idempotency"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "failed to purge expired idempotency keys", slogx.Error(err))
				continue
			}
			if purged > 0 {
				logger.DebugContext(ctx, "purged expired idempotency keys", slogx.Int64("count", purged))
			}
		}
	}
}
