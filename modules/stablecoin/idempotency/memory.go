package idempotency

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps records in a process-local map. Locks only serialize requests of the same process.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]*Record

	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     utils.Default(ttl, DefaultTTL),
		records: make(map[string]*Record),
		Now:     time.Now,
	}
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *MemoryStore) Lock(ctx context.Context, key string, requestHash string) (LockResult, error) {
	if err := validateKey(key); err != nil {
		return LockResult{}, err
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && now.Before(existing.ExpiresAt) {
		copied := *existing
		return LockResult{Acquired: false, Existing: &copied}, nil
	}
	s.records[key] = &Record{
		Key:         key,
		Status:      StatusProcessing,
		RequestHash: requestHash,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	return LockResult{Acquired: true}, nil
}

func (s *MemoryStore) Complete(ctx context.Context, key string, response json.RawMessage) error {
	if err := validateKey(key); err != nil {
		return err
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return errors.Wrapf(errs.NotFound, "idempotency key %q is not held", key)
	}
	record.Status = StatusCompleted
	record.Response = append(json.RawMessage(nil), response...)
	record.UpdatedAt = now
	record.ExpiresAt = now.Add(s.ttl)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for key, record := range s.records {
		if !now.Before(record.ExpiresAt) {
			delete(s.records, key)
			purged++
		}
	}
	return purged, nil
}
