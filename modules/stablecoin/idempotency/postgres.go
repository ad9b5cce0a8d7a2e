package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/internal/postgres"
	"github.com/sss-network/sss-indexer/modules/stablecoin/repository/postgres/gen"
)

var _ Store = (*PostgresStore)(nil)

// lockAttempts bounds retries when the holder clears the key between the lock and the read of its record.
const lockAttempts = 3

// PostgresStore keeps records in the stablecoin_idempotency_keys table, so locks hold across processes.
type PostgresStore struct {
	queries *gen.Queries
	ttl     time.Duration

	Now func() time.Time
}

func NewPostgresStore(db postgres.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{
		queries: gen.New(db),
		ttl:     utils.Default(ttl, DefaultTTL),
		Now:     time.Now,
	}
}

func (s *PostgresStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *PostgresStore) Lock(ctx context.Context, key string, requestHash string) (LockResult, error) {
	if err := validateKey(key); err != nil {
		return LockResult{}, err
	}
	for i := 0; i < lockAttempts; i++ {
		now := s.now()
		_, err := s.queries.LockIdempotencyKey(ctx, gen.LockIdempotencyKeyParams{
			Key:         key,
			RequestHash: requestHash,
			Now:         pgtype.Timestamptz{Time: now, Valid: true},
			ExpiresAt:   pgtype.Timestamptz{Time: now.Add(s.ttl), Valid: true},
		})
		if err == nil {
			return LockResult{Acquired: true}, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return LockResult{}, postgres.WrapError(err, "failed to lock idempotency key")
		}

		// held by a live record
		model, err := s.queries.GetIdempotencyKey(ctx, key)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return LockResult{}, postgres.WrapError(err, "failed to get idempotency key")
		}
		return LockResult{Acquired: false, Existing: mapRecordModel(model)}, nil
	}
	return LockResult{}, errors.Mark(errors.Newf("idempotency key %q is contended", key), errs.Unavailable)
}

func (s *PostgresStore) Complete(ctx context.Context, key string, response json.RawMessage) error {
	if err := validateKey(key); err != nil {
		return err
	}
	now := s.now()
	affected, err := s.queries.CompleteIdempotencyKey(ctx, gen.CompleteIdempotencyKeyParams{
		Key:       key,
		Response:  response,
		UpdatedAt: pgtype.Timestamptz{Time: now, Valid: true},
		ExpiresAt: pgtype.Timestamptz{Time: now.Add(s.ttl), Valid: true},
	})
	if err != nil {
		return postgres.WrapError(err, "failed to complete idempotency key")
	}
	if affected == 0 {
		return errors.Wrapf(errs.NotFound, "idempotency key %q is not held", key)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, key string) error {
	if err := s.queries.ClearIdempotencyKey(ctx, key); err != nil {
		return postgres.WrapError(err, "failed to clear idempotency key")
	}
	return nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.queries.PurgeExpiredIdempotencyKeys(ctx, pgtype.Timestamptz{Time: s.now(), Valid: true})
	if err != nil {
		return 0, postgres.WrapError(err, "failed to purge expired idempotency keys")
	}
	return purged, nil
}

func mapRecordModel(src gen.StablecoinIdempotencyKey) *Record {
	record := &Record{
		Key:         src.Key,
		Status:      Status(src.Status),
		RequestHash: src.RequestHash,
		UpdatedAt:   src.UpdatedAt.Time.UTC(),
		ExpiresAt:   src.ExpiresAt.Time.UTC(),
	}
	if len(src.Response) > 0 {
		record.Response = json.RawMessage(src.Response)
	}
	return record
}
