// Package memory is a process-local implementation of the stablecoin data gateway.
// It is used for single instance and development runs, and by tests of store-dependent logic.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sss-network/sss-indexer/modules/stablecoin/datagateway"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

var _ datagateway.StablecoinDataGateway = (*Repository)(nil)

type store struct {
	mu sync.RWMutex

	events      []*entity.Event
	eventByID   map[int64]*entity.Event
	signatures  map[string]int64
	operations  []*entity.Operation
	webhooks    []*entity.Webhook
	deliveries  []*entity.Delivery
	delivered   map[deliveryKey]struct{}
	state       *entity.IndexerState
	lastEventID int64
}

type deliveryKey struct {
	webhookID uuid.UUID
	eventID   int64
}

// Repository keeps every record in memory. A Repository returned by BeginStablecoinTx holds the
// store's write lock until Commit or Rollback, and undoes its writes on Rollback.
type Repository struct {
	store *store
	now   func() time.Time

	tx *tx
}

type tx struct {
	mu   sync.Mutex
	undo []func()
	done bool
}

type Option func(*Repository)

// WithClock overrides the clock used for created and updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		store: &store{
			eventByID:  make(map[int64]*entity.Event),
			signatures: make(map[string]int64),
			delivered:  make(map[deliveryKey]struct{}),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// read runs fn under the read lock, unless this repository already holds the store in a transaction.
func (r *Repository) read(fn func(s *store)) {
	if r.inTx() {
		fn(r.store)
		return
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	fn(r.store)
}

// write runs fn under the write lock. Inside a transaction, the undo function returned by fn is recorded.
func (r *Repository) write(fn func(s *store) (undo func())) {
	if r.inTx() {
		if undo := fn(r.store); undo != nil {
			r.tx.undo = append(r.tx.undo, undo)
		}
		return
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	fn(r.store)
}

func (r *Repository) inTx() bool {
	return r.tx != nil && !r.tx.done
}

func (r *Repository) BeginStablecoinTx(ctx context.Context) (datagateway.StablecoinDataGatewayWithTx, error) {
	if r.inTx() {
		return nil, errors.WithStack(ErrTxAlreadyExists)
	}
	r.store.mu.Lock()
	return &Repository{
		store: r.store,
		now:   r.now,
		tx:    &tx{},
	}, nil
}

func (r *Repository) Commit(ctx context.Context) error {
	r.finish(false)
	return nil
}

func (r *Repository) Rollback(ctx context.Context) error {
	r.finish(true)
	return nil
}

func (r *Repository) finish(rollback bool) {
	if r.tx == nil {
		return
	}
	r.tx.mu.Lock()
	defer r.tx.mu.Unlock()
	if r.tx.done {
		return
	}
	if rollback {
		for i := len(r.tx.undo) - 1; i >= 0; i-- {
			r.tx.undo[i]()
		}
	}
	r.tx.undo = nil
	r.tx.done = true
	r.store.mu.Unlock()
}
