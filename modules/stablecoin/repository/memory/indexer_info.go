package memory

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

func (r *Repository) GetIndexerState(ctx context.Context) (entity.IndexerState, error) {
	var state *entity.IndexerState
	r.read(func(s *store) {
		if s.state != nil {
			copied := *s.state
			state = &copied
		}
	})
	if state == nil {
		return entity.IndexerState{}, errors.WithStack(errs.NotFound)
	}
	return *state, nil
}

func (r *Repository) SetIndexerState(ctx context.Context, state entity.IndexerState) error {
	now := r.now().UTC()
	r.write(func(s *store) func() {
		previous := s.state
		next := state
		next.UpdatedAt = now
		if previous != nil {
			next.LastSlot = previous.LastSlot
			next.CreatedAt = previous.CreatedAt
		} else {
			next.CreatedAt = now
		}
		s.state = &next
		return func() {
			s.state = previous
		}
	})
	return nil
}

func (r *Repository) AdvanceWatermark(ctx context.Context, slot int64) (int64, error) {
	var (
		watermark int64
		err       error
	)
	now := r.now().UTC()
	r.write(func(s *store) func() {
		if s.state == nil {
			err = errors.Wrap(errs.NotFound, "indexer state is not initialized")
			return nil
		}
		previous := *s.state
		if slot > s.state.LastSlot {
			s.state.LastSlot = slot
		}
		s.state.UpdatedAt = now
		watermark = s.state.LastSlot
		state := s.state
		return func() {
			*state = previous
		}
	})
	return watermark, err
}
