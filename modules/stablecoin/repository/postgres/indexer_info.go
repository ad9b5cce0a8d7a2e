package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/internal/postgres"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/repository/postgres/gen"
)

func (r *Repository) GetIndexerState(ctx context.Context) (entity.IndexerState, error) {
	state, err := r.queries.GetIndexerState(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.IndexerState{}, errors.WithStack(errs.NotFound)
		}
		return entity.IndexerState{}, postgres.WrapError(err, "error during query")
	}
	return mapIndexerStateModelToType(state), nil
}

func (r *Repository) SetIndexerState(ctx context.Context, state entity.IndexerState) error {
	err := r.queries.SetIndexerState(ctx, gen.SetIndexerStateParams{
		ProgramID:          state.ProgramID,
		LastSlot:           state.LastSlot,
		DbVersion:          state.DBVersion,
		EventSchemaVersion: state.EventSchemaVersion,
	})
	if err != nil {
		return postgres.WrapError(err, "error during exec")
	}
	return nil
}

func (r *Repository) AdvanceWatermark(ctx context.Context, slot int64) (int64, error) {
	watermark, err := r.queries.AdvanceWatermark(ctx, slot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errors.Wrap(errs.NotFound, "indexer state is not initialized")
		}
		return 0, postgres.WrapError(err, "error during query")
	}
	return watermark, nil
}
