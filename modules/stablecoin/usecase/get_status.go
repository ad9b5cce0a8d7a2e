package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

// GetStatus returns the indexer state. Before the first start, only the configured program id is known.
func (u *Usecase) GetStatus(ctx context.Context) (entity.IndexerState, error) {
	state, err := u.stablecoinDg.GetIndexerState(ctx)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return entity.IndexerState{ProgramID: u.programID}, nil
		}
		return entity.IndexerState{}, errors.Wrap(err, "error during GetIndexerState")
	}
	return state, nil
}
