package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

func (u *Usecase) GetEvents(ctx context.Context, filter entity.EventFilter) ([]*entity.Event, int64, error) {
	events, total, err := u.stablecoinDg.GetEvents(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "error during GetEvents")
	}
	return events, total, nil
}
