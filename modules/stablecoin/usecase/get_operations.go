package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

func (u *Usecase) GetOperations(ctx context.Context, filter entity.OperationFilter) ([]*entity.Operation, int64, error) {
	operations, total, err := u.stablecoinDg.GetOperations(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "error during GetOperations")
	}
	return operations, total, nil
}
