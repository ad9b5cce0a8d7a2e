package datagateway

import (
	"context"

	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

type IndexerInfoDataGateway interface {
	// GetIndexerState returns errs.NotFound if the indexer has never been started on this store.
	GetIndexerState(ctx context.Context) (entity.IndexerState, error)
	// SetIndexerState creates the state row, or updates its program id and versions. The watermark is left as is.
	SetIndexerState(ctx context.Context, state entity.IndexerState) error
	// AdvanceWatermark moves the watermark to slot unless it is already higher, and returns the resulting watermark.
	AdvanceWatermark(ctx context.Context, slot int64) (int64, error)
}
