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

func (r *Repository) InsertEventIfAbsent(ctx context.Context, event *entity.Event) (bool, error) {
	params, err := mapEventTypeToParams(event)
	if err != nil {
		return false, errors.WithStack(err)
	}
	row, err := r.queries.InsertEventIfAbsent(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// signature already indexed
			return false, nil
		}
		return false, postgres.WrapError(err, "error during query")
	}
	event.ID = row.ID
	event.CreatedAt = timeFromTimestamptz(row.CreatedAt)
	return true, nil
}

func (r *Repository) GetEventByID(ctx context.Context, id int64) (*entity.Event, error) {
	model, err := r.queries.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "event %d not found", id)
		}
		return nil, postgres.WrapError(err, "error during query")
	}
	event, err := mapEventModelToType(model)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return event, nil
}

func (r *Repository) GetEvents(ctx context.Context, filter entity.EventFilter) ([]*entity.Event, int64, error) {
	total, err := r.queries.CountEvents(ctx, gen.CountEventsParams{
		Type:    nullText(filter.Type),
		Subject: nullText(filter.Subject),
		From:    nullTimestamptz(filter.From),
		To:      nullTimestamptz(filter.To),
	})
	if err != nil {
		return nil, 0, postgres.WrapError(err, "error during query")
	}
	models, err := r.queries.GetEvents(ctx, gen.GetEventsParams{
		Type:    nullText(filter.Type),
		Subject: nullText(filter.Subject),
		From:    nullTimestamptz(filter.From),
		To:      nullTimestamptz(filter.To),
		Limit:   int32(filter.Limit),
		Offset:  int32(filter.Offset),
	})
	if err != nil {
		return nil, 0, postgres.WrapError(err, "error during query")
	}

	events := make([]*entity.Event, 0, len(models))
	for _, model := range models {
		event, err := mapEventModelToType(model)
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
		events = append(events, event)
	}
	return events, total, nil
}

func (r *Repository) CreateOperation(ctx context.Context, operation *entity.Operation) error {
	params, err := mapOperationTypeToParams(operation)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := r.queries.CreateOperation(ctx, params); err != nil {
		return postgres.WrapError(err, "error during exec")
	}
	return nil
}

func (r *Repository) GetOperations(ctx context.Context, filter entity.OperationFilter) ([]*entity.Operation, int64, error) {
	total, err := r.queries.CountOperations(ctx, gen.CountOperationsParams{
		Kind: nullText(filter.Kind.String()),
		From: nullTimestamptz(filter.From),
		To:   nullTimestamptz(filter.To),
	})
	if err != nil {
		return nil, 0, postgres.WrapError(err, "error during query")
	}
	models, err := r.queries.GetOperations(ctx, gen.GetOperationsParams{
		Kind:   nullText(filter.Kind.String()),
		From:   nullTimestamptz(filter.From),
		To:     nullTimestamptz(filter.To),
		Limit:  int32(filter.Limit),
		Offset: int32(filter.Offset),
	})
	if err != nil {
		return nil, 0, postgres.WrapError(err, "error during query")
	}

	operations := make([]*entity.Operation, 0, len(models))
	for _, model := range models {
		operation, err := mapOperationModelToType(model)
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
		operations = append(operations, operation)
	}
	return operations, total, nil
}
