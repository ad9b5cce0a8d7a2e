package memory

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

func (r *Repository) InsertEventIfAbsent(ctx context.Context, event *entity.Event) (bool, error) {
	inserted := false
	r.write(func(s *store) func() {
		if _, ok := s.signatures[event.Signature]; ok {
			return nil
		}
		s.lastEventID++
		stored := *event
		stored.ID = s.lastEventID
		stored.CreatedAt = r.now().UTC()
		s.events = append(s.events, &stored)
		s.eventByID[stored.ID] = &stored
		s.signatures[stored.Signature] = stored.ID
		event.ID, event.CreatedAt = stored.ID, stored.CreatedAt
		inserted = true
		return func() {
			s.events = s.events[:len(s.events)-1]
			delete(s.eventByID, stored.ID)
			delete(s.signatures, stored.Signature)
			s.lastEventID--
		}
	})
	return inserted, nil
}

func (r *Repository) GetEventByID(ctx context.Context, id int64) (*entity.Event, error) {
	var event *entity.Event
	r.read(func(s *store) {
		if found, ok := s.eventByID[id]; ok {
			copied := *found
			event = &copied
		}
	})
	if event == nil {
		return nil, errors.Wrapf(errs.NotFound, "event %d not found", id)
	}
	return event, nil
}

func (r *Repository) GetEvents(ctx context.Context, filter entity.EventFilter) ([]*entity.Event, int64, error) {
	var matched []*entity.Event
	r.read(func(s *store) {
		for _, event := range s.events {
			if filter.Type != "" && event.Type != filter.Type {
				continue
			}
			if filter.Subject != "" && event.Subject != filter.Subject {
				continue
			}
			if !inRange(event.Timestamp, filter.From, filter.To) {
				continue
			}
			copied := *event
			matched = append(matched, &copied)
		}
	})
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func (r *Repository) CreateOperation(ctx context.Context, operation *entity.Operation) error {
	stored := *operation
	r.write(func(s *store) func() {
		s.operations = append(s.operations, &stored)
		return func() {
			s.operations = s.operations[:len(s.operations)-1]
		}
	})
	return nil
}

func (r *Repository) GetOperations(ctx context.Context, filter entity.OperationFilter) ([]*entity.Operation, int64, error) {
	var matched []*entity.Operation
	r.read(func(s *store) {
		// newest first, ties in reverse insertion order
		for i := len(s.operations) - 1; i >= 0; i-- {
			operation := s.operations[i]
			if filter.Kind != "" && operation.Kind != filter.Kind {
				continue
			}
			if !inRange(operation.CreatedAt, filter.From, filter.To) {
				continue
			}
			copied := *operation
			matched = append(matched, &copied)
		}
	})
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}
