package stablecoin

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/core/indexer"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/sss-network/sss-indexer/modules/stablecoin/datagateway"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/anchor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/metrics"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

var _ indexer.Processor[types.LogBatch] = (*Processor)(nil)

// Publisher pushes persisted events to live listeners.
type Publisher interface {
	Publish(ctx context.Context, event *entity.Event) int
}

// Trigger wakes the webhook dispatcher up.
type Trigger interface {
	Trigger()
}

type Processor struct {
	stablecoinDg datagateway.StablecoinDataGateway
	programID    string
	publisher    Publisher
	dispatcher   Trigger

	Now func() time.Time
}

func NewProcessor(stablecoinDg datagateway.StablecoinDataGateway, programID string, publisher Publisher, dispatcher Trigger) *Processor {
	return &Processor{
		stablecoinDg: stablecoinDg,
		programID:    programID,
		publisher:    publisher,
		dispatcher:   dispatcher,
		Now:          time.Now,
	}
}

func (p *Processor) Name() string {
	return "stablecoin"
}

// VerifyStates makes sure the store was built for this program, schema and db version,
// and initializes the indexer state on a fresh store.
func (p *Processor) VerifyStates(ctx context.Context) error {
	if p.programID == "" {
		return errors.Wrap(errs.InvalidArgument, "program id is required")
	}
	if _, err := anchor.ParsePublicKey(p.programID); err != nil {
		return errors.Wrapf(errs.InvalidArgument, "program id %q is not a valid address", p.programID)
	}

	state, err := p.stablecoinDg.GetIndexerState(ctx)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get indexer state")
	}
	if errors.Is(err, errs.NotFound) {
		if err := p.stablecoinDg.SetIndexerState(ctx, entity.IndexerState{
			ProgramID:          p.programID,
			DBVersion:          DBVersion,
			EventSchemaVersion: anchor.SchemaVersion,
		}); err != nil {
			return errors.Wrap(err, "failed to set indexer state")
		}
		logger.InfoContext(ctx, "Initialized indexer state", slogx.String("program_id", p.programID))
		return nil
	}

	if state.DBVersion != DBVersion {
		return errors.Wrapf(errs.ConflictSetting, "db version mismatch: current version is %d. Please upgrade to version %d", state.DBVersion, DBVersion)
	}
	if state.EventSchemaVersion != anchor.SchemaVersion {
		return errors.Wrapf(errs.ConflictSetting, "event schema version mismatch: current version is %d, expected %d. Please reset the stablecoin db first", state.EventSchemaVersion, anchor.SchemaVersion)
	}
	if state.ProgramID != p.programID {
		return errors.Wrapf(errs.ConflictSetting, "program id mismatch: indexed program is %s, configured program is %s. If you want to change the program, please reset the database", state.ProgramID, p.programID)
	}
	metrics.Watermark.Set(float64(state.LastSlot))
	return nil
}
