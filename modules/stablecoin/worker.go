package stablecoin

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/core/indexer"
	"github.com/sss-network/sss-indexer/core/types"
	stablecoinconfig "github.com/sss-network/sss-indexer/modules/stablecoin/config"
	"github.com/sss-network/sss-indexer/modules/stablecoin/idempotency"
	"github.com/sss-network/sss-indexer/modules/stablecoin/livefeed"
	"github.com/sss-network/sss-indexer/modules/stablecoin/webhook"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

const janitorInterval = 10 * time.Minute

var _ indexer.IndexerWorker = (*Worker)(nil)

// Worker runs the background parts of the module: ingestion, webhook dispatch and idempotency key expiry.
type Worker struct {
	indexer     *indexer.Indexer[types.LogBatch]
	scheduler   *webhook.Scheduler
	broker      *livefeed.Broker
	idempotency idempotency.Store
	ingestion   stablecoinconfig.IngestionConfig

	cleanupFuncs []func(context.Context) error
	shutdownOnce sync.Once
	shutdownErr  error
}

// Run blocks until ctx is done, or until ingestion is lost and restarting it is disabled.
func (w *Worker) Run(ctx context.Context) error {
	w.scheduler.Start(ctx)
	go idempotency.RunJanitor(ctx, w.idempotency, janitorInterval)

	if w.ingestion.Disabled {
		logger.WarnContext(ctx, "Ingestion is disabled, only serving commands and webhooks")
		<-ctx.Done()
		return nil
	}

	for {
		w.broker.SetReady(true)
		err := w.indexer.Run(ctx)
		w.broker.SetReady(false)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if w.ingestion.RestartDelay <= 0 {
			return errors.Wrap(err, "ingestion stopped")
		}

		logger.ErrorContext(ctx, "Ingestion stopped, restarting", err,
			slogx.Duration("restart_in", w.ingestion.RestartDelay),
			slogx.String("event", "ingestion_restart"),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.ingestion.RestartDelay):
		}
	}
}

// Shutdown stops ingestion and dispatch, disconnects live listeners and releases the module's resources.
// It is called by the injector on application shutdown.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() {
		var errList []error
		if err := w.indexer.Stop(ctx); err != nil {
			errList = append(errList, errors.Wrap(err, "failed to stop indexer"))
		}
		if err := w.scheduler.Stop(ctx); err != nil {
			errList = append(errList, errors.Wrap(err, "failed to stop webhook scheduler"))
		}
		w.broker.Close()
		for _, cleanup := range w.cleanupFuncs {
			if err := cleanup(ctx); err != nil {
				errList = append(errList, errors.WithStack(err))
			}
		}
		w.shutdownErr = errors.Join(errList...)
	})
	return w.shutdownErr
}
