package stablecoin

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sss-network/sss-indexer/core/indexer"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/sss-network/sss-indexer/modules/stablecoin/config"
	"github.com/sss-network/sss-indexer/modules/stablecoin/executor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/idempotency"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/anchor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/livefeed"
	"github.com/sss-network/sss-indexer/modules/stablecoin/repository/memory"
	"github.com/sss-network/sss-indexer/modules/stablecoin/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workerFixture struct {
	repo      *memory.Repository
	simulated *executor.Simulated
	broker    *livefeed.Broker
	worker    *Worker
}

func newWorkerFixture(t *testing.T, ingestion config.IngestionConfig) *workerFixture {
	t.Helper()
	repo := memory.NewRepository()
	simulated := executor.NewSimulated(testProgramID)
	broker := livefeed.NewBroker(8)
	dispatcher := webhook.NewDispatcher(repo, &countingSender{}, webhook.DispatcherConfig{
		Policy: webhook.RetryPolicy{MaxAttempts: 3, Base: time.Second},
	})
	scheduler := webhook.NewScheduler(dispatcher, time.Hour, 10)

	processor := NewProcessor(repo, testProgramID, broker, scheduler)
	require.NoError(t, processor.VerifyStates(context.Background()))

	f := &workerFixture{
		repo:      repo,
		simulated: simulated,
		broker:    broker,
		worker: &Worker{
			indexer:      indexer.New[types.LogBatch](processor, simulated),
			scheduler:    scheduler,
			broker:       broker,
			idempotency:  idempotency.NewMemoryStore(time.Hour),
			ingestion:    ingestion,
			cleanupFuncs: []func(context.Context) error{func(context.Context) error { return simulated.Close() }},
		},
	}
	t.Cleanup(func() {
		_ = f.worker.Shutdown(context.Background())
	})
	return f
}

func TestWorker(t *testing.T) {
	t.Run("ingests_and_publishes", func(t *testing.T) {
		f := newWorkerFixture(t, config.IngestionConfig{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- f.worker.Run(ctx) }()
		require.Eventually(t, func() bool { return f.worker.indexer.Running() && f.broker.Ready() }, 5*time.Second, 10*time.Millisecond)

		live := make(chan *entity.Event, 8)
		sub, err := f.broker.Subscribe(live)
		require.NoError(t, err)
		defer sub.Unsubscribe()

		signature, err := f.simulated.Submit(ctx, entity.OperationMint, executor.Params{
			Target: testKey(3).String(),
			Amount: decimal.NewFromInt(500),
		})
		require.NoError(t, err)

		select {
		case event := <-live:
			assert.Equal(t, signature, event.Signature)
			assert.Equal(t, anchor.EventTokensMinted, event.Type)
			assert.Equal(t, f.simulated.Config(), event.Subject)
		case <-time.After(5 * time.Second):
			t.Fatal("event was not published")
		}

		_, total, err := f.repo.GetEvents(ctx, entity.EventFilter{Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
		assert.False(t, f.broker.Ready())
	})
	t.Run("lost_ingestion_without_restart", func(t *testing.T) {
		f := newWorkerFixture(t, config.IngestionConfig{})
		done := make(chan error, 1)
		go func() { done <- f.worker.Run(context.Background()) }()
		require.Eventually(t, f.worker.indexer.Running, 5*time.Second, 10*time.Millisecond)

		require.NoError(t, f.simulated.Close())
		select {
		case err := <-done:
			assert.Error(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
	})
	t.Run("ingestion_disabled", func(t *testing.T) {
		f := newWorkerFixture(t, config.IngestionConfig{Disabled: true})
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- f.worker.Run(ctx) }()

		time.Sleep(50 * time.Millisecond)
		assert.False(t, f.worker.indexer.Running())
		assert.False(t, f.broker.Ready())

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
	})
	t.Run("shutdown_stops_run", func(t *testing.T) {
		f := newWorkerFixture(t, config.IngestionConfig{RestartDelay: time.Hour})
		done := make(chan error, 1)
		go func() { done <- f.worker.Run(context.Background()) }()
		require.Eventually(t, f.worker.indexer.Running, 5*time.Second, 10*time.Millisecond)

		require.NoError(t, f.worker.Shutdown(context.Background()))
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
	})
}
