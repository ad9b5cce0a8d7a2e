package stablecoin

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/google/uuid"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/anchor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/repository/memory"
	"github.com/sss-network/sss-indexer/modules/stablecoin/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProgramID = "SSSToken11111111111111111111111111111111111"

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu     sync.Mutex
	events []*entity.Event
}

func (f *fakePublisher) Publish(ctx context.Context, event *entity.Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return 1
}

func (f *fakePublisher) published() []*entity.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.Event(nil), f.events...)
}

type fakeTrigger struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTrigger) Trigger() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeTrigger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingSender struct {
	mu       sync.Mutex
	requests []webhook.Request
}

func (s *countingSender) Send(ctx context.Context, req webhook.Request) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return 200, nil
}

func testKey(b byte) anchor.PublicKey {
	var pk anchor.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func mintedLine(t *testing.T, amount uint64) string {
	t.Helper()
	line, err := anchor.EncodeLogLine(anchor.EventTokensMinted, map[string]any{
		"config":           testKey(1),
		"mint":             testKey(2),
		"recipient":        testKey(3),
		"amount":           uint128.From64(amount),
		"minter":           testKey(4),
		"new_total_supply": uint128.From64(amount * 10),
		"timestamp":        int64(1_700_000_000),
	})
	require.NoError(t, err)
	return line
}

func pausedLine(t *testing.T) string {
	t.Helper()
	line, err := anchor.EncodeLogLine(anchor.EventSystemPaused, map[string]any{
		"config":    testKey(1),
		"paused_by": testKey(5),
		"timestamp": int64(1_700_000_100),
	})
	require.NoError(t, err)
	return line
}

func logBatch(signature string, slot int64, lines ...string) types.LogBatch {
	logs := []string{fmt.Sprintf("Program %s invoke [1]", testProgramID)}
	logs = append(logs, lines...)
	logs = append(logs, fmt.Sprintf("Program %s success", testProgramID))
	return types.LogBatch{
		Signature:  signature,
		Slot:       slot,
		Logs:       logs,
		ReceivedAt: testTime,
	}
}

type processorFixture struct {
	repo      *memory.Repository
	publisher *fakePublisher
	trigger   *fakeTrigger
	processor *Processor
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	repo := memory.NewRepository(memory.WithClock(func() time.Time { return testTime }))
	f := &processorFixture{
		repo:      repo,
		publisher: &fakePublisher{},
		trigger:   &fakeTrigger{},
	}
	f.processor = NewProcessor(repo, testProgramID, f.publisher, f.trigger)
	f.processor.Now = func() time.Time { return testTime }
	require.NoError(t, f.processor.VerifyStates(context.Background()))
	return f
}

func TestVerifyStates(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes_fresh_store", func(t *testing.T) {
		f := newProcessorFixture(t)
		state, err := f.repo.GetIndexerState(ctx)
		require.NoError(t, err)
		assert.Equal(t, testProgramID, state.ProgramID)
		assert.Equal(t, int32(DBVersion), state.DBVersion)
		assert.Equal(t, int32(anchor.SchemaVersion), state.EventSchemaVersion)
	})
	t.Run("accepts_same_program", func(t *testing.T) {
		f := newProcessorFixture(t)
		assert.NoError(t, f.processor.VerifyStates(ctx))
	})
	t.Run("rejects_other_program", func(t *testing.T) {
		f := newProcessorFixture(t)
		other := NewProcessor(f.repo, testKey(9).String(), f.publisher, f.trigger)
		err := other.VerifyStates(ctx)
		assert.True(t, errors.Is(err, errs.ConflictSetting))
	})
	t.Run("rejects_other_db_version", func(t *testing.T) {
		f := newProcessorFixture(t)
		require.NoError(t, f.repo.SetIndexerState(ctx, entity.IndexerState{
			ProgramID:          testProgramID,
			DBVersion:          DBVersion + 1,
			EventSchemaVersion: anchor.SchemaVersion,
		}))
		assert.True(t, errors.Is(f.processor.VerifyStates(ctx), errs.ConflictSetting))
	})
	t.Run("rejects_invalid_program_id", func(t *testing.T) {
		p := NewProcessor(memory.NewRepository(), "not-a-key", &fakePublisher{}, &fakeTrigger{})
		assert.True(t, errors.Is(p.VerifyStates(ctx), errs.InvalidArgument))
	})
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes_event", func(t *testing.T) {
		f := newProcessorFixture(t)
		require.NoError(t, f.processor.Process(ctx, logBatch("sigA", 100, mintedLine(t, 1_000_000))))

		events, total, err := f.repo.GetEvents(ctx, entity.EventFilter{Limit: 10})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		event := events[0]
		assert.Equal(t, anchor.EventTokensMinted, event.Type)
		assert.Equal(t, "sigA", event.Signature)
		assert.Equal(t, testKey(1).String(), event.Subject)
		assert.Equal(t, int64(100), event.Slot)
		assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), event.Timestamp)
		assert.Equal(t, "1000000", event.Payload["amount"])
		assert.Len(t, f.publisher.published(), 1)
	})
	t.Run("duplicate_signature_is_indexed_once", func(t *testing.T) {
		f := newProcessorFixture(t)
		batch := logBatch("sigA", 100, mintedLine(t, 1))
		require.NoError(t, f.processor.Process(ctx, batch))
		require.NoError(t, f.processor.Process(ctx, batch))

		_, total, err := f.repo.GetEvents(ctx, entity.EventFilter{Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, f.publisher.published(), 1)
	})
	t.Run("redelivered_transaction_leaves_state_untouched", func(t *testing.T) {
		now := testTime
		repo := memory.NewRepository(memory.WithClock(func() time.Time { return now }))
		trigger := &fakeTrigger{}
		processor := NewProcessor(repo, testProgramID, &fakePublisher{}, trigger)
		processor.Now = func() time.Time { return now }
		require.NoError(t, processor.VerifyStates(ctx))
		require.NoError(t, repo.CreateWebhook(ctx, &entity.Webhook{ID: uuid.New(), URL: "http://hooks.example", EventTypes: []string{anchor.EventTokensMinted}, Secret: "s", Active: true}))

		batch := logBatch("sigA", 100, mintedLine(t, 1))
		require.NoError(t, processor.Process(ctx, batch))
		before, err := repo.GetIndexerState(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, trigger.count())

		now = now.Add(time.Minute)
		require.NoError(t, processor.Process(ctx, batch))
		after, err := repo.GetIndexerState(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, 1, trigger.count())
	})
	t.Run("watermark_never_moves_back", func(t *testing.T) {
		f := newProcessorFixture(t)
		require.NoError(t, f.processor.Process(ctx, logBatch("sig1", 120, mintedLine(t, 1))))
		require.NoError(t, f.processor.Process(ctx, logBatch("sig2", 110, mintedLine(t, 2))))

		state, err := f.repo.GetIndexerState(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(120), state.LastSlot)

		_, total, err := f.repo.GetEvents(ctx, entity.EventFilter{Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})
	t.Run("multiple_events_per_transaction", func(t *testing.T) {
		f := newProcessorFixture(t)
		require.NoError(t, f.processor.Process(ctx, logBatch("sigM", 100, mintedLine(t, 1), pausedLine(t))))

		events, _, err := f.repo.GetEvents(ctx, entity.EventFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, events, 2)
		keys := []string{events[0].Signature, events[1].Signature}
		assert.ElementsMatch(t, []string{"sigM", "sigM:1"}, keys)
	})
	t.Run("reverted_transaction_is_skipped", func(t *testing.T) {
		f := newProcessorFixture(t)
		batch := logBatch("sigR", 100, mintedLine(t, 1))
		batch.Failed = true
		require.NoError(t, f.processor.Process(ctx, batch))

		_, total, err := f.repo.GetEvents(ctx, entity.EventFilter{Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
		state, err := f.repo.GetIndexerState(ctx)
		require.NoError(t, err)
		assert.Zero(t, state.LastSlot)
	})
	t.Run("undecodable_line_is_skipped", func(t *testing.T) {
		f := newProcessorFixture(t)
		require.NoError(t, f.processor.Process(ctx, logBatch("sigP", 100, "Program data: AAEC", mintedLine(t, 1))))

		events, total, err := f.repo.GetEvents(ctx, entity.EventFilter{Limit: 10})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		assert.Equal(t, "sigP", events[0].Signature)
		assert.Len(t, f.publisher.published(), 1)
	})
	t.Run("transaction_without_events_advances_watermark", func(t *testing.T) {
		f := newProcessorFixture(t)
		require.NoError(t, f.processor.Process(ctx, logBatch("sigE", 90, "Program log: Instruction: Noop")))

		state, err := f.repo.GetIndexerState(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(90), state.LastSlot)
		assert.Zero(t, f.trigger.count())
	})
}

func TestProcessDeliversOncePerSubscriber(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)

	subscribed := &entity.Webhook{
		ID:         uuid.New(),
		URL:        "https://example.com/hook",
		EventTypes: []string{anchor.EventTokensMinted},
		Secret:     "s3cret",
		Active:     true,
	}
	other := &entity.Webhook{
		ID:         uuid.New(),
		URL:        "https://example.com/other",
		EventTypes: []string{anchor.EventTokensBurned},
		Secret:     "s3cret",
		Active:     true,
	}
	require.NoError(t, f.repo.CreateWebhook(ctx, subscribed))
	require.NoError(t, f.repo.CreateWebhook(ctx, other))

	batch := logBatch("sigA", 100, mintedLine(t, 1_000_000))
	require.NoError(t, f.processor.Process(ctx, batch))
	require.NoError(t, f.processor.Process(ctx, batch))
	assert.Equal(t, 1, f.trigger.count())

	sender := &countingSender{}
	dispatcher := webhook.NewDispatcher(f.repo, sender, webhook.DispatcherConfig{
		Policy: webhook.RetryPolicy{MaxAttempts: 5, Base: time.Second, MaxBackoff: time.Hour},
	})
	dispatcher.Now = func() time.Time { return testTime }

	stats, err := dispatcher.DispatchPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Delivered)

	stats, err = dispatcher.DispatchPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, stats.Claimed)

	require.Len(t, sender.requests, 1)
	assert.Equal(t, subscribed.URL, sender.requests[0].URL)
	assert.Equal(t, anchor.EventTokensMinted, sender.requests[0].EventType)

	deliveries, total, err := f.repo.GetDeliveriesByWebhookID(ctx, subscribed.ID, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, entity.DeliveryStatusDelivered, deliveries[0].Status)
	assert.Equal(t, int32(1), deliveries[0].Attempts)

	_, total, err = f.repo.GetDeliveriesByWebhookID(ctx, other.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}
