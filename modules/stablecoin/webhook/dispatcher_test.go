package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/datagateway"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	header http.Header
	body   []byte
}

type endpoint struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	hits     atomic.Int32
}

func newEndpoint(t *testing.T, status int) *endpoint {
	t.Helper()
	e := &endpoint{}
	e.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		e.mu.Lock()
		e.requests = append(e.requests, recordedRequest{header: r.Header.Clone(), body: body})
		e.mu.Unlock()
		e.hits.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(e.server.Close)
	return e
}

func (e *endpoint) recorded() []recordedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]recordedRequest(nil), e.requests...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repo       *memory.Repository
	dispatcher *Dispatcher
	clock      *clock
	webhook    *entity.Webhook
	event      *entity.Event
}

func newFixture(t *testing.T, url string, policy RetryPolicy) *fixture {
	t.Helper()
	ctx := context.Background()
	c := &clock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	repo := memory.NewRepository(memory.WithClock(c.Now))

	webhook := &entity.Webhook{
		ID:         uuid.New(),
		URL:        url,
		EventTypes: []string{"TokensMinted"},
		Secret:     "whsec",
		Active:     true,
		CreatedAt:  c.Now(),
	}
	require.NoError(t, repo.CreateWebhook(ctx, webhook))

	event := &entity.Event{
		Type:      "TokensMinted",
		Subject:   "cfg",
		Signature: "sigA",
		Slot:      10,
		Timestamp: c.Now(),
		Payload:   map[string]any{"amount": "1000000", "recipient": "acct"},
	}
	_, err := repo.InsertEventIfAbsent(ctx, event)
	require.NoError(t, err)

	dispatcher := NewDispatcher(repo, NewHTTPSender(time.Second), DispatcherConfig{Policy: policy, ClaimLease: time.Minute})
	dispatcher.Now = c.Now
	return &fixture{repo: repo, dispatcher: dispatcher, clock: c, webhook: webhook, event: event}
}

func (f *fixture) deliveries(t *testing.T) []*entity.Delivery {
	t.Helper()
	deliveries, _, err := f.repo.GetDeliveriesByWebhookID(context.Background(), f.webhook.ID, 100, 0)
	require.NoError(t, err)
	return deliveries
}

func TestDispatchPending(t *testing.T) {
	ctx := context.Background()

	t.Run("delivered_with_signed_envelope", func(t *testing.T) {
		server := newEndpoint(t, http.StatusOK)
		f := newFixture(t, server.server.URL, RetryPolicy{MaxAttempts: 3, Base: time.Second})

		created, err := f.dispatcher.EnqueueForEvent(ctx, f.event.ID, f.event.Type)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created)

		stats, err := f.dispatcher.DispatchPending(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, DispatchStats{Claimed: 1, Delivered: 1}, stats)

		requests := server.recorded()
		require.Len(t, requests, 1)
		request := requests[0]
		assert.True(t, Verify("whsec", request.body, request.header.Get(HeaderSignature)))
		assert.Equal(t, "TokensMinted", request.header.Get(HeaderEvent))
		assert.Equal(t, strconv.FormatInt(f.deliveries(t)[0].ID, 10), request.header.Get(HeaderDelivery))

		var envelope Envelope
		require.NoError(t, json.Unmarshal(request.body, &envelope))
		assert.Equal(t, "TokensMinted", envelope.Event)
		assert.Equal(t, "sigA", envelope.Signature)
		assert.Equal(t, "2024-05-01T00:00:00Z", envelope.Timestamp)
		assert.Equal(t, "1000000", envelope.Data["amount"])

		// delivered deliveries are never attempted again
		f.clock.Advance(time.Hour)
		stats, err = f.dispatcher.DispatchPending(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, stats.Claimed)
		assert.Equal(t, int32(1), server.hits.Load())

		delivery := f.deliveries(t)[0]
		assert.Equal(t, entity.DeliveryStatusDelivered, delivery.Status)
		assert.Equal(t, int32(1), delivery.Attempts)
		assert.Equal(t, int32(200), delivery.ResponseCode)
		assert.Nil(t, delivery.NextRetryAt)
	})

	t.Run("server_error_until_attempts_exhausted", func(t *testing.T) {
		server := newEndpoint(t, http.StatusInternalServerError)
		f := newFixture(t, server.server.URL, RetryPolicy{MaxAttempts: 3, Base: time.Second})
		_, err := f.dispatcher.EnqueueForEvent(ctx, f.event.ID, f.event.Type)
		require.NoError(t, err)

		start := f.clock.Now()
		expectedNext := []time.Time{start.Add(time.Second), start.Add(3 * time.Second)}
		for i := 0; i < 3; i++ {
			stats, err := f.dispatcher.DispatchPending(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Failed)

			delivery := f.deliveries(t)[0]
			assert.Equal(t, int32(i+1), delivery.Attempts)
			assert.Equal(t, int32(500), delivery.ResponseCode)
			if i < 2 {
				if assert.NotNil(t, delivery.NextRetryAt) {
					assert.Equal(t, expectedNext[i], *delivery.NextRetryAt)
				}
				f.clock.Advance(delivery.NextRetryAt.Sub(f.clock.Now()))
			}
		}

		delivery := f.deliveries(t)[0]
		assert.Equal(t, entity.DeliveryStatusFailed, delivery.Status)
		assert.Equal(t, int32(3), delivery.Attempts)
		assert.Nil(t, delivery.NextRetryAt)

		f.clock.Advance(24 * time.Hour)
		stats, err := f.dispatcher.DispatchPending(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, stats.Claimed)
		assert.Equal(t, int32(3), server.hits.Load())
	})

	t.Run("not_due_before_backoff", func(t *testing.T) {
		server := newEndpoint(t, http.StatusBadGateway)
		f := newFixture(t, server.server.URL, RetryPolicy{MaxAttempts: 3, Base: time.Minute})
		_, err := f.dispatcher.EnqueueForEvent(ctx, f.event.ID, f.event.Type)
		require.NoError(t, err)

		_, err = f.dispatcher.DispatchPending(ctx, 10)
		require.NoError(t, err)
		f.clock.Advance(30 * time.Second)
		stats, err := f.dispatcher.DispatchPending(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, stats.Claimed)
	})

	t.Run("transport_error", func(t *testing.T) {
		f := newFixture(t, "http://127.0.0.1:1/hook", RetryPolicy{MaxAttempts: 3, Base: time.Second})
		_, err := f.dispatcher.EnqueueForEvent(ctx, f.event.ID, f.event.Type)
		require.NoError(t, err)

		stats, err := f.dispatcher.DispatchPending(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Failed)

		delivery := f.deliveries(t)[0]
		assert.Equal(t, entity.DeliveryStatusFailed, delivery.Status)
		assert.Zero(t, delivery.ResponseCode)
		assert.NotNil(t, delivery.NextRetryAt)
	})

	t.Run("deleted_webhook_is_finalized", func(t *testing.T) {
		server := newEndpoint(t, http.StatusOK)
		f := newFixture(t, server.server.URL, RetryPolicy{MaxAttempts: 3, Base: time.Second})
		_, err := f.dispatcher.EnqueueForEvent(ctx, f.event.ID, f.event.Type)
		require.NoError(t, err)
		require.NoError(t, f.repo.DeleteWebhook(ctx, f.webhook.ID))

		stats, err := f.dispatcher.DispatchPending(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Skipped)
		assert.Zero(t, server.hits.Load())

		delivery := f.deliveries(t)[0]
		assert.Equal(t, entity.DeliveryStatusFailed, delivery.Status)
		assert.Equal(t, int32(3), delivery.Attempts)
		assert.Nil(t, delivery.NextRetryAt)
	})

	t.Run("concurrent_dispatchers_never_double_send", func(t *testing.T) {
		server := newEndpoint(t, http.StatusOK)
		f := newFixture(t, server.server.URL, RetryPolicy{MaxAttempts: 3, Base: time.Second})
		for i := 0; i < 20; i++ {
			event := &entity.Event{Type: "TokensMinted", Signature: "sig-" + strconv.Itoa(i), Timestamp: f.clock.Now()}
			_, err := f.repo.InsertEventIfAbsent(ctx, event)
			require.NoError(t, err)
			_, err = f.dispatcher.EnqueueForEvent(ctx, event.ID, event.Type)
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.dispatcher.DispatchPending(ctx, 5)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(20), server.hits.Load())
	})

	t.Run("slow_sends_keep_their_claim", func(t *testing.T) {
		f := newFixture(t, "http://hooks.example", RetryPolicy{MaxAttempts: 3, Base: time.Second})
		second := &entity.Event{Type: "TokensMinted", Signature: "sigB", Timestamp: f.clock.Now()}
		_, err := f.repo.InsertEventIfAbsent(ctx, second)
		require.NoError(t, err)
		for _, event := range []*entity.Event{f.event, second} {
			_, err := f.dispatcher.EnqueueForEvent(ctx, event.ID, event.Type)
			require.NoError(t, err)
		}

		other := NewDispatcher(f.repo, nil, DispatcherConfig{Policy: RetryPolicy{MaxAttempts: 3, Base: time.Second}, ClaimLease: time.Minute})
		other.Now = f.clock.Now
		var otherStats DispatchStats
		sender := &scriptedSender{
			clock: f.clock,
			onSend: func(call int) (time.Duration, int) {
				if call == 2 {
					// the first claim would have expired by now, another dispatcher runs mid-send
					f.clock.Advance(40 * time.Second)
					stats, err := other.DispatchPending(ctx, 10)
					assert.NoError(t, err)
					otherStats = stats
					return 0, http.StatusOK
				}
				return 40 * time.Second, http.StatusOK
			},
		}
		other.sender = sender

		dispatcher := NewDispatcher(f.repo, sender, DispatcherConfig{
			Policy:      RetryPolicy{MaxAttempts: 3, Base: time.Second},
			Concurrency: 1,
			ClaimLease:  time.Minute,
		})
		dispatcher.Now = f.clock.Now

		stats, err := dispatcher.DispatchPending(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, DispatchStats{Claimed: 2, Delivered: 2}, stats)
		assert.Zero(t, otherStats.Claimed)
		assert.Equal(t, map[int64]int{1: 1, 2: 1}, sender.perDelivery())
	})

	t.Run("lost_claim_does_not_overwrite", func(t *testing.T) {
		f := newFixture(t, "http://hooks.example", RetryPolicy{MaxAttempts: 3, Base: time.Second})
		_, err := f.dispatcher.EnqueueForEvent(ctx, f.event.ID, f.event.Type)
		require.NoError(t, err)

		other := NewDispatcher(f.repo, nil, DispatcherConfig{Policy: RetryPolicy{MaxAttempts: 3, Base: time.Second}, ClaimLease: time.Minute})
		other.Now = f.clock.Now
		sender := &scriptedSender{
			clock: f.clock,
			onSend: func(call int) (time.Duration, int) {
				if call == 1 {
					f.clock.Advance(2 * time.Minute)
					_, err := other.DispatchPending(ctx, 10)
					assert.NoError(t, err)
					return 0, http.StatusInternalServerError
				}
				return 0, http.StatusOK
			},
		}
		other.sender = sender
		dispatcher := NewDispatcher(f.repo, sender, DispatcherConfig{Policy: RetryPolicy{MaxAttempts: 3, Base: time.Second}, ClaimLease: time.Minute})
		dispatcher.Now = f.clock.Now

		stats, err := dispatcher.DispatchPending(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, DispatchStats{Claimed: 1, Lost: 1}, stats)

		delivery := f.deliveries(t)[0]
		assert.Equal(t, entity.DeliveryStatusDelivered, delivery.Status)
		assert.Equal(t, int32(1), delivery.Attempts)
		assert.Equal(t, int32(200), delivery.ResponseCode)
	})

	t.Run("claims_in_waves_of_concurrency", func(t *testing.T) {
		server := newEndpoint(t, http.StatusOK)
		f := newFixture(t, server.server.URL, RetryPolicy{MaxAttempts: 3, Base: time.Second})
		for i := 0; i < 5; i++ {
			event := &entity.Event{Type: "TokensMinted", Signature: "wave-" + strconv.Itoa(i), Timestamp: f.clock.Now()}
			_, err := f.repo.InsertEventIfAbsent(ctx, event)
			require.NoError(t, err)
			_, err = f.dispatcher.EnqueueForEvent(ctx, event.ID, event.Type)
			require.NoError(t, err)
		}

		store := &countingStore{Repository: f.repo}
		dispatcher := NewDispatcher(store, NewHTTPSender(time.Second), DispatcherConfig{
			Policy:      RetryPolicy{MaxAttempts: 3, Base: time.Second},
			Concurrency: 2,
			ClaimLease:  time.Minute,
		})
		dispatcher.Now = f.clock.Now

		stats, err := dispatcher.DispatchPending(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, DispatchStats{Claimed: 4, Delivered: 4}, stats)
		assert.Equal(t, []int32{2, 2}, store.claimLimits())
		// every delivery shares one webhook
		assert.Equal(t, int32(1), store.webhookLookups.Load())

		stats, err = dispatcher.DispatchPending(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, DispatchStats{Claimed: 1, Delivered: 1}, stats)
		assert.Equal(t, []int32{2, 2, 2}, store.claimLimits())
		assert.Equal(t, int32(5), server.hits.Load())
	})
}

func TestDispatcherConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		config DispatcherConfig
		valid  bool
	}{
		{name: "lease_longer_than_attempt", config: DispatcherConfig{ClaimLease: time.Minute, AttemptTimeout: 10 * time.Second}, valid: true},
		{name: "defaults", config: DispatcherConfig{}, valid: true},
		{name: "lease_equal_to_attempt", config: DispatcherConfig{ClaimLease: 10 * time.Second, AttemptTimeout: 10 * time.Second}},
		{name: "lease_shorter_than_attempt", config: DispatcherConfig{ClaimLease: 5 * time.Second, AttemptTimeout: 10 * time.Second}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, errs.InvalidArgument))
		})
	}
}

// scriptedSender answers every send from onSend, advancing the clock by the returned duration.
type scriptedSender struct {
	clock  *clock
	onSend func(call int) (time.Duration, int)

	mu    sync.Mutex
	calls int
	sent  map[int64]int
}

func (s *scriptedSender) Send(_ context.Context, req Request) (int, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	if s.sent == nil {
		s.sent = make(map[int64]int)
	}
	s.sent[req.DeliveryID]++
	s.mu.Unlock()

	elapsed, code := s.onSend(call)
	s.clock.Advance(elapsed)
	return code, nil
}

func (s *scriptedSender) perDelivery() map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int, len(s.sent))
	for id, n := range s.sent {
		out[id] = n
	}
	return out
}

type countingStore struct {
	*memory.Repository

	mu             sync.Mutex
	limits         []int32
	webhookLookups atomic.Int32
}

func (s *countingStore) ClaimDeliveries(ctx context.Context, params datagateway.ClaimDeliveriesParams) ([]*entity.Delivery, error) {
	s.mu.Lock()
	s.limits = append(s.limits, params.Limit)
	s.mu.Unlock()
	return s.Repository.ClaimDeliveries(ctx, params)
}

func (s *countingStore) GetWebhookByID(ctx context.Context, id uuid.UUID) (*entity.Webhook, error) {
	s.webhookLookups.Add(1)
	return s.Repository.GetWebhookByID(ctx, id)
}

func (s *countingStore) claimLimits() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int32(nil), s.limits...)
}
