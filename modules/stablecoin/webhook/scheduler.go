package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

const DefaultDispatchInterval = 5 * time.Second

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(interval time.Duration) Ticker

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func NewTimeTicker(interval time.Duration) Ticker {
	return timeTicker{time.NewTicker(interval)}
}

type Dispatch interface {
	DispatchPending(ctx context.Context, batchLimit int) (DispatchStats, error)
}

// Scheduler calls DispatchPending every interval and whenever Trigger is called.
// Dispatch runs never overlap within one scheduler.
type Scheduler struct {
	dispatcher Dispatch
	interval   time.Duration
	batchLimit int
	newTicker  TickerFactory

	trigger chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SchedulerOption func(*Scheduler)

func WithTickerFactory(factory TickerFactory) SchedulerOption {
	return func(s *Scheduler) {
		s.newTicker = factory
	}
}

func NewScheduler(dispatcher Dispatch, interval time.Duration, batchLimit int, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = DefaultDispatchInterval
	}
	s := &Scheduler{
		dispatcher: dispatcher,
		interval:   interval,
		batchLimit: batchLimit,
		newTicker:  NewTimeTicker,
		trigger:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the scheduler in the background. It is a no-op when already started.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Trigger requests a dispatch run as soon as possible. Requests made while a run is pending are merged.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop stops the scheduler and waits for the in-flight run to finish, or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ctx = logger.WithContext(ctx, slogx.String("package", "webhook"), slogx.String("event", "dispatch"))

	ticker := s.newTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		case <-s.trigger:
		}
		s.dispatch(ctx)
	}
}

func (s *Scheduler) dispatch(ctx context.Context) {
	stats, err := s.dispatcher.DispatchPending(ctx, s.batchLimit)
	if err != nil {
		logger.ErrorContext(ctx, "failed to dispatch pending deliveries", err)
		return
	}
	if stats.Claimed > 0 {
		logger.DebugContext(ctx, "dispatched pending deliveries",
			slogx.Int("claimed", stats.Claimed),
			slogx.Int("delivered", stats.Delivered),
			slogx.Int("failed", stats.Failed),
			slogx.Int("skipped", stats.Skipped),
			slogx.Int("lost", stats.Lost),
		)
	}
}
