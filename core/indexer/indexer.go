package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/core/datasources"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

const (
	// DefaultRetryInterval is the first wait before retrying an input that failed on unavailable infrastructure.
	DefaultRetryInterval = time.Second

	maxRetryInterval = time.Minute
	shutdownTimeout  = 180 * time.Second
)

// ErrAlreadyRunning is returned by Run when the indexer is already running.
var ErrAlreadyRunning = errors.Mark(errors.New("indexer is already running"), errs.Conflict)

// Indexer generic indexer that consumes a datasource subscription and hands every input to the processor.
type Indexer[T any] struct {
	Processor     Processor[T]
	Datasource    datasources.Datasource[T]
	RetryInterval time.Duration

	mu      sync.Mutex
	current *run
}

// run is the state of a single Run call. Stop acts on it, so the indexer can be run again afterwards.
type run struct {
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// New create new generic indexer
func New[T any](processor Processor[T], datasource datasources.Datasource[T]) *Indexer[T] {
	return &Indexer[T]{
		Processor:     processor,
		Datasource:    datasource,
		RetryInterval: DefaultRetryInterval,
	}
}

// Running reports whether Run is in progress.
func (i *Indexer[T]) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current != nil
}

// Stop cancels the running subscription and waits for the input in progress to finish.
// It is a no-op when the indexer is not running and safe to call more than once.
func (i *Indexer[T]) Stop(ctx context.Context) (err error) {
	i.mu.Lock()
	r := i.current
	i.mu.Unlock()
	if r == nil {
		return nil
	}

	r.stopOnce.Do(r.cancel)
	select {
	case <-r.done:
	case <-time.After(shutdownTimeout):
		err = errors.Wrap(errs.Timeout, "indexer shutdown timeout")
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "indexer shutdown context canceled")
	}
	return
}

// Run subscribes to the datasource and processes inputs until Stop is called or ctx is done, which return nil.
// Losing the subscription is returned as an error and is not retried here.
func (i *Indexer[T]) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}

	i.mu.Lock()
	if i.current != nil {
		i.mu.Unlock()
		cancel()
		return errors.WithStack(ErrAlreadyRunning)
	}
	i.current = r
	i.mu.Unlock()

	defer func() {
		cancel()
		i.mu.Lock()
		i.current = nil
		i.mu.Unlock()
		close(r.done)
	}()

	ctx = logger.WithContext(ctx,
		slog.String("package", "indexer"),
		slog.String("processor", i.Processor.Name()),
		slog.String("datasource", i.Datasource.Name()),
	)

	ch := make(chan T)
	subscription, err := i.Datasource.Subscribe(ctx, ch)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe datasource")
	}
	defer subscription.Unsubscribe()

	logger.InfoContext(ctx, "Indexer subscribed, waiting for inputs")
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Got quit signal, stopping indexer")
			return nil
		case input := <-ch:
			i.process(ctx, input)
		case err := <-subscription.Err():
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			logger.ErrorContext(ctx, "Lost datasource subscription", err, slogx.String("event", "subscription_lost"))
			return errors.Wrap(err, "datasource subscription lost")
		case <-subscription.Done():
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(errs.Unavailable, "datasource subscription closed")
		}
	}
}

// process hands the input to the processor on a context that survives Stop, so an input is never half processed.
// Unavailable errors are retried with exponential backoff until they succeed or the indexer stops.
func (i *Indexer[T]) process(ctx context.Context, input T) {
	processCtx := context.WithoutCancel(ctx)
	interval := i.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	for attempt := 1; ; attempt++ {
		err := i.Processor.Process(processCtx, input)
		if err == nil {
			return
		}
		if !errors.Is(err, errs.Unavailable) {
			logger.ErrorContext(ctx, "Failed to process input, skipping", err, slogx.String("event", "process_skipped"))
			return
		}

		logger.WarnContext(ctx, "Store unavailable while processing input, retrying",
			slogx.Error(err),
			slog.Int("attempt", attempt),
			slogx.Duration("retry_in", interval),
		)
		select {
		case <-ctx.Done():
			logger.WarnContext(ctx, "Indexer stopped before input could be processed", slog.Int("attempt", attempt))
			return
		case <-time.After(interval):
		}
		interval = min(interval*2, maxRetryInterval)
	}
}
