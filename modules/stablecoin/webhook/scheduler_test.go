package webhook

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	c chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               {}

type fakeDispatch struct {
	calls   atomic.Int32
	called  chan struct{}
	release chan struct{}
}

func (d *fakeDispatch) DispatchPending(ctx context.Context, batchLimit int) (DispatchStats, error) {
	d.calls.Add(1)
	d.called <- struct{}{}
	if d.release != nil {
		<-d.release
	}
	return DispatchStats{}, nil
}

func TestScheduler(t *testing.T) {
	waitCall := func(t *testing.T, d *fakeDispatch) {
		t.Helper()
		select {
		case <-d.called:
		case <-time.After(time.Second):
			require.FailNow(t, "dispatch was not called")
		}
	}

	t.Run("tick_and_trigger", func(t *testing.T) {
		ticker := &fakeTicker{c: make(chan time.Time)}
		dispatch := &fakeDispatch{called: make(chan struct{}, 4)}
		scheduler := NewScheduler(dispatch, time.Hour, 10, WithTickerFactory(func(time.Duration) Ticker { return ticker }))
		scheduler.Start(context.Background())

		ticker.c <- time.Now()
		waitCall(t, dispatch)
		scheduler.Trigger()
		waitCall(t, dispatch)

		require.NoError(t, scheduler.Stop(context.Background()))
		require.NoError(t, scheduler.Stop(context.Background()))
		assert.Equal(t, int32(2), dispatch.calls.Load())
	})

	t.Run("stop_waits_for_in_flight_run", func(t *testing.T) {
		ticker := &fakeTicker{c: make(chan time.Time)}
		dispatch := &fakeDispatch{called: make(chan struct{}, 1), release: make(chan struct{})}
		scheduler := NewScheduler(dispatch, time.Hour, 10, WithTickerFactory(func(time.Duration) Ticker { return ticker }))
		scheduler.Start(context.Background())

		scheduler.Trigger()
		waitCall(t, dispatch)

		stopped := make(chan error, 1)
		go func() { stopped <- scheduler.Stop(context.Background()) }()
		select {
		case <-stopped:
			require.FailNow(t, "stop returned before the run finished")
		case <-time.After(50 * time.Millisecond):
		}
		close(dispatch.release)
		assert.NoError(t, <-stopped)
	})

	t.Run("stop_not_started", func(t *testing.T) {
		scheduler := NewScheduler(&fakeDispatch{}, time.Second, 10)
		assert.NoError(t, scheduler.Stop(context.Background()))
	})
}
