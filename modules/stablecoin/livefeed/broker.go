// Package livefeed fans freshly persisted events out to connected live listeners.
package livefeed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/internal/subscription"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/metrics"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

const DefaultBufferSize = 64

// Broker pushes events to every listener without blocking the publisher.
// A listener that falls a full buffer behind misses events rather than stalling ingestion.
type Broker struct {
	bufferSize int
	ready      atomic.Bool

	mu        sync.Mutex
	closed    bool
	listeners map[*subscription.Subscription[*entity.Event]]struct{}
}

func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broker{
		bufferSize: bufferSize,
		listeners:  make(map[*subscription.Subscription[*entity.Event]]struct{}),
	}
}

// SetReady marks whether events are flowing, i.e. ingestion is running.
func (b *Broker) SetReady(ready bool) {
	b.ready.Store(ready)
}

func (b *Broker) Ready() bool {
	return b.ready.Load()
}

// Subscribe registers a listener receiving events on ch until the returned subscription is unsubscribed.
func (b *Broker) Subscribe(ch chan<- *entity.Event) (*subscription.ClientSubscription[*entity.Event], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.Wrap(errs.Unavailable, "live feed is closed")
	}
	sub := subscription.NewSubscriptionWithBuffer(ch, b.bufferSize)
	b.listeners[sub] = struct{}{}
	metrics.LiveListeners.Set(float64(len(b.listeners)))
	return sub.Client(), nil
}

// Publish pushes event to all listeners and returns how many received it.
func (b *Broker) Publish(ctx context.Context, event *entity.Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	sent := 0
	for sub := range b.listeners {
		if sub.IsClosed() {
			delete(b.listeners, sub)
			continue
		}
		if sub.TrySend(event) {
			sent++
			continue
		}
		logger.WarnContext(ctx, "live listener is too slow, event dropped",
			slogx.String("package", "livefeed"),
			slogx.Int64("event_id", event.ID),
		)
	}
	metrics.LiveListeners.Set(float64(len(b.listeners)))
	return sent
}

// Len returns the number of connected listeners.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for sub := range b.listeners {
		if !sub.IsClosed() {
			n++
		}
	}
	return n
}

// Close disconnects every listener. Later subscriptions fail with errs.Unavailable.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.ready.Store(false)
	for sub := range b.listeners {
		sub.Unsubscribe()
	}
	b.listeners = make(map[*subscription.Subscription[*entity.Event]]struct{})
	metrics.LiveListeners.Set(0)
}
