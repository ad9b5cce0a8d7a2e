// Package subscription forwards values from a producer to a consumer channel through a buffer,
// so a producer never waits on a consumer that is gone.
package subscription

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
)

// DefaultBufferSize is the number of values a subscription holds while its consumer is busy.
const DefaultBufferSize = 8

var ErrClosed = errors.Mark(errors.New("subscription is closed"), errs.Unavailable)

// Subscription is the producer side of a subscription. Values are forwarded to the consumer channel
// by a goroutine that stops on Unsubscribe.
type Subscription[T any] struct {
	out chan<- T
	in  chan T
	err chan error

	closeOnce sync.Once
	quit      chan struct{} // closed to stop the forwarding loop
	done      chan struct{} // closed once the forwarding loop has stopped
}

func NewSubscription[T any](channel chan<- T) *Subscription[T] {
	return NewSubscriptionWithBuffer(channel, DefaultBufferSize)
}

// NewSubscriptionWithBuffer is NewSubscription with a custom buffer size for values.
func NewSubscriptionWithBuffer[T any](channel chan<- T, size int) *Subscription[T] {
	if size <= 0 {
		size = DefaultBufferSize
	}
	s := &Subscription[T]{
		out:  channel,
		in:   make(chan T, size),
		err:  make(chan error, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *Subscription[T]) forward() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case value := <-s.in:
			select {
			case s.out <- value:
			case <-s.quit:
				return
			}
		}
	}
}

// Unsubscribe stops forwarding. Values still buffered are dropped. It is safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	_ = s.UnsubscribeWithContext(context.Background())
}

// UnsubscribeWithContext is Unsubscribe, giving up waiting for the forwarding loop when ctx is done.
func (s *Subscription[T]) UnsubscribeWithContext(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.quit) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// Client returns the consumer side of this subscription.
func (s *Subscription[T]) Client() *ClientSubscription[T] {
	return &ClientSubscription[T]{subscription: s}
}

// Err receives the error that ended the subscription, if any.
func (s *Subscription[T]) Err() <-chan error {
	return s.err
}

func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[T]) IsClosed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// Send buffers value, waiting for room. It returns ErrClosed once unsubscribed.
func (s *Subscription[T]) Send(ctx context.Context, value T) error {
	if s.IsClosed() {
		return errors.WithStack(ErrClosed)
	}
	select {
	case s.in <- value:
		return nil
	case <-s.quit:
		return errors.WithStack(ErrClosed)
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// TrySend buffers value without waiting. It reports false when the buffer is full or the subscription is closed.
func (s *Subscription[T]) TrySend(value T) bool {
	if s.IsClosed() {
		return false
	}
	select {
	case s.in <- value:
		return true
	default:
		return false
	}
}

// SendError hands the error that ends the subscription to the consumer.
func (s *Subscription[T]) SendError(ctx context.Context, err error) error {
	if s.IsClosed() {
		return errors.WithStack(ErrClosed)
	}
	select {
	case s.err <- err:
		return nil
	case <-s.quit:
		return errors.WithStack(ErrClosed)
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}
