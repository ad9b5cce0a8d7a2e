package datasources

import (
	"context"

	"github.com/sss-network/sss-indexer/internal/subscription"
)

// Datasource is an interface for indexer data sources.
// Subscribe pushes inputs into ch until the returned subscription is unsubscribed or the source is lost,
// in which case the error is sent to the subscription's error channel.
type Datasource[T any] interface {
	Name() string
	Subscribe(ctx context.Context, ch chan<- T) (*subscription.ClientSubscription[T], error)
}
