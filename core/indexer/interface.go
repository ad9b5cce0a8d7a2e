package indexer

import (
	"context"
)

type IndexerWorker interface {
	Run(ctx context.Context) error
}

type Processor[T any] interface {
	Name() string

	// Process processes one input from the datasource.
	// Errors marked errs.Unavailable are retried with backoff, other errors skip the input.
	Process(ctx context.Context, input T) error
}
