package usecase

import (
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/sss-network/sss-indexer/modules/stablecoin/datagateway"
	"github.com/sss-network/sss-indexer/modules/stablecoin/executor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/idempotency"
)

const (
	DefaultWaitTimeout  = 5 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

type Config struct {
	ProgramID string
	// WaitTimeout is how long a duplicate command waits for the request holding its key.
	WaitTimeout time.Duration
}

type Usecase struct {
	stablecoinDg datagateway.StablecoinDataGateway
	idempotency  idempotency.Store
	executor     executor.Executor
	programID    string
	waitTimeout  time.Duration
	pollInterval time.Duration

	Now func() time.Time
}

func New(stablecoinDg datagateway.StablecoinDataGateway, idempotencyStore idempotency.Store, executor executor.Executor, config Config) *Usecase {
	return &Usecase{
		stablecoinDg: stablecoinDg,
		idempotency:  idempotencyStore,
		executor:     executor,
		programID:    config.ProgramID,
		waitTimeout:  utils.Default(config.WaitTimeout, DefaultWaitTimeout),
		pollInterval: defaultPollInterval,
		Now:          time.Now,
	}
}
