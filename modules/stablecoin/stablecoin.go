package stablecoin

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/core/datasources"
	"github.com/sss-network/sss-indexer/core/indexer"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/sss-network/sss-indexer/internal/config"
	"github.com/sss-network/sss-indexer/internal/postgres"
	"github.com/sss-network/sss-indexer/modules/stablecoin/api/httphandler"
	"github.com/sss-network/sss-indexer/modules/stablecoin/datagateway"
	"github.com/sss-network/sss-indexer/modules/stablecoin/executor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/idempotency"
	"github.com/sss-network/sss-indexer/modules/stablecoin/livefeed"
	"github.com/sss-network/sss-indexer/modules/stablecoin/metrics"
	stablecoinmemory "github.com/sss-network/sss-indexer/modules/stablecoin/repository/memory"
	stablecoinpostgres "github.com/sss-network/sss-indexer/modules/stablecoin/repository/postgres"
	"github.com/sss-network/sss-indexer/modules/stablecoin/usecase"
	"github.com/sss-network/sss-indexer/modules/stablecoin/webhook"
	"github.com/sss-network/sss-indexer/pkg/logger"
)

func New(injector do.Injector) (indexer.IndexerWorker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	moduleConf := conf.Modules.Stablecoin

	metrics.Register()

	var (
		stablecoinDg     datagateway.StablecoinDataGateway
		pg               postgres.DB
		idempotencyStore idempotency.Store
	)
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(moduleConf.Database) {
	case "postgresql", "postgres", "pg":
		pool, err := postgres.NewPool(ctx, moduleConf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for indexer")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		pg = pool
		stablecoinDg = stablecoinpostgres.NewRepository(pool)
	case "memory":
		stablecoinDg = stablecoinmemory.NewRepository()
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for indexer is not supported", moduleConf.Database)
	}

	switch strings.ToLower(moduleConf.Idempotency.Store) {
	case "", "memory":
		idempotencyStore = idempotency.NewMemoryStore(moduleConf.Idempotency.TTL)
	case "postgresql", "postgres", "pg":
		if pg == nil {
			return nil, errors.Wrap(errs.InvalidArgument, "postgres idempotency store requires the postgres database")
		}
		idempotencyStore = idempotency.NewPostgresStore(pg, moduleConf.Idempotency.TTL)
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q idempotency store is not supported", moduleConf.Idempotency.Store)
	}

	var (
		commandExecutor executor.Executor
		logDatasource   datasources.Datasource[types.LogBatch]
	)
	switch strings.ToLower(moduleConf.Executor.Type) {
	case "remote":
		remote, err := executor.NewRemote(executor.RemoteConfig{
			URL:     moduleConf.Executor.Remote.URL,
			APIKey:  moduleConf.Executor.Remote.APIKey,
			Timeout: moduleConf.Executor.Remote.Timeout,
			Debug:   conf.Logger.Debug,
		})
		if err != nil {
			return nil, errors.Wrap(err, "can't create remote executor")
		}
		commandExecutor = remote
	case "simulated":
		simulated := executor.NewSimulated(moduleConf.ProgramID)
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			return simulated.Close()
		})
		commandExecutor = simulated
		// the simulated ledger is also the log source, whatever datasource is configured
		logDatasource = simulated
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q executor is not supported", moduleConf.Executor.Type)
	}

	if logDatasource == nil {
		switch strings.ToLower(moduleConf.Datasource) {
		case "solana-rpc", "solana":
			logDatasource = datasources.NewSolanaLogs(moduleConf.RPC.WSURL, moduleConf.ProgramID, moduleConf.RPC.Commitment)
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q datasource is not supported", moduleConf.Datasource)
		}
	}

	dispatcherConf := webhook.DispatcherConfig{
		Policy: webhook.RetryPolicy{
			MaxAttempts: int32(moduleConf.Webhook.MaxAttempts),
			Base:        moduleConf.Webhook.RetryBase,
			MaxBackoff:  moduleConf.Webhook.MaxBackoff,
		},
		BatchLimit:     moduleConf.Webhook.BatchLimit,
		Concurrency:    moduleConf.Webhook.DispatchConcurrency,
		ClaimLease:     moduleConf.Webhook.ClaimLease,
		AttemptTimeout: moduleConf.Webhook.RequestTimeout,
	}
	if err := dispatcherConf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid webhook configuration")
	}
	dispatcher := webhook.NewDispatcher(stablecoinDg, webhook.NewHTTPSender(moduleConf.Webhook.RequestTimeout), dispatcherConf)
	scheduler := webhook.NewScheduler(dispatcher, moduleConf.Webhook.DispatchInterval, moduleConf.Webhook.BatchLimit)
	broker := livefeed.NewBroker(moduleConf.Live.BufferSize)

	processor := NewProcessor(stablecoinDg, moduleConf.ProgramID, broker, scheduler)
	if err := processor.VerifyStates(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	// Mount API
	apiHandlers := lo.Uniq(moduleConf.APIHandlers)
	for _, handler := range apiHandlers {
		switch handler {
		case "http":
			httpServer := do.MustInvoke[*fiber.App](injector)
			stablecoinUsecase := usecase.New(stablecoinDg, idempotencyStore, commandExecutor, usecase.Config{
				ProgramID:   moduleConf.ProgramID,
				WaitTimeout: moduleConf.Idempotency.WaitTimeout,
			})
			stablecoinHTTPHandler := httphandler.New(stablecoinUsecase, broker, moduleConf.Live.Keepalive)
			if err := stablecoinHTTPHandler.Mount(httpServer); err != nil {
				return nil, errors.Wrap(err, "can't mount Stablecoin API")
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler)
		}
	}

	return &Worker{
		indexer:      indexer.New[types.LogBatch](processor, logDatasource),
		scheduler:    scheduler,
		broker:       broker,
		idempotency:  idempotencyStore,
		ingestion:    moduleConf.Ingestion,
		cleanupFuncs: cleanupFuncs,
	}, nil
}
