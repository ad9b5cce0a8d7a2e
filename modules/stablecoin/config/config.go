package config

import (
	"time"

	"github.com/sss-network/sss-indexer/common"
	"github.com/sss-network/sss-indexer/internal/postgres"
)

type Config struct {
	ProgramID   string            `mapstructure:"program_id"`   // Stablecoin program id the log source is filtered to.
	Datasource  string            `mapstructure:"datasource"`   // Log source e.g. `solana-rpc` | `simulated`
	Database    string            `mapstructure:"database"`     // Store for operations/events/webhooks/deliveries e.g. `postgres` | `memory`
	APIHandlers []string          `mapstructure:"api_handlers"` // e.g. `http`
	Postgres    postgres.Config   `mapstructure:"postgres"`
	RPC         RPCConfig         `mapstructure:"rpc"`
	Ingestion   IngestionConfig   `mapstructure:"ingestion"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Executor    ExecutorConfig    `mapstructure:"executor"`
	Live        LiveConfig        `mapstructure:"live"`
}

type RPCConfig struct {
	WSURL      string            `mapstructure:"ws_url"`
	Commitment common.Commitment `mapstructure:"commitment"`
}

type IngestionConfig struct {
	Disabled bool `mapstructure:"disabled"`

	// RestartDelay restarts ingestion after the log subscription is lost. Zero stops the process instead.
	RestartDelay time.Duration `mapstructure:"restart_delay"`
}

type WebhookConfig struct {
	MaxAttempts         int           `mapstructure:"max_attempts"`
	RetryBase           time.Duration `mapstructure:"retry_base"`
	MaxBackoff          time.Duration `mapstructure:"max_backoff"` // zero disables the cap
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	DispatchInterval    time.Duration `mapstructure:"dispatch_interval"`
	BatchLimit          int           `mapstructure:"batch_limit"`
	DispatchConcurrency int           `mapstructure:"dispatch_concurrency"`
	ClaimLease          time.Duration `mapstructure:"claim_lease"`
}

type IdempotencyConfig struct {
	Store       string        `mapstructure:"store"` // `memory` | `postgres`
	TTL         time.Duration `mapstructure:"ttl"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"` // how long a duplicate waits for the in-flight request
}

type ExecutorConfig struct {
	Type   string               `mapstructure:"type"` // `remote` | `simulated`
	Remote RemoteExecutorConfig `mapstructure:"remote"`
}

type RemoteExecutorConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LiveConfig struct {
	Keepalive  time.Duration `mapstructure:"keepalive"`
	BufferSize int           `mapstructure:"buffer_size"`
}
