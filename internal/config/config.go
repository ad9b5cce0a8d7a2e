package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/sss-network/sss-indexer/common"
	stablecoinconfig "github.com/sss-network/sss-indexer/modules/stablecoin/config"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
	"github.com/sss-network/sss-indexer/pkg/middleware/requestcontext"
	"github.com/sss-network/sss-indexer/pkg/middleware/requestlogger"
)

var (
	isInit bool
	mu     sync.Mutex
	config = &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		HTTPServer: HTTPServerConfig{
			Port: 8080,
		},
		EnableModules: []string{common.ModuleStablecoin.String()},
		Modules: Modules{
			Stablecoin: stablecoinconfig.Config{
				Datasource:  "solana-rpc",
				Database:    "postgres",
				APIHandlers: []string{"http"},
				RPC: stablecoinconfig.RPCConfig{
					WSURL:      "ws://127.0.0.1:8900",
					Commitment: common.CommitmentConfirmed,
				},
				Webhook: stablecoinconfig.WebhookConfig{
					MaxAttempts:         5,
					RetryBase:           30 * time.Second,
					MaxBackoff:          time.Hour,
					RequestTimeout:      10 * time.Second,
					DispatchInterval:    5 * time.Second,
					BatchLimit:          50,
					DispatchConcurrency: 8,
					ClaimLease:          time.Minute,
				},
				Idempotency: stablecoinconfig.IdempotencyConfig{
					Store:       "memory",
					TTL:         24 * time.Hour,
					WaitTimeout: 5 * time.Second,
				},
				Executor: stablecoinconfig.ExecutorConfig{
					Type: "remote",
					Remote: stablecoinconfig.RemoteExecutorConfig{
						Timeout: 30 * time.Second,
					},
				},
				Live: stablecoinconfig.LiveConfig{
					Keepalive:  15 * time.Second,
					BufferSize: 64,
				},
			},
		},
		Archive: ArchiveConfig{
			Prefix: "audit",
		},
	}
)

type Config struct {
	Logger        logger.Config    `mapstructure:"logger"`
	HTTPServer    HTTPServerConfig `mapstructure:"http_server"`
	EnableModules []string         `mapstructure:"enable_modules"`
	APIOnly       bool             `mapstructure:"api_only"`
	Modules       Modules          `mapstructure:"modules"`
	Archive       ArchiveConfig    `mapstructure:"archive"`
}

type Modules struct {
	Stablecoin stablecoinconfig.Config `mapstructure:"stablecoin"`
}

type HTTPServerConfig struct {
	Port      int                               `mapstructure:"port"`
	Logger    requestlogger.Config              `mapstructure:"logger"`
	RequestIP requestcontext.WithClientIPConfig `mapstructure:"requestip"`
}

// ArchiveConfig is the S3 destination of audit trail archives.
type ArchiveConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"` // optional, for S3 compatible storages
}

// Parse parse the configuration from environment variables
func Parse(configFile ...string) Config {
	mu.Lock()
	defer mu.Unlock()
	return parse(configFile...)
}

// Load returns the loaded configuration
func Load() Config {
	mu.Lock()
	defer mu.Unlock()
	if isInit {
		return *config
	}
	return parse()
}

// BindPFlag binds a specific key to a pflag (as used by cobra).
// Example (where serverCmd is a Cobra instance):
//
//	serverCmd.Flags().Int("port", 1138, "Port to run Application server on")
//	Viper.BindPFlag("port", serverCmd.Flags().Lookup("port"))
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Something went wrong, failed to bind flag for config", slog.String("package", "config"), slogx.Error(err))
	}
}

// SetDefault sets the default value for this key.
// SetDefault is case-insensitive for a key.
// Default only used when no value is provided by the user via flag, config or ENV.
func SetDefault(key string, value any) { viper.SetDefault(key, value) }

func parse(configFile ...string) Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))

	if len(configFile) > 0 && configFile[0] != "" {
		viper.SetConfigFile(configFile[0])
	} else {
		viper.AddConfigPath("./")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var errNotfound viper.ConfigFileNotFoundError
		if errors.As(err, &errNotfound) {
			logger.WarnContext(ctx, "Config file not found, use default config value", slogx.Error(err))
		} else {
			logger.PanicContext(ctx, "Invalid config file", slogx.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		logger.PanicContext(ctx, "Something went wrong, failed to unmarshal config", slogx.Error(err))
	}

	isInit = true
	return *config
}
