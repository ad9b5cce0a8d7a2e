// Package postgres opens pgx connection pools and classifies their errors.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	pgxslog "github.com/mcosta74/pgx-slog"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/pkg/logger"
)

const (
	DefaultMaxConns       = 16
	DefaultConnectTimeout = 10 * time.Second
)

type Config struct {
	// URL is a postgres:// connection url. When set, the discrete fields below are ignored.
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`     // 127.0.0.1
	Port     string `mapstructure:"port"`     // 5432
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`  // postgres
	SSLMode  string `mapstructure:"ssl_mode"` // prefer

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`

	// Debug traces every query.
	Debug bool `mapstructure:"debug"`
}

// NewPool connects to the database and checks it answers. The caller owns the pool and must Close it.
func NewPool(ctx context.Context, conf Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(conf.ConnString())
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid postgres config"), errs.InvalidArgument)
	}
	poolConfig.MaxConns = utils.Default(conf.MaxConns, DefaultMaxConns)
	poolConfig.MinConns = conf.MinConns
	if conf.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = conf.MaxConnLifetime
	}
	poolConfig.ConnConfig.ConnectTimeout = utils.Default(conf.ConnectTimeout, DefaultConnectTimeout)
	poolConfig.ConnConfig.Tracer = newTracer(conf.Debug)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Mark(errors.Wrap(err, "failed to connect to the database"), errs.Unavailable)
	}
	return pool, nil
}

// ConnString returns URL, or a keyword/value connection string built from the discrete fields.
func (conf Config) ConnString() string {
	if conf.URL != "" {
		return conf.URL
	}
	pairs := [][2]string{
		{"host", utils.Default(conf.Host, "127.0.0.1")},
		{"port", utils.Default(conf.Port, "5432")},
		{"dbname", utils.Default(conf.DBName, "postgres")},
		{"sslmode", utils.Default(conf.SSLMode, "prefer")},
		{"user", conf.User},
		{"password", conf.Password},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p[1] != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", p[0], quoteValue(p[1])))
		}
	}
	return strings.Join(parts, " ")
}

// quoteValue quotes a keyword/value connection string value when it holds spaces or quotes.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func newTracer(debug bool) *tracelog.TraceLog {
	level := tracelog.LogLevelError
	if debug {
		level = tracelog.LogLevelTrace
	}
	return &tracelog.TraceLog{
		Logger:   pgxslog.NewLogger(logger.With("package", "postgres")),
		LogLevel: level,
	}
}
