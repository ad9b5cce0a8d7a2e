package postgres

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/stretchr/testify/assert"
)

func TestConnString(t *testing.T) {
	t.Run("url_wins", func(t *testing.T) {
		conf := Config{URL: "postgres://u:p@db:5432/sss", Host: "ignored"}
		assert.Equal(t, "postgres://u:p@db:5432/sss", conf.ConnString())
	})
	t.Run("defaults", func(t *testing.T) {
		assert.Equal(t, "host=127.0.0.1 port=5432 dbname=postgres sslmode=prefer", Config{}.ConnString())
	})
	t.Run("quotes_values", func(t *testing.T) {
		conf := Config{Host: "db", User: "sss", Password: `it's secret`}
		assert.Equal(t, `host=db port=5432 dbname=postgres sslmode=prefer user=sss password='it\'s secret'`, conf.ConnString())
	})
}

func TestWrapError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, WrapError(nil, "query"))
	})
	t.Run("query_error_is_not_unavailable", func(t *testing.T) {
		err := WrapError(&pgconn.PgError{Code: "23505"}, "insert")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, errs.Unavailable))
	})
	t.Run("connection_error_is_unavailable", func(t *testing.T) {
		err := WrapError(&pgconn.PgError{Code: "08006"}, "insert")
		assert.True(t, errors.Is(err, errs.Unavailable))
	})
	t.Run("shutdown_is_unavailable", func(t *testing.T) {
		err := WrapError(&pgconn.PgError{Code: "57P01"}, "insert")
		assert.True(t, errors.Is(err, errs.Unavailable))
	})
	t.Run("deadline_is_unavailable", func(t *testing.T) {
		err := WrapError(context.DeadlineExceeded, "insert")
		assert.True(t, errors.Is(err, errs.Unavailable))
	})
}
