package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericFromDecimal(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		result, err := numericFromDecimal(decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.True(t, result.Valid)

		value, err := result.Int64Value()
		assert.NoError(t, err)
		assert.Equal(t, int64(1000), value.Int64)
	})
	t.Run("large", func(t *testing.T) {
		amount := decimal.RequireFromString("340282366920938463463374607431768211455")

		result, err := numericFromDecimal(amount)
		require.NoError(t, err)

		back, err := decimalFromNumeric(result)
		assert.NoError(t, err)
		assert.True(t, amount.Equal(back))
	})
}

func TestDecimalFromNumeric(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		numeric := pgtype.Numeric{}
		require.NoError(t, numeric.ScanInt64(pgtype.Int8{Int64: 42, Valid: true}))

		result, err := decimalFromNumeric(numeric)
		assert.NoError(t, err)
		assert.True(t, decimal.NewFromInt(42).Equal(result))
	})
	t.Run("null", func(t *testing.T) {
		result, err := decimalFromNumeric(pgtype.Numeric{})
		assert.NoError(t, err)
		assert.True(t, result.IsZero())
	})
}

func TestTimestamptz(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.False(t, nullTimestamptz(nil).Valid)
		assert.Nil(t, timePtrFromTimestamptz(pgtype.Timestamptz{}))
	})
	t.Run("utc", func(t *testing.T) {
		local := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("UTC+7", 7*60*60))
		result := timePtrFromTimestamptz(nullTimestamptz(&local))
		if assert.NotNil(t, result) {
			assert.True(t, local.Equal(*result))
			assert.Equal(t, time.UTC, result.Location())
		}
	})
}

func TestNullText(t *testing.T) {
	assert.False(t, nullText("").Valid)
	assert.Equal(t, pgtype.Text{String: "TokensMinted", Valid: true}, nullText("TokensMinted"))
}
