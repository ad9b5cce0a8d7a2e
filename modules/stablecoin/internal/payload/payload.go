package payload

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/gaze-network/uint128"
	"github.com/shopspring/decimal"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

const (
	SubjectField   = "config"
	TimestampField = "timestamp"
)

// Normalize converts decoded event data into a JSON-friendly payload.
// Booleans, strings and plain numbers pass through, big integers and public keys become
// their canonical strings, nested maps and slices are normalized element by element and
// anything else falls back to its string representation.
func Normalize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = Value(v)
	}
	return out
}

// Value normalizes a single payload value.
func Value(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32,
		float32, float64:
		return x
	case uint64:
		// beyond 2^53 a JSON number loses precision
		return strconv.FormatUint(x, 10)
	case uint128.Uint128:
		return x.String()
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	case big.Int:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case json.Number:
		return x.String()
	case []byte:
		return fmt.Sprintf("%x", x)
	case fmt.Stringer:
		return x.String()
	case map[string]any:
		return Normalize(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Value(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Value(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = Value(iter.Value().Interface())
			}
			return out
		}
	}
	return fmt.Sprint(v)
}

// Subject returns the payload's `config` address, or entity.UnknownSubject when there is none.
func Subject(payload map[string]any) string {
	if s, ok := payload[SubjectField].(string); ok && s != "" {
		return s
	}
	return entity.UnknownSubject
}

// Timestamp returns the payload's `timestamp` (whole seconds since epoch) when it is numeric,
// otherwise fallback.
func Timestamp(payload map[string]any, fallback time.Time) time.Time {
	seconds, ok := wholeSeconds(payload[TimestampField])
	if !ok {
		return fallback
	}
	return time.Unix(seconds, 0).UTC()
}

func wholeSeconds(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}
