package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useHandler(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	previous, previousLevel := logger, lvl.Level()
	t.Cleanup(func() {
		logger = previous
		lvl.Set(previousLevel)
	})
	var buf bytes.Buffer
	logger = slog.New(newHandler(&buf, cfg))
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	return record
}

func TestJSONOutput(t *testing.T) {
	t.Run("context_attrs_and_error", func(t *testing.T) {
		buf := useHandler(t, Config{Output: "json"})
		ctx := WithContext(context.Background(), slog.String("module", "stablecoin"))

		ErrorContext(ctx, "Failed to deliver", errors.New("boom"), slog.Duration("took", 1500*time.Millisecond))

		record := decodeLine(t, buf)
		assert.Equal(t, "ERROR", record["level"])
		assert.Equal(t, "Failed to deliver", record["msg"])
		assert.Equal(t, "stablecoin", record["module"])
		assert.Equal(t, "boom", record[ErrorKey])
		assert.EqualValues(t, 1500, record["took"])
		assert.NotContains(t, record, ErrorVerboseKey)
	})
	t.Run("debug_is_filtered_at_info", func(t *testing.T) {
		buf := useHandler(t, Config{Output: "json"})
		DebugContext(context.Background(), "hidden")
		assert.Zero(t, buf.Len())
	})
	t.Run("debug_adds_stack_trace", func(t *testing.T) {
		buf := useHandler(t, Config{Output: "json", Debug: true})
		ErrorContext(context.Background(), "Failed", errors.New("boom"))

		record := decodeLine(t, buf)
		assert.Contains(t, record[ErrorVerboseKey], "boom")
		assert.NotEmpty(t, record[ErrorStackTraceKey])
		assert.Contains(t, record, slog.SourceKey)
	})
}

func TestTextOutput(t *testing.T) {
	buf := useHandler(t, Config{})
	assert.Panics(t, func() { PanicContext(context.Background(), "unrecoverable") })
	line := buf.String()
	assert.True(t, strings.Contains(line, "level=PANIC"), line)
	assert.Contains(t, line, "unrecoverable")
}
