package datasources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// fakeRPCNode accepts one logsSubscribe request, then writes notifications and closes the connection.
func fakeRPCNode(t *testing.T, notifications []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		var req map[string]any
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}
		assert.Equal(t, "logsSubscribe", req["method"])
		params, _ := req["params"].([]any)
		if assert.Len(t, params, 2) {
			assert.Equal(t, map[string]any{"mentions": []any{"Prog1111"}}, params[0])
			assert.Equal(t, map[string]any{"commitment": "finalized"}, params[1])
		}
		_ = wsjson.Write(ctx, conn, map[string]any{"jsonrpc": "2.0", "id": req["id"], "result": 42})

		for _, n := range notifications {
			if err := wsjson.Write(ctx, conn, n); err != nil {
				return
			}
		}
		_ = conn.Close(websocket.StatusGoingAway, "bye")
	}))
}

func notification(signature string, slot int64, err any, logs ...string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"method":  "logsNotification",
		"params": map[string]any{
			"subscription": 42,
			"result": map[string]any{
				"context": map[string]any{"slot": slot},
				"value":   map[string]any{"signature": signature, "err": err, "logs": logs},
			},
		},
	}
}

func TestSolanaLogs(t *testing.T) {
	server := fakeRPCNode(t, []map[string]any{
		notification("sig-ok", 10, nil, "Program Prog1111 invoke [1]", "Program Prog1111 success"),
		notification("sig-failed", 11, map[string]any{"InstructionError": []any{0, "Custom"}}, "Program Prog1111 failed"),
	})
	defer server.Close()

	ds := NewSolanaLogs("ws"+strings.TrimPrefix(server.URL, "http"), "Prog1111", common.CommitmentFinalized)
	assert.Equal(t, "solana_logs", ds.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := make(chan types.LogBatch)
	sub, err := ds.Subscribe(ctx, ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	var batches []types.LogBatch
	for len(batches) < 2 {
		select {
		case batch := <-ch:
			batches = append(batches, batch)
		case <-ctx.Done():
			t.Fatal("timeout waiting for batches")
		}
	}
	assert.Equal(t, "sig-ok", batches[0].Signature)
	assert.Equal(t, int64(10), batches[0].Slot)
	assert.False(t, batches[0].Failed)
	assert.Len(t, batches[0].Logs, 2)
	assert.Equal(t, "sig-failed", batches[1].Signature)
	assert.True(t, batches[1].Failed)

	select {
	case err := <-sub.Err():
		assert.True(t, errors.Is(err, errs.Unavailable))
	case <-ctx.Done():
		t.Fatal("connection loss was not surfaced")
	}
}

func TestSolanaLogsUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ds := NewSolanaLogs("ws://127.0.0.1:1", "Prog1111", "bogus")
	_, err := ds.Subscribe(ctx, make(chan types.LogBatch))
	assert.True(t, errors.Is(err, errs.Unavailable))
}
