package datasources

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/sss-network/sss-indexer/internal/subscription"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// solanaLogsReadLimit bounds one notification frame. Program logs are capped far below this by the runtime.
const solanaLogsReadLimit = 4 << 20

// Make sure to implement the Datasource interface
var _ Datasource[types.LogBatch] = (*SolanaLogs)(nil)

// SolanaLogs is a Datasource that streams transaction logs mentioning a program
// through the `logsSubscribe` websocket RPC method.
type SolanaLogs struct {
	url        string
	programID  string
	commitment common.Commitment
}

func NewSolanaLogs(url string, programID string, commitment common.Commitment) *SolanaLogs {
	if !commitment.IsSupported() {
		commitment = common.CommitmentConfirmed
	}
	return &SolanaLogs{
		url:        url,
		programID:  programID,
		commitment: commitment,
	}
}

func (s SolanaLogs) Name() string {
	return "solana_logs"
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcMessage struct {
	ID     *int            `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
	Params *struct {
		Result struct {
			Context struct {
				Slot int64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
				Logs      []string        `json:"logs"`
			} `json:"value"`
		} `json:"result"`
		Subscription int64 `json:"subscription"`
	} `json:"params,omitempty"`
}

// Subscribe dials the websocket endpoint and subscribes to the program's logs.
// It returns once the node confirmed the subscription.
func (s *SolanaLogs) Subscribe(ctx context.Context, ch chan<- types.LogBatch) (*subscription.ClientSubscription[types.LogBatch], error) {
	ctx = logger.WithContext(ctx,
		slogx.String("package", "datasources"),
		slogx.String("datasource", s.Name()),
	)

	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "can't connect to %s", s.url), errs.Unavailable)
	}
	conn.SetReadLimit(solanaLogsReadLimit)

	subscriptionID, err := s.subscribe(ctx, conn)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return nil, errors.WithStack(err)
	}
	logger.InfoContext(ctx, "Subscribed to program logs",
		slogx.String("program_id", s.programID),
		slogx.Stringer("commitment", s.commitment),
		slog.Int64("subscription", subscriptionID),
	)

	sub := subscription.NewSubscription(ch)
	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		// unblock the reader when the client unsubscribes
		defer cancel()
		select {
		case <-sub.Done():
		case <-ctx.Done():
			sub.Unsubscribe()
		}
	}()
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			var msg rpcMessage
			if err := wsjson.Read(readCtx, conn, &msg); err != nil {
				if readCtx.Err() != nil {
					return
				}
				if err := sub.SendError(readCtx, errors.Mark(errors.Wrap(err, "log subscription lost"), errs.Unavailable)); err != nil {
					logger.WarnContext(ctx, "Failed to send datasource error", slogx.Error(err))
				}
				return
			}
			if msg.Method != "logsNotification" || msg.Params == nil {
				continue
			}
			value := msg.Params.Result.Value
			batch := types.LogBatch{
				Signature:  value.Signature,
				Slot:       msg.Params.Result.Context.Slot,
				Failed:     len(value.Err) > 0 && string(value.Err) != "null",
				Logs:       value.Logs,
				ReceivedAt: time.Now(),
			}
			if err := sub.Send(readCtx, batch); err != nil {
				return
			}
		}
	}()

	return sub.Client(), nil
}

func (s *SolanaLogs) subscribe(ctx context.Context, conn *websocket.Conn) (int64, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []any{
			map[string][]string{"mentions": {s.programID}},
			map[string]string{"commitment": s.commitment.String()},
		},
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		return 0, errors.Mark(errors.Wrap(err, "can't send logsSubscribe request"), errs.Unavailable)
	}

	for {
		var msg rpcMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return 0, errors.Mark(errors.Wrap(err, "can't read logsSubscribe response"), errs.Unavailable)
		}
		if msg.ID == nil || *msg.ID != req.ID {
			continue
		}
		if msg.Error != nil {
			return 0, errors.Wrapf(errs.UpstreamRejected, "logsSubscribe rejected: %s (code %d)", msg.Error.Message, msg.Error.Code)
		}
		var id int64
		if err := json.Unmarshal(msg.Result, &id); err != nil {
			return 0, errors.Wrap(err, "invalid logsSubscribe result")
		}
		return id, nil
	}
}
