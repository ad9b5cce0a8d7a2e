// Package executor submits stablecoin commands to the ledger program.
package executor

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

type Params struct {
	Target string           `json:"target,omitempty"`
	To     string           `json:"to,omitempty"`
	Amount decimal.Decimal  `json:"amount"`
	Memo   string           `json:"memo,omitempty"`
	Reason string           `json:"reason,omitempty"`
	Roles  *uint8           `json:"roles,omitempty"`
	Quota  *decimal.Decimal `json:"quota,omitempty"`
}

type Executor interface {
	// Submit executes the command once and returns its transaction signature.
	// A refusal by the program is returned as a *CommandRejectedError.
	Submit(ctx context.Context, kind entity.OperationKind, params Params) (string, error)
}

// CommandRejectedError is returned when the ledger program refused a command. It matches errs.UpstreamRejected.
type CommandRejectedError struct {
	Reason string
}

func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("command rejected: %s", e.Reason)
}

func (e *CommandRejectedError) Unwrap() error {
	return errs.UpstreamRejected
}

func reject(reason string) error {
	return &CommandRejectedError{Reason: reason}
}
