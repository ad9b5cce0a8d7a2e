package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/executor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/idempotency"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/anchor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/metrics"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

const MaxMemoLength = 128

var (
	// u64::MAX, the largest amount the program accepts
	maxAmount = decimal.RequireFromString("18446744073709551615")

	baseUnitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

const (
	conflictRetryLater      = "a request with this idempotency key is still in progress, retry later"
	conflictCompleted       = "a request with this idempotency key has already been completed"
	conflictPayloadMismatch = "idempotency key reused with a different payload"

	warningUnrecorded = "the command was executed but its operation record could not be saved"
)

// CommandInput is a command as submitted by a client. Amount and Quota are base-unit integers in decimal notation.
type CommandInput struct {
	Kind   string
	Target string
	To     string
	Amount string
	Memo   string
	Reason string
	Roles  *int
	Quota  string
}

// Command is a validated command. Fields the kind does not take are cleared,
// so two requests for the same command hash the same.
type Command struct {
	Kind   entity.OperationKind `json:"kind"`
	Params executor.Params      `json:"params"`
}

// CommandResponse is returned to the client that submitted a command, and replayed on conflicts.
type CommandResponse struct {
	ID        uuid.UUID              `json:"id"`
	Kind      entity.OperationKind   `json:"kind"`
	Status    entity.OperationStatus `json:"status"`
	Signature string                 `json:"signature"`
	CreatedAt time.Time              `json:"createdAt"`

	// Warning is set when the command went through but the gateway could not fully record it.
	Warning string `json:"warning,omitempty"`
}

func (input CommandInput) Validate() (Command, error) {
	var errList []error

	kind := entity.OperationKind(strings.TrimSpace(input.Kind))
	if !kind.IsValid() {
		return Command{}, errs.NewPublicError("'kind' must be one of " + strings.Join(kindNames(), ", "))
	}
	cmd := Command{Kind: kind}

	if kind.HasTarget() {
		target, err := anchor.ParsePublicKey(strings.TrimSpace(input.Target))
		if err != nil {
			errList = append(errList, errors.New("'target' must be a base58 encoded 32-byte address"))
		} else {
			cmd.Params.Target = target.String()
		}
	}

	if kind.HasAmount() {
		amount, err := parseAmount("amount", input.Amount)
		if err != nil {
			errList = append(errList, err)
		} else {
			cmd.Params.Amount = amount
		}
	}

	if utf8.RuneCountInString(input.Memo) > MaxMemoLength {
		errList = append(errList, errors.Newf("'memo' must be at most %d characters", MaxMemoLength))
	} else {
		cmd.Params.Memo = input.Memo
	}

	switch kind {
	case entity.OperationBlacklistAdd:
		if strings.TrimSpace(input.Reason) == "" {
			errList = append(errList, errors.New("'reason' is required for blacklist_add"))
		}
		cmd.Params.Reason = input.Reason
	case entity.OperationSeize:
		to, err := anchor.ParsePublicKey(strings.TrimSpace(input.To))
		if err != nil {
			errList = append(errList, errors.New("'to' must be a base58 encoded 32-byte address"))
		} else {
			cmd.Params.To = to.String()
		}
	case entity.OperationUpdateRoles:
		switch {
		case input.Roles == nil:
			errList = append(errList, errors.New("'roles' is required for update_roles"))
		case *input.Roles < 0 || *input.Roles > int(entity.ValidRoleMask):
			errList = append(errList, errors.Newf("'roles' must be a role bitmask between 0 and %d", entity.ValidRoleMask))
		default:
			roles := uint8(*input.Roles)
			cmd.Params.Roles = &roles
			// a quota only applies to minters
			if strings.TrimSpace(input.Quota) != "" {
				if roles&entity.RoleMinter == 0 {
					errList = append(errList, errors.New("'quota' is only accepted when the minter role is granted"))
				} else if quota, err := parseAmount("quota", input.Quota); err != nil {
					errList = append(errList, err)
				} else {
					cmd.Params.Quota = &quota
				}
			}
		}
	case entity.OperationUpdateMinter:
		quota, err := parseAmount("quota", input.Quota)
		if err != nil {
			errList = append(errList, err)
		} else {
			cmd.Params.Quota = &quota
		}
	}

	if err := errors.Join(errList...); err != nil {
		return Command{}, errs.WithPublicMessage(errors.Mark(err, errs.InvalidArgument), "validation error")
	}
	return cmd, nil
}

// parseAmount parses a base-unit token amount given in field.
func parseAmount(field string, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, errors.Newf("'%s' is required", field)
	}
	if strings.HasPrefix(s, "-") {
		return decimal.Decimal{}, errors.Newf("'%s' must not be negative", field)
	}
	// digits only: fractions and exponents are rejected even when they denote an integer
	if !baseUnitsPattern.MatchString(s) {
		return decimal.Decimal{}, errors.Newf("'%s' must be an integer number of base units, decimals are not accepted", field)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Newf("'%s' must be an integer number of base units", field)
	}
	if amount.GreaterThan(maxAmount) {
		return decimal.Decimal{}, errors.Newf("'%s' exceeds the maximum token amount", field)
	}
	return amount, nil
}

func kindNames() []string {
	names := make([]string, 0, len(entity.OperationKinds))
	for _, kind := range entity.OperationKinds {
		names = append(names, kind.String())
	}
	return names
}

// Hash identifies the command for idempotency checks.
func (c Command) Hash() string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SubmitCommand executes cmd at most once per idempotency key and returns the response to send back.
// Replays and concurrent duplicates fail with *errs.ConflictError, carrying the stored response once the key is completed.
func (u *Usecase) SubmitCommand(ctx context.Context, key string, cmd Command) (json.RawMessage, error) {
	ctx = logger.WithContext(ctx,
		slogx.String("package", "usecase"),
		slogx.Stringer("kind", cmd.Kind),
		slogx.String("idempotency_key", key),
	)
	requestHash := cmd.Hash()

	if err := u.lock(ctx, key, requestHash); err != nil {
		metrics.CommandsTotal.WithLabelValues(cmd.Kind.String(), "conflict").Inc()
		return nil, errors.WithStack(err)
	}

	// the key is held from here on, a submitted command is recorded even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	signature, err := u.executor.Submit(ctx, cmd.Kind, cmd.Params)
	if err != nil {
		if clearErr := u.idempotency.Clear(ctx, key); clearErr != nil {
			logger.ErrorContext(ctx, "failed to release idempotency key", clearErr)
		}
		if errors.Is(err, errs.UpstreamRejected) {
			metrics.CommandsTotal.WithLabelValues(cmd.Kind.String(), "rejected").Inc()
			u.recordRejected(ctx, key, cmd, err)
			return nil, errs.WithPublicMessage(err, "")
		}
		metrics.CommandsTotal.WithLabelValues(cmd.Kind.String(), "error").Inc()
		return nil, errors.Wrap(err, "failed to submit command")
	}

	operation := u.newOperation(key, cmd)
	operation.Status = entity.OperationStatusCompleted
	operation.Signature = signature
	var warning string
	if err := u.stablecoinDg.CreateOperation(ctx, operation); err != nil {
		// the command went through, the key must still be completed so it never runs twice
		metrics.UnrecordedOperationsTotal.WithLabelValues(cmd.Kind.String()).Inc()
		logger.ErrorContext(ctx, "failed to record completed operation", err, slogx.String("signature", signature))
		warning = warningUnrecorded
	}

	response, err := json.Marshal(CommandResponse{
		ID:        operation.ID,
		Kind:      operation.Kind,
		Status:    operation.Status,
		Signature: signature,
		CreatedAt: operation.CreatedAt,
		Warning:   warning,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal command response")
	}
	if err := u.idempotency.Complete(ctx, key, response); err != nil {
		logger.ErrorContext(ctx, "failed to complete idempotency key", err, slogx.String("signature", signature))
	}

	metrics.CommandsTotal.WithLabelValues(cmd.Kind.String(), "completed").Inc()
	logger.InfoContext(ctx, "command completed", slogx.String("signature", signature))
	return response, nil
}

// lock takes key, waiting up to the wait timeout while another request is processing it.
func (u *Usecase) lock(ctx context.Context, key string, requestHash string) error {
	deadline := time.NewTimer(u.waitTimeout)
	defer deadline.Stop()

	for {
		result, err := u.idempotency.Lock(ctx, key, requestHash)
		if err != nil {
			return errors.Wrap(err, "failed to lock idempotency key")
		}
		if result.Acquired {
			return nil
		}

		existing := result.Existing
		if existing.RequestHash != requestHash {
			return errs.NewConflictError(conflictPayloadMismatch, nil)
		}
		if existing.Status == idempotency.StatusCompleted {
			return errs.NewConflictError(conflictCompleted, existing.Response)
		}

		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-deadline.C:
			return errs.NewConflictError(conflictRetryLater, nil)
		case <-time.After(u.pollInterval):
		}
	}
}

func (u *Usecase) recordRejected(ctx context.Context, key string, cmd Command, cause error) {
	operation := u.newOperation(key, cmd)
	operation.Status = entity.OperationStatusFailed
	var rejected *executor.CommandRejectedError
	if errors.As(cause, &rejected) {
		operation.Error = rejected.Reason
	} else {
		operation.Error = cause.Error()
	}
	if err := u.stablecoinDg.CreateOperation(ctx, operation); err != nil {
		logger.ErrorContext(ctx, "failed to record rejected operation", err)
	}
}

func (u *Usecase) newOperation(key string, cmd Command) *entity.Operation {
	return &entity.Operation{
		ID:             uuid.New(),
		Kind:           cmd.Kind,
		Target:         cmd.Params.Target,
		To:             cmd.Params.To,
		Amount:         cmd.Params.Amount,
		Memo:           cmd.Params.Memo,
		Reason:         cmd.Params.Reason,
		Roles:          cmd.Params.Roles,
		Quota:          cmd.Params.Quota,
		IdempotencyKey: key,
		Status:         entity.OperationStatusPending,
		CreatedAt:      u.Now().UTC(),
	}
}
