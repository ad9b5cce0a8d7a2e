package executor

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/core/datasources"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/sss-network/sss-indexer/internal/subscription"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/anchor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
)

// Reasons returned by the ledger program.
const (
	ReasonSystemPaused         = "System is paused"
	ReasonAccountFrozen        = "Account is frozen and cannot perform this action"
	ReasonAlreadyBlacklisted   = "Address is already blacklisted"
	ReasonNotBlacklisted       = "Address is not blacklisted"
	ReasonAccountNotFrozen     = "Account must be frozen before seizure"
	ReasonTargetNotBlacklisted = "Target must be blacklisted before seizure"
	ReasonInsufficientBalance  = "Insufficient token balance"
	ReasonOverflow             = "Arithmetic overflow"
	ReasonReasonTooLong        = "Reason exceeds maximum length of 128 characters"
	ReasonInvalidRoles         = "Invalid role bitmask"
	ReasonSelfTransfer         = "Cannot transfer authority to self"
)

const maxReasonLength = 128

var (
	_ Executor                               = (*Simulated)(nil)
	_ datasources.Datasource[types.LogBatch] = (*Simulated)(nil)
)

// Simulated executes commands against an in-process ledger that enforces the program's rules,
// and emits the resulting program logs to its subscribers, so the whole pipeline runs without a cluster.
// It must be closed at shutdown.
type Simulated struct {
	programID string
	config    anchor.PublicKey
	mint      anchor.PublicKey
	authority anchor.PublicKey

	mu          sync.Mutex
	closed      bool
	paused      bool
	frozen      map[string]bool
	blacklisted map[string]bool
	roles       map[string]uint8
	quotas      map[string]uint64
	balances    map[string]uint64
	supply      uint64
	slot        int64
	sequence    uint64
	subscribers []*subscription.Subscription[types.LogBatch]

	// Now is the clock stamped on emitted events.
	Now func() time.Time
}

func NewSimulated(programID string) *Simulated {
	authority := derive(programID, "authority")
	s := &Simulated{
		programID:   programID,
		config:      derive(programID, "stablecoin"),
		mint:        derive(programID, "mint"),
		authority:   authority,
		frozen:      make(map[string]bool),
		blacklisted: make(map[string]bool),
		roles:       make(map[string]uint8),
		quotas:      make(map[string]uint64),
		balances:    make(map[string]uint64),
		Now:         time.Now,
	}
	// the initial authority holds every role
	s.roles[authority.String()] = entity.ValidRoleMask
	return s
}

func derive(programID string, seed string) anchor.PublicKey {
	return anchor.PublicKey(sha256.Sum256([]byte(programID + ":" + seed)))
}

func (s *Simulated) Name() string {
	return "simulated"
}

// Config returns the address of the simulated stablecoin config account, the subject of every emitted event.
func (s *Simulated) Config() string {
	return s.config.String()
}

func (s *Simulated) Subscribe(ctx context.Context, ch chan<- types.LogBatch) (*subscription.ClientSubscription[types.LogBatch], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.Wrap(errs.Unavailable, "simulated ledger is closed")
	}
	sub := subscription.NewSubscription(ch)
	s.subscribers = append(lo.Filter(s.subscribers, func(sub *subscription.Subscription[types.LogBatch], _ int) bool {
		return !sub.IsClosed()
	}), sub)
	return sub.Client(), nil
}

// Authority returns the current master authority of the simulated stablecoin.
func (s *Simulated) Authority() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authority.String()
}

// Roles returns the role bitmask held by account and its minter quota, if one is set.
func (s *Simulated) Roles(account string) (uint8, *uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quota, ok := s.quotas[account]
	if !ok {
		return s.roles[account], nil
	}
	return s.roles[account], &quota
}

// Balance returns the simulated token balance of account.
func (s *Simulated) Balance(account string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[account]
}

func (s *Simulated) Submit(ctx context.Context, kind entity.OperationKind, params Params) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", errors.Wrap(errs.Unavailable, "simulated ledger is closed")
	}
	name, data, err := s.apply(kind, params)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.sequence++
	s.slot++
	signature := s.signature(s.sequence)
	slot := s.slot
	subscribers := append([]*subscription.Subscription[types.LogBatch](nil), s.subscribers...)
	s.mu.Unlock()

	line, err := anchor.EncodeLogLine(name, data)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode simulated event")
	}
	batch := types.LogBatch{
		Signature: signature,
		Slot:      slot,
		Logs: []string{
			fmt.Sprintf("Program %s invoke [1]", s.programID),
			fmt.Sprintf("Program log: Instruction: %s", kind),
			line,
			fmt.Sprintf("Program %s success", s.programID),
		},
		ReceivedAt: s.Now(),
	}
	for _, sub := range subscribers {
		if sub.IsClosed() {
			continue
		}
		if err := sub.Send(ctx, batch); err != nil && !sub.IsClosed() {
			return "", errors.Wrap(err, "failed to emit simulated logs")
		}
	}
	return signature, nil
}

func (s *Simulated) signature(sequence uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sequence)
	sum := sha512.Sum512(append(s.config[:], buf[:]...))
	return base58.Encode(sum[:])
}

// apply mutates the ledger and returns the event the program emits. It must be called with mu held.
func (s *Simulated) apply(kind entity.OperationKind, params Params) (string, map[string]any, error) {
	now := s.Now().Unix()
	base := func(extra map[string]any) map[string]any {
		extra["config"] = s.config
		extra["timestamp"] = now
		return extra
	}

	var target anchor.PublicKey
	if kind.HasTarget() {
		pk, err := anchor.ParsePublicKey(params.Target)
		if err != nil {
			return "", nil, errors.Wrap(err, "invalid target")
		}
		target = pk
	}
	key := target.String()

	switch kind {
	case entity.OperationMint:
		amount, err := toU64(params)
		if err != nil {
			return "", nil, err
		}
		if s.paused {
			return "", nil, reject(ReasonSystemPaused)
		}
		if s.frozen[key] {
			return "", nil, reject(ReasonAccountFrozen)
		}
		if s.supply > math.MaxUint64-amount {
			return "", nil, reject(ReasonOverflow)
		}
		s.supply += amount
		s.balances[key] += amount
		return anchor.EventTokensMinted, base(map[string]any{
			"mint":             s.mint,
			"recipient":        target,
			"amount":           amount,
			"minter":           s.authority,
			"new_total_supply": s.supply,
		}), nil

	case entity.OperationBurn:
		amount, err := toU64(params)
		if err != nil {
			return "", nil, err
		}
		if s.paused {
			return "", nil, reject(ReasonSystemPaused)
		}
		if s.frozen[key] {
			return "", nil, reject(ReasonAccountFrozen)
		}
		if s.balances[key] < amount {
			return "", nil, reject(ReasonInsufficientBalance)
		}
		s.balances[key] -= amount
		s.supply -= amount
		return anchor.EventTokensBurned, base(map[string]any{
			"mint":             s.mint,
			"burner":           target,
			"amount":           amount,
			"new_total_supply": s.supply,
		}), nil

	case entity.OperationFreeze:
		s.frozen[key] = true
		return anchor.EventAccountFrozen, base(map[string]any{
			"target_account": target,
			"frozen_by":      s.authority,
		}), nil

	case entity.OperationThaw:
		delete(s.frozen, key)
		return anchor.EventAccountThawed, base(map[string]any{
			"target_account": target,
			"thawed_by":      s.authority,
		}), nil

	case entity.OperationPause:
		s.paused = true
		return anchor.EventSystemPaused, base(map[string]any{
			"paused_by": s.authority,
		}), nil

	case entity.OperationUnpause:
		s.paused = false
		return anchor.EventSystemUnpaused, base(map[string]any{
			"unpaused_by": s.authority,
		}), nil

	case entity.OperationBlacklistAdd:
		if len(params.Reason) > maxReasonLength {
			return "", nil, reject(ReasonReasonTooLong)
		}
		if s.blacklisted[key] {
			return "", nil, reject(ReasonAlreadyBlacklisted)
		}
		s.blacklisted[key] = true
		return anchor.EventBlacklistAdded, base(map[string]any{
			"wallet":         target,
			"reason":         params.Reason,
			"blacklisted_by": s.authority,
		}), nil

	case entity.OperationBlacklistRemove:
		if !s.blacklisted[key] {
			return "", nil, reject(ReasonNotBlacklisted)
		}
		delete(s.blacklisted, key)
		return anchor.EventBlacklistRemoved, base(map[string]any{
			"wallet":     target,
			"removed_by": s.authority,
		}), nil

	case entity.OperationSeize:
		to, err := anchor.ParsePublicKey(params.To)
		if err != nil {
			return "", nil, errors.Wrap(err, "invalid destination")
		}
		if !s.blacklisted[key] {
			return "", nil, reject(ReasonTargetNotBlacklisted)
		}
		if !s.frozen[key] {
			return "", nil, reject(ReasonAccountNotFrozen)
		}
		amount := s.balances[key]
		if s.balances[to.String()] > math.MaxUint64-amount {
			return "", nil, reject(ReasonOverflow)
		}
		delete(s.balances, key)
		s.balances[to.String()] += amount
		return anchor.EventTokensSeized, base(map[string]any{
			"from_account": target,
			"to_account":   to,
			"amount":       amount,
			"seized_by":    s.authority,
		}), nil

	case entity.OperationUpdateRoles:
		if params.Roles == nil || *params.Roles&^entity.ValidRoleMask != 0 {
			return "", nil, reject(ReasonInvalidRoles)
		}
		roles := *params.Roles
		s.roles[key] = roles
		delete(s.quotas, key)
		if roles&entity.RoleMinter != 0 && params.Quota != nil {
			quota, err := quotaToU64(*params.Quota)
			if err != nil {
				return "", nil, err
			}
			s.quotas[key] = quota
		}
		return anchor.EventRoleUpdated, base(map[string]any{
			"target":     target,
			"new_roles":  roles,
			"updated_by": s.authority,
		}), nil

	case entity.OperationUpdateMinter:
		if s.roles[key]&entity.RoleMinter == 0 {
			return "", nil, reject(ReasonInvalidRoles)
		}
		if params.Quota == nil {
			return "", nil, errors.Wrap(errs.InvalidArgument, "quota is required")
		}
		quota, err := quotaToU64(*params.Quota)
		if err != nil {
			return "", nil, err
		}
		s.quotas[key] = quota
		return anchor.EventRoleUpdated, base(map[string]any{
			"target":     target,
			"new_roles":  s.roles[key],
			"updated_by": s.authority,
		}), nil

	case entity.OperationTransferAuth:
		if target == s.authority {
			return "", nil, reject(ReasonSelfTransfer)
		}
		old := s.authority
		s.roles[old.String()] &^= entity.RoleMasterAuthority
		s.roles[key] |= entity.RoleMasterAuthority
		s.authority = target
		return anchor.EventAuthorityTransferred, base(map[string]any{
			"old_authority": old,
			"new_authority": target,
		}), nil
	}
	return "", nil, errors.Wrapf(errs.Unsupported, "unsupported command %q", kind)
}

func toU64(params Params) (uint64, error) {
	return decimalToU64("amount", params.Amount)
}

func quotaToU64(quota decimal.Decimal) (uint64, error) {
	return decimalToU64("quota", quota)
}

func decimalToU64(field string, value decimal.Decimal) (uint64, error) {
	if value.IsNegative() || !value.IsInteger() {
		return 0, errors.Wrapf(errs.InvalidArgument, "invalid %s %s", field, value)
	}
	amount := value.BigInt()
	if !amount.IsUint64() {
		return 0, reject(ReasonOverflow)
	}
	return amount.Uint64(), nil
}

// Close stops the ledger and ends every subscription. Calling Close more than once is a no-op.
func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, sub := range s.subscribers {
		sub.Unsubscribe()
	}
	s.subscribers = nil
	return nil
}
