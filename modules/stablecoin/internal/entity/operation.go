package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OperationKind string

const (
	OperationMint            OperationKind = "mint"
	OperationBurn            OperationKind = "burn"
	OperationFreeze          OperationKind = "freeze"
	OperationThaw            OperationKind = "thaw"
	OperationPause           OperationKind = "pause"
	OperationUnpause         OperationKind = "unpause"
	OperationBlacklistAdd    OperationKind = "blacklist_add"
	OperationBlacklistRemove OperationKind = "blacklist_remove"
	OperationSeize           OperationKind = "seize"
	OperationUpdateRoles     OperationKind = "update_roles"
	OperationUpdateMinter    OperationKind = "update_minter"
	OperationTransferAuth    OperationKind = "transfer_authority"
)

var OperationKinds = []OperationKind{
	OperationMint,
	OperationBurn,
	OperationFreeze,
	OperationThaw,
	OperationPause,
	OperationUnpause,
	OperationBlacklistAdd,
	OperationBlacklistRemove,
	OperationSeize,
	OperationUpdateRoles,
	OperationUpdateMinter,
	OperationTransferAuth,
}

// Role bits of a role account.
const (
	RoleMasterAuthority uint8 = 1 << iota
	RoleMinter
	RoleBurner
	RoleFreezer
	RolePauser
	RoleBlacklister
	RoleSeizer

	ValidRoleMask uint8 = 0x7F
)

func (k OperationKind) String() string {
	return string(k)
}

func (k OperationKind) IsValid() bool {
	for _, kind := range OperationKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// HasAmount reports whether the command takes an amount. A seize always moves the whole balance.
func (k OperationKind) HasAmount() bool {
	return k == OperationMint || k == OperationBurn
}

// HasQuota reports whether the command sets a minter quota.
func (k OperationKind) HasQuota() bool {
	return k == OperationUpdateRoles || k == OperationUpdateMinter
}

// HasTarget reports whether the command acts on an account. Pause and unpause act on the whole system.
func (k OperationKind) HasTarget() bool {
	return k != OperationPause && k != OperationUnpause
}

type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
)

type Operation struct {
	ID             uuid.UUID
	Kind           OperationKind
	Target         string
	To             string // destination account of a seize
	Amount         decimal.Decimal
	Memo           string
	Reason         string // blacklist reason
	Roles          *uint8 // role bitmask granted by update_roles
	Quota          *decimal.Decimal
	Signature      string
	IdempotencyKey string
	Status         OperationStatus
	Error          string // rejection reason of a failed operation
	CreatedAt      time.Time
}
