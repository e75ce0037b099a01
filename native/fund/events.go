package fund

import (
	"math/big"

	"ingotfund/core/types"
)

const (
	TypeUserRegistered    = "fund.user.registered"
	TypeReferrerChanged   = "fund.user.referrerChanged"
	TypeUserBlacklisted   = "fund.user.blacklisted"
	TypePoolCreated       = "fund.pool.created"
	TypePoolJoined        = "fund.pool.joined"
	TypePoolRolledOver    = "fund.pool.rolledOver"
	TypePoolStatusChanged = "fund.pool.statusChanged"
	TypeReferralAccrued   = "fund.referral.accrued"
	TypeReferralWithdrawn = "fund.referral.withdrawn"
	TypePayoutSettled     = "fund.payout.settled"
	TypeRewardWithdrawn   = "fund.payout.withdrawn"
	TypeTreasuryWithdrawn = "fund.treasury.withdrawn"
	TypeTokensSwept       = "fund.treasury.swept"
	TypeParityUpdated     = "fund.params.parityUpdated"
)

// Reasons recorded on PoolCreated events.
const (
	PoolCreateGenesis  = "genesis"
	PoolCreateRollover = "rollover"
	PoolCreateForced   = "forced"
)

// UserRegistered is emitted when an account joins the referral registry.
type UserRegistered struct {
	User     types.Address
	Referrer *types.Address
}

func (UserRegistered) EventType() string { return TypeUserRegistered }

// ReferrerChanged is the audit signal of an administrative referrer override.
type ReferrerChanged struct {
	User        types.Address
	OldReferrer *types.Address
	NewReferrer *types.Address
}

func (ReferrerChanged) EventType() string { return TypeReferrerChanged }

// UserBlacklisted is emitted when an account's blacklist flag changes.
type UserBlacklisted struct {
	User        types.Address
	Blacklisted bool
}

func (UserBlacklisted) EventType() string { return TypeUserBlacklisted }

// PoolCreated is emitted for every pool provisioned, whether at genesis, by
// rollover or administratively.
type PoolCreated struct {
	ID     uint64
	Kind   PoolKind
	Reason string
}

func (PoolCreated) EventType() string { return TypePoolCreated }

// PoolJoined is emitted on every successful deposit.
type PoolJoined struct {
	Pool     uint64
	User     types.Address
	Token    string
	Amount   *big.Int
	Ingots   uint64
	Sequence uint64
}

func (PoolJoined) EventType() string { return TypePoolJoined }

// PoolRolledOver is emitted when a filled pool closes and its successor
// opens, atomically with the triggering deposit.
type PoolRolledOver struct {
	Closed uint64
	Opened uint64
}

func (PoolRolledOver) EventType() string { return TypePoolRolledOver }

// PoolStatusChanged is emitted on administrative open/close of a pool.
type PoolStatusChanged struct {
	ID     uint64
	Active bool
}

func (PoolStatusChanged) EventType() string { return TypePoolStatusChanged }

// ReferralAccrued is emitted once per upline level credited by a deposit.
type ReferralAccrued struct {
	From   types.Address
	To     types.Address
	Level  int
	Amount *big.Int
}

func (ReferralAccrued) EventType() string { return TypeReferralAccrued }

// ReferralWithdrawn is emitted when a user claims referral rewards.
type ReferralWithdrawn struct {
	User   types.Address
	Amount *big.Int
}

func (ReferralWithdrawn) EventType() string { return TypeReferralWithdrawn }

// PayoutSettled summarises a batch pool settlement.
type PayoutSettled struct {
	Pool          uint64
	OrdersSettled int
	TotalCredited *big.Int
	FeeAccrued    *big.Int
}

func (PayoutSettled) EventType() string { return TypePayoutSettled }

// RewardWithdrawn is emitted when a user pulls their pending payout balance.
type RewardWithdrawn struct {
	User   types.Address
	Amount *big.Int
}

func (RewardWithdrawn) EventType() string { return TypeRewardWithdrawn }

// TreasuryWithdrawn is emitted on administrative reserve or operational
// draws.
type TreasuryWithdrawn struct {
	Bucket string
	To     types.Address
	Amount *big.Int
}

func (TreasuryWithdrawn) EventType() string { return TypeTreasuryWithdrawn }

// TokensSwept is emitted when an arbitrary token balance held by the engine
// is recovered to a destination.
type TokensSwept struct {
	Token  string
	To     types.Address
	Amount *big.Int
}

func (TokensSwept) EventType() string { return TypeTokensSwept }

// ParityUpdated is emitted when the global parity rate changes.
type ParityUpdated struct {
	ParityBps uint64
}

func (ParityUpdated) EventType() string { return TypeParityUpdated }
