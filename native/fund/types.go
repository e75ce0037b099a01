package fund

import (
	"math/big"

	"ingotfund/core/types"
)

// PoolKind distinguishes the two pool flavours of the schedule.
type PoolKind uint8

const (
	// PoolStandard marks pools drawn from the initial sequential range.
	PoolStandard PoolKind = iota + 1
	// PoolLottery marks pools beyond the standard range.
	PoolLottery
)

// String implements fmt.Stringer.
func (k PoolKind) String() string {
	switch k {
	case PoolStandard:
		return "standard"
	case PoolLottery:
		return "lottery"
	default:
		return "unknown"
	}
}

// Valid reports whether the kind is one of the two known flavours.
func (k PoolKind) Valid() bool {
	return k == PoolStandard || k == PoolLottery
}

// KindForPoolID derives the scheduled kind for a pool identifier: IDs inside
// the standard range are standard, everything beyond is lottery.
func KindForPoolID(id uint64) PoolKind {
	if id <= StandardPoolMaxID {
		return PoolStandard
	}
	return PoolLottery
}

// User is the per-account record of the referral registry and reward engine.
// Uplines holds the precomputed 7-level ancestor chain; a nil slot terminates
// the chain.
type User struct {
	Referrer            *types.Address               `json:"referrer,omitempty"`
	Uplines             [UplineLevels]*types.Address `json:"uplines"`
	Downlines           []types.Address              `json:"downlines,omitempty"`
	Invested            *big.Int                     `json:"invested"`
	ReferralRewardTotal *big.Int                     `json:"referralRewardTotal"`
	ReferralWithdrawn   *big.Int                     `json:"referralWithdrawn"`
	Registered          bool                         `json:"registered"`
	Blacklisted         bool                         `json:"blacklisted,omitempty"`
}

// Normalize ensures all amount fields are non-nil. Returns the receiver for
// chaining.
func (u *User) Normalize() *User {
	if u == nil {
		return nil
	}
	if u.Invested == nil {
		u.Invested = big.NewInt(0)
	}
	if u.ReferralRewardTotal == nil {
		u.ReferralRewardTotal = big.NewInt(0)
	}
	if u.ReferralWithdrawn == nil {
		u.ReferralWithdrawn = big.NewInt(0)
	}
	return u
}

// Clone produces a deep copy of the user record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := &User{
		Registered:  u.Registered,
		Blacklisted: u.Blacklisted,
	}
	if u.Referrer != nil {
		ref := *u.Referrer
		clone.Referrer = &ref
	}
	for i, up := range u.Uplines {
		if up != nil {
			addr := *up
			clone.Uplines[i] = &addr
		}
	}
	if len(u.Downlines) > 0 {
		clone.Downlines = append([]types.Address(nil), u.Downlines...)
	}
	clone.Invested = copyBigInt(u.Invested)
	clone.ReferralRewardTotal = copyBigInt(u.ReferralRewardTotal)
	clone.ReferralWithdrawn = copyBigInt(u.ReferralWithdrawn)
	return clone
}

// Order records one deposit into a pool. Orders are append-only and flip from
// unpaid to paid exactly once during the pool's settlement.
type Order struct {
	Sequence    uint64        `json:"sequence"`
	User        types.Address `json:"user"`
	Invested    *big.Int      `json:"invested"`
	RatePercent uint64        `json:"ratePercent"`
	Token       string        `json:"token"`
	Paid        bool          `json:"paid"`
}

// Clone produces a deep copy of the order.
func (o Order) Clone() Order {
	clone := o
	clone.Invested = copyBigInt(o.Invested)
	return clone
}

// Pool is one capacity-bounded pool record. Pools are retained as history and
// never destroyed.
type Pool struct {
	ID            uint64   `json:"id"`
	Kind          PoolKind `json:"kind"`
	Fill          uint64   `json:"fill"`
	Active        bool     `json:"active"`
	PaidOut       bool     `json:"paidOut"`
	TotalInvested *big.Int `json:"totalInvested"`
	Orders        []Order  `json:"orders,omitempty"`
}

// Normalize ensures all amount fields are non-nil.
func (p *Pool) Normalize() *Pool {
	if p == nil {
		return nil
	}
	if p.TotalInvested == nil {
		p.TotalInvested = big.NewInt(0)
	}
	for i := range p.Orders {
		if p.Orders[i].Invested == nil {
			p.Orders[i].Invested = big.NewInt(0)
		}
	}
	return p
}

// Clone produces a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := &Pool{
		ID:      p.ID,
		Kind:    p.Kind,
		Fill:    p.Fill,
		Active:  p.Active,
		PaidOut: p.PaidOut,
	}
	clone.TotalInvested = copyBigInt(p.TotalInvested)
	if len(p.Orders) > 0 {
		clone.Orders = make([]Order, len(p.Orders))
		for i, o := range p.Orders {
			clone.Orders[i] = o.Clone()
		}
	}
	return clone
}

// Treasury carries the two running balances funded by the deposit split and
// the derived global invested total used by the coverage gate.
type Treasury struct {
	Reserve       *big.Int `json:"reserve"`
	Operational   *big.Int `json:"operational"`
	TotalInvested *big.Int `json:"totalInvested"`
}

// Normalize ensures all balances are non-nil.
func (t *Treasury) Normalize() *Treasury {
	if t == nil {
		return nil
	}
	if t.Reserve == nil {
		t.Reserve = big.NewInt(0)
	}
	if t.Operational == nil {
		t.Operational = big.NewInt(0)
	}
	if t.TotalInvested == nil {
		t.TotalInvested = big.NewInt(0)
	}
	return t
}

// Clone produces a deep copy of the treasury counters.
func (t *Treasury) Clone() *Treasury {
	if t == nil {
		return nil
	}
	return &Treasury{
		Reserve:       copyBigInt(t.Reserve),
		Operational:   copyBigInt(t.Operational),
		TotalInvested: copyBigInt(t.TotalInvested),
	}
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
