package fund

import (
	"fmt"
	"math/big"

	"ingotfund/core/types"
	"ingotfund/native/common"
)

// JoinPool deposits amount of token into the target pool on behalf of the
// caller. The deposit allocates whole ingots, records an order, applies the
// treasury split, distributes referral commissions up the caller's upline
// chain and, when the deposit fills the pool exactly, rolls over to the next
// sequential pool atomically.
//
// Every precondition, including the rollover next-ID collision guard, is
// checked before the asset transfer; the transfer is the last fallible step
// before state mutation, so a failed deposit leaves no partial state.
func (e *Engine) JoinPool(caller types.Address, poolID uint64, amount *big.Int, token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.requireLedger(); err != nil {
		return err
	}
	if err := common.Guard(e.pauses, common.ModuleDeposits); err != nil {
		return ErrDepositsSuspended
	}
	user, err := e.loadUser(caller)
	if err != nil {
		return err
	}
	if user.Blacklisted {
		return ErrBlacklisted
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	normalizedToken, err := e.params.NormalizeToken(token)
	if err != nil {
		return err
	}
	price, err := e.params.IngotPriceFor(normalizedToken)
	if err != nil {
		return err
	}
	if amount.Cmp(price) < 0 {
		return ErrBelowIngotPrice
	}
	quotient := new(big.Int).Quo(amount, price)
	if quotient.Sign() <= 0 {
		return ErrZeroIngots
	}
	if !quotient.IsUint64() || quotient.Uint64() > PoolCapacityIngots {
		return ErrPoolFull
	}
	ingots := quotient.Uint64()

	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if !pool.Active || pool.PaidOut {
		return ErrPoolInactive
	}
	if pool.Fill+ingots > PoolCapacityIngots {
		return ErrPoolFull
	}

	last, err := e.state.LastPoolID()
	if err != nil {
		return err
	}
	fillsPool := pool.Fill+ingots == PoolCapacityIngots
	rollover := fillsPool && pool.ID < MaxPoolID && last < MaxPoolID
	nextID := last + 1
	if rollover {
		// Consistency-violation guard: rollover must mint a fresh ID.
		if _, exists, err := e.state.Pool(nextID); err != nil {
			return err
		} else if exists {
			return ErrPoolExists
		}
	}

	if err := e.ledger.TransferIn(normalizedToken, caller, amount); err != nil {
		return fmt.Errorf("%w: transfer in: %v", ErrInsufficientFunds, err)
	}

	user.Invested = new(big.Int).Add(user.Invested, amount)
	if err := e.state.PutUser(caller, user); err != nil {
		return err
	}

	order := Order{
		Sequence:    uint64(len(pool.Orders)) + 1,
		User:        caller,
		Invested:    new(big.Int).Set(amount),
		RatePercent: e.params.InterestRatePercent,
		Token:       normalizedToken,
	}
	pool.Orders = append(pool.Orders, order)
	pool.TotalInvested = new(big.Int).Add(pool.TotalInvested, amount)
	pool.Fill += ingots

	if err := e.applyTreasurySplit(amount); err != nil {
		return err
	}
	if err := e.distributeReferralRewards(caller, user.Uplines, amount); err != nil {
		return err
	}

	if rollover {
		pool.Active = false
		if err := e.state.PutPool(pool); err != nil {
			return err
		}
		next := (&Pool{ID: nextID, Kind: KindForPoolID(nextID), Active: true}).Normalize()
		if err := e.state.PutPool(next); err != nil {
			return err
		}
		if err := e.state.SetLastPoolID(nextID); err != nil {
			return err
		}
		if err := e.state.SetActivePoolID(nextID); err != nil {
			return err
		}
		e.emit(PoolCreated{ID: nextID, Kind: next.Kind, Reason: PoolCreateRollover})
		e.emit(PoolRolledOver{Closed: pool.ID, Opened: nextID})
	} else {
		if err := e.state.PutPool(pool); err != nil {
			return err
		}
	}

	e.emit(PoolJoined{
		Pool:     pool.ID,
		User:     caller,
		Token:    normalizedToken,
		Amount:   new(big.Int).Set(amount),
		Ingots:   ingots,
		Sequence: order.Sequence,
	})
	return nil
}

// ForceCreatePool administratively provisions a specific pool ID within the
// bounded ID space. It never overwrites an existing pool and advances the
// last-created high-water mark when the new ID exceeds it.
func (e *Engine) ForceCreatePool(caller types.Address, id uint64, kind PoolKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.requireCapability(caller, common.CapManagePools); err != nil {
		return err
	}
	if id == 0 || id > MaxPoolID {
		return ErrPoolIDOutOfRange
	}
	if !kind.Valid() {
		return ErrInvalidPoolKind
	}
	if _, exists, err := e.state.Pool(id); err != nil {
		return err
	} else if exists {
		return ErrPoolExists
	}
	pool := (&Pool{ID: id, Kind: kind, Active: true}).Normalize()
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	last, err := e.state.LastPoolID()
	if err != nil {
		return err
	}
	if id > last {
		if err := e.state.SetLastPoolID(id); err != nil {
			return err
		}
	}
	e.emit(PoolCreated{ID: id, Kind: kind, Reason: PoolCreateForced})
	return nil
}

// SetPoolActive administratively opens or closes a pool for deposits. A pool
// in its terminal paid-out state can never be reopened.
func (e *Engine) SetPoolActive(caller types.Address, id uint64, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.requireCapability(caller, common.CapManagePools); err != nil {
		return err
	}
	pool, err := e.loadPool(id)
	if err != nil {
		return err
	}
	if active && pool.PaidOut {
		return ErrPoolAlreadyPaid
	}
	if pool.Active == active {
		return nil
	}
	pool.Active = active
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.emit(PoolStatusChanged{ID: id, Active: active})
	return nil
}

// GetPool returns a copy of the pool record.
func (e *Engine) GetPool(id uint64) (*Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	pool, err := e.loadPool(id)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// ActivePoolID returns the ID of the pool currently accepting rollover-chain
// deposits, or zero when that pool has been deactivated without a successor.
func (e *Engine) ActivePoolID() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return 0, err
	}
	id, err := e.state.ActivePoolID()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, nil
	}
	pool, ok, err := e.state.Pool(id)
	if err != nil {
		return 0, err
	}
	if !ok || pool == nil || !pool.Active {
		return 0, nil
	}
	return id, nil
}

// NextPoolID returns the ID the next created pool would take.
func (e *Engine) NextPoolID() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return 0, err
	}
	last, err := e.state.LastPoolID()
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}
