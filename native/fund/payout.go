package fund

import (
	"fmt"
	"math/big"

	"ingotfund/core/types"
	"ingotfund/native/common"
)

// TriggerPayout batch-settles every unpaid order in the pool. The operation
// is gated by the global coverage ratio (treasury balance as a percentage of
// total capital invested across all pools) and is all-or-nothing at the
// granularity of the whole pool: once the gate passes, every eligible order
// is settled and the pool transitions to its terminal PaidOut state. A second
// trigger on the same pool fails.
func (e *Engine) TriggerPayout(caller types.Address, poolID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.requireCapability(caller, common.CapTriggerPayout); err != nil {
		return err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if pool.PaidOut {
		return ErrPoolAlreadyPaid
	}
	if pool.Fill == 0 {
		return ErrPoolEmpty
	}
	treasury, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if treasury.TotalInvested.Sign() <= 0 {
		return arithmeticError("coverage denominator is zero")
	}
	coverage := new(big.Int).Add(treasury.Reserve, treasury.Operational)
	coverage.Mul(coverage, big.NewInt(100))
	coverage.Quo(coverage, treasury.TotalInvested)
	if coverage.Cmp(big.NewInt(coverageThresholdPercent)) < 0 {
		return ErrCoverageBelowThreshold
	}

	settled := 0
	totalCredited := big.NewInt(0)
	totalFees := big.NewInt(0)
	for i := range pool.Orders {
		order := &pool.Orders[i]
		if order.Paid || order.Invested == nil || order.Invested.Sign() <= 0 {
			continue
		}
		interest := new(big.Int).Mul(order.Invested, new(big.Int).SetUint64(order.RatePercent))
		interest.Quo(interest, big.NewInt(100))
		gross := new(big.Int).Add(order.Invested, interest)
		fee := new(big.Int).Mul(gross, big.NewInt(payoutFeePercent))
		fee.Quo(fee, big.NewInt(100))
		net := new(big.Int).Sub(gross, fee)

		pending, err := e.state.PendingPayout(order.User)
		if err != nil {
			return err
		}
		if pending == nil {
			pending = big.NewInt(0)
		}
		if err := e.state.SetPendingPayout(order.User, new(big.Int).Add(pending, net)); err != nil {
			return err
		}
		treasury.Reserve = new(big.Int).Add(treasury.Reserve, fee)
		totalCredited.Add(totalCredited, net)
		totalFees.Add(totalFees, fee)
		order.Paid = true
		settled++
	}

	pool.PaidOut = true
	pool.Active = false
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	if err := e.state.PutTreasury(treasury); err != nil {
		return err
	}
	e.emit(PayoutSettled{
		Pool:          poolID,
		OrdersSettled: settled,
		TotalCredited: totalCredited,
		FeeAccrued:    totalFees,
	})
	return nil
}

// ClaimablePayout returns the caller's settled, not-yet-withdrawn payout
// balance.
func (e *Engine) ClaimablePayout(addr types.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	pending, err := e.state.PendingPayout(addr)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(pending), nil
}

// WithdrawReward pays out the caller's entire pending-payout balance in one
// transfer. The balance is zeroed before the transfer so a failed transfer
// retry can never double-spend.
func (e *Engine) WithdrawReward(caller types.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if err := e.requireLedger(); err != nil {
		return nil, err
	}
	pending, err := e.state.PendingPayout(caller)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Sign() <= 0 {
		return nil, ErrNothingToWithdraw
	}
	balance, err := e.ledger.BalanceOf(e.params.PrimaryToken)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Cmp(pending) < 0 {
		return nil, ErrLedgerBalance
	}
	amount := new(big.Int).Set(pending)
	if err := e.state.SetPendingPayout(caller, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.ledger.TransferOut(e.params.PrimaryToken, caller, amount); err != nil {
		return nil, fmt.Errorf("%w: transfer out: %v", ErrInsufficientFunds, err)
	}
	e.emit(RewardWithdrawn{User: caller, Amount: new(big.Int).Set(amount)})
	return amount, nil
}
