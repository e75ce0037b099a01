package fund

import (
	"fmt"
	"math/big"

	"ingotfund/core/types"
	"ingotfund/native/common"
)

// applyTreasurySplit routes a deposit into the two treasury buckets: 5% to
// reserve, the remainder to operational, so the two always sum to the full
// deposit with no leakage. Called with the engine lock held.
func (e *Engine) applyTreasurySplit(amount *big.Int) error {
	treasury, err := e.loadTreasury()
	if err != nil {
		return err
	}
	reserveCut := new(big.Int).Mul(amount, big.NewInt(reserveShareBps))
	reserveCut.Quo(reserveCut, big.NewInt(BpsDenominator))
	operationalCut := new(big.Int).Sub(amount, reserveCut)
	treasury.Reserve = new(big.Int).Add(treasury.Reserve, reserveCut)
	treasury.Operational = new(big.Int).Add(treasury.Operational, operationalCut)
	treasury.TotalInvested = new(big.Int).Add(treasury.TotalInvested, amount)
	return e.state.PutTreasury(treasury)
}

// TreasuryBalances returns a copy of the treasury counters.
func (e *Engine) TreasuryBalances() (*Treasury, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	treasury, err := e.loadTreasury()
	if err != nil {
		return nil, err
	}
	return treasury.Clone(), nil
}

// CoverageRatio returns the treasury balance as an integer percentage of
// total invested capital, the payout gate's input. It is zero while nothing
// has been invested.
func (e *Engine) CoverageRatio() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return 0, err
	}
	treasury, err := e.loadTreasury()
	if err != nil {
		return 0, err
	}
	if treasury.TotalInvested.Sign() <= 0 {
		return 0, nil
	}
	coverage := new(big.Int).Add(treasury.Reserve, treasury.Operational)
	coverage.Mul(coverage, big.NewInt(100))
	coverage.Quo(coverage, treasury.TotalInvested)
	if !coverage.IsUint64() {
		return 0, arithmeticError("coverage ratio overflows")
	}
	return coverage.Uint64(), nil
}

// WithdrawReserve administratively draws from the reserve bucket and
// transfers the amount out in the primary token.
func (e *Engine) WithdrawReserve(caller, to types.Address, amount *big.Int) error {
	return e.withdrawTreasury(caller, to, amount, "reserve")
}

// WithdrawOperational administratively draws from the operational bucket and
// transfers the amount out in the primary token.
func (e *Engine) WithdrawOperational(caller, to types.Address, amount *big.Int) error {
	return e.withdrawTreasury(caller, to, amount, "operational")
}

func (e *Engine) withdrawTreasury(caller, to types.Address, amount *big.Int, bucket string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.requireLedger(); err != nil {
		return err
	}
	if err := e.requireCapability(caller, common.CapManageTreasury); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	treasury, err := e.loadTreasury()
	if err != nil {
		return err
	}
	var balance *big.Int
	switch bucket {
	case "reserve":
		balance = treasury.Reserve
	case "operational":
		balance = treasury.Operational
	default:
		return validationError("unknown treasury bucket")
	}
	if balance.Cmp(amount) < 0 {
		return ErrTreasuryBalance
	}
	ledgerBalance, err := e.ledger.BalanceOf(e.params.PrimaryToken)
	if err != nil {
		return err
	}
	if ledgerBalance == nil || ledgerBalance.Cmp(amount) < 0 {
		return ErrLedgerBalance
	}
	remaining := new(big.Int).Sub(balance, amount)
	switch bucket {
	case "reserve":
		treasury.Reserve = remaining
	case "operational":
		treasury.Operational = remaining
	}
	if err := e.state.PutTreasury(treasury); err != nil {
		return err
	}
	if err := e.ledger.TransferOut(e.params.PrimaryToken, to, amount); err != nil {
		return fmt.Errorf("%w: transfer out: %v", ErrInsufficientFunds, err)
	}
	e.emit(TreasuryWithdrawn{Bucket: bucket, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Sweep moves an arbitrary token balance held by the engine to a destination
// without touching the treasury counters. It exists to recover unrelated
// assets sent to the engine's account.
func (e *Engine) Sweep(caller, to types.Address, token string, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireLedger(); err != nil {
		return err
	}
	if err := e.requireCapability(caller, common.CapManageTreasury); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.ledger.BalanceOf(token)
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrLedgerBalance
	}
	if err := e.ledger.TransferOut(token, to, amount); err != nil {
		return fmt.Errorf("%w: transfer out: %v", ErrInsufficientFunds, err)
	}
	e.emit(TokensSwept{Token: token, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}
