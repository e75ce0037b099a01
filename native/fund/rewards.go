package fund

import (
	"fmt"
	"math/big"

	"ingotfund/core/types"
)

// distributeReferralRewards credits the per-level commission to each present
// upline of the depositor. Rewards are computed once, at deposit time, and
// never recomputed retroactively; the lifetime cap applies at claim time
// only. Called with the engine lock held.
func (e *Engine) distributeReferralRewards(from types.Address, uplines [UplineLevels]*types.Address, amount *big.Int) error {
	for level := 0; level < UplineLevels; level++ {
		upline := uplines[level]
		if upline == nil {
			break
		}
		reward := new(big.Int).Mul(amount, new(big.Int).SetUint64(referralLevelBps[level]))
		reward.Quo(reward, big.NewInt(BpsDenominator))
		if reward.Sign() <= 0 {
			continue
		}
		uplineUser, ok, err := e.state.User(*upline)
		if err != nil {
			return err
		}
		if !ok || uplineUser == nil {
			continue
		}
		uplineUser.Normalize()
		uplineUser.ReferralRewardTotal = new(big.Int).Add(uplineUser.ReferralRewardTotal, reward)
		if err := e.state.PutUser(*upline, uplineUser); err != nil {
			return err
		}
		e.emit(ReferralAccrued{From: from, To: *upline, Level: level, Amount: reward})
	}
	return nil
}

// claimableReferral computes the amount a user may withdraw right now: the
// lesser of unclaimed rewards and the remaining headroom under the lifetime
// cap of 3x the user's own cumulative deposits. The cap is dynamic: a user
// who deposits more raises their own cap on rewards already earned.
func claimableReferral(user *User) *big.Int {
	cap := new(big.Int).Mul(user.Invested, big.NewInt(rewardCapMultiplier))
	earned := new(big.Int).Sub(user.ReferralRewardTotal, user.ReferralWithdrawn)
	headroom := new(big.Int).Sub(cap, user.ReferralWithdrawn)
	claimable := earned
	if headroom.Cmp(earned) < 0 {
		claimable = headroom
	}
	if claimable.Sign() < 0 {
		return big.NewInt(0)
	}
	return claimable
}

// ClaimableReferral returns the referral amount the user could withdraw at
// this observation point.
func (e *Engine) ClaimableReferral(addr types.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	user, err := e.loadUser(addr)
	if err != nil {
		return nil, err
	}
	return claimableReferral(user), nil
}

// WithdrawReferralReward pays out the caller's full claimable referral amount
// in the primary token. The claimable amount must meet the configured
// minimum, and the asset ledger must already hold enough to cover it. The
// balance check runs before any state mutation so a refused withdrawal leaves
// the ledger untouched.
func (e *Engine) WithdrawReferralReward(caller types.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if err := e.requireLedger(); err != nil {
		return nil, err
	}
	user, err := e.loadUser(caller)
	if err != nil {
		return nil, err
	}
	claimable := claimableReferral(user)
	if claimable.Sign() <= 0 || claimable.Cmp(e.params.MinReferralWithdraw) < 0 {
		return nil, ErrBelowMinimumWithdraw
	}
	balance, err := e.ledger.BalanceOf(e.params.PrimaryToken)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Cmp(claimable) < 0 {
		return nil, ErrLedgerBalance
	}
	user.ReferralWithdrawn = new(big.Int).Add(user.ReferralWithdrawn, claimable)
	if err := e.state.PutUser(caller, user); err != nil {
		return nil, err
	}
	if err := e.ledger.TransferOut(e.params.PrimaryToken, caller, claimable); err != nil {
		return nil, fmt.Errorf("%w: transfer out: %v", ErrInsufficientFunds, err)
	}
	e.emit(ReferralWithdrawn{User: caller, Amount: new(big.Int).Set(claimable)})
	return new(big.Int).Set(claimable), nil
}
