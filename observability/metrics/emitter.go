package metrics

import (
	"math/big"

	"ingotfund/core/events"
	"ingotfund/native/fund"
)

// Emitter bridges engine events into the prometheus collectors. Wire it into
// the engine alongside other subscribers via events.Multi.
type Emitter struct {
	metrics *FundMetrics
}

// NewEmitter returns an event subscriber feeding the fund metrics registry.
func NewEmitter() *Emitter {
	return &Emitter{metrics: Fund()}
}

// Emit implements the events.Emitter interface.
func (e *Emitter) Emit(evt events.Event) {
	if e == nil || e.metrics == nil {
		return
	}
	switch ev := evt.(type) {
	case fund.PoolJoined:
		e.metrics.ObserveDeposit(ev.Token, bigFloat(ev.Amount), ev.Ingots)
	case fund.ReferralAccrued:
		e.metrics.ObserveReferralAccrual()
	case fund.PoolCreated:
		e.metrics.ObservePoolCreated(ev.Reason)
	case fund.PayoutSettled:
		e.metrics.ObservePayoutSettled()
	case fund.ReferralWithdrawn:
		e.metrics.ObserveWithdrawal("referral")
	case fund.RewardWithdrawn:
		e.metrics.ObserveWithdrawal("payout")
	case fund.TreasuryWithdrawn:
		e.metrics.ObserveWithdrawal(ev.Bucket)
	case fund.TokensSwept:
		e.metrics.ObserveWithdrawal("sweep")
	}
}

func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
