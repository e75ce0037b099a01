package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// FundMetrics exposes the engine's operational counters.
type FundMetrics struct {
	depositsTotal    *prometheus.CounterVec
	depositedAmount  *prometheus.CounterVec
	ingotsFilled     prometheus.Counter
	referralAccruals prometheus.Counter
	poolsCreated     *prometheus.CounterVec
	payoutsSettled   prometheus.Counter
	withdrawals      *prometheus.CounterVec
	coverageRatio    prometheus.Gauge
}

var (
	fundOnce     sync.Once
	fundRegistry *FundMetrics
)

// Fund returns the process-wide fund metrics registry.
func Fund() *FundMetrics {
	fundOnce.Do(func() {
		fundRegistry = &FundMetrics{
			depositsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fund_deposits_total",
				Help: "Count of accepted pool deposits by token.",
			}, []string{"token"}),
			depositedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fund_deposited_amount_total",
				Help: "Sum of accepted deposit amounts by token, in smallest units.",
			}, []string{"token"}),
			ingotsFilled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "fund_ingots_filled_total",
				Help: "Total ingots allocated across all pools.",
			}),
			referralAccruals: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "fund_referral_accruals_total",
				Help: "Count of referral commission credits.",
			}),
			poolsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fund_pools_created_total",
				Help: "Count of created pools by reason.",
			}, []string{"reason"}),
			payoutsSettled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "fund_payouts_settled_total",
				Help: "Count of batch pool settlements.",
			}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fund_withdrawals_total",
				Help: "Count of withdrawals by kind.",
			}, []string{"kind"}),
			coverageRatio: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "fund_coverage_ratio_percent",
				Help: "Treasury balance as a percentage of total invested capital.",
			}),
		}
		prometheus.MustRegister(
			fundRegistry.depositsTotal,
			fundRegistry.depositedAmount,
			fundRegistry.ingotsFilled,
			fundRegistry.referralAccruals,
			fundRegistry.poolsCreated,
			fundRegistry.payoutsSettled,
			fundRegistry.withdrawals,
			fundRegistry.coverageRatio,
		)
	})
	return fundRegistry
}

// ObserveDeposit records an accepted deposit.
func (m *FundMetrics) ObserveDeposit(token string, amount float64, ingots uint64) {
	if m == nil {
		return
	}
	if token == "" {
		token = "unknown"
	}
	m.depositsTotal.WithLabelValues(token).Inc()
	m.depositedAmount.WithLabelValues(token).Add(amount)
	m.ingotsFilled.Add(float64(ingots))
}

// ObserveReferralAccrual records one referral commission credit.
func (m *FundMetrics) ObserveReferralAccrual() {
	if m == nil {
		return
	}
	m.referralAccruals.Inc()
}

// ObservePoolCreated records a created pool.
func (m *FundMetrics) ObservePoolCreated(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.poolsCreated.WithLabelValues(reason).Inc()
}

// ObservePayoutSettled records a batch pool settlement.
func (m *FundMetrics) ObservePayoutSettled() {
	if m == nil {
		return
	}
	m.payoutsSettled.Inc()
}

// ObserveWithdrawal records a withdrawal by kind ("referral", "payout",
// "reserve", "operational", "sweep").
func (m *FundMetrics) ObserveWithdrawal(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.withdrawals.WithLabelValues(kind).Inc()
}

// SetCoverageRatio publishes the current coverage ratio.
func (m *FundMetrics) SetCoverageRatio(percent uint64) {
	if m == nil {
		return
	}
	m.coverageRatio.Set(float64(percent))
}
