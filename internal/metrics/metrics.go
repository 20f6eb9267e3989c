package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the application-specific Prometheus collectors.
var Registry = prometheus.NewRegistry()

var (
	signups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakepool",
			Subsystem: "staking",
			Name:      "signups_total",
			Help:      "Signup attempts by outcome.",
		},
		[]string{"outcome"},
	)

	rewardsPaid = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakepool",
			Subsystem: "rewards",
			Name:      "paid_total",
			Help:      "Number of rewards paid by kind.",
		},
		[]string{"kind"},
	)

	rewardAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakepool",
			Subsystem: "rewards",
			Name:      "paid_amount_total",
			Help:      "Sum of reward amounts paid, in the asset's smallest unit.",
		},
		[]string{"kind"},
	)

	periodicSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakepool",
			Subsystem: "rewards",
			Name:      "periodic_skipped_total",
			Help:      "Users skipped by the periodic reward pass, by reason.",
		},
		[]string{"reason"},
	)

	stakeDeposits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stakepool",
			Subsystem: "staking",
			Name:      "deposited_amount_total",
			Help:      "Sum of stake deposits.",
		},
	)

	adminPayouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakepool",
			Subsystem: "admin",
			Name:      "payouts_total",
			Help:      "Administrative payouts by outcome.",
		},
		[]string{"outcome"},
	)

	compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stakepool",
			Subsystem: "custody",
			Name:      "compensations_total",
			Help:      "Compensating transfers issued after an aborted unit, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		signups,
		rewardsPaid,
		rewardAmount,
		periodicSkips,
		stakeDeposits,
		adminPayouts,
		compensations,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordSignup counts a signup attempt.
func RecordSignup(outcome string) {
	signups.WithLabelValues(outcome).Inc()
}

// RecordReward counts a paid reward and its amount.
func RecordReward(kind string, amount uint64) {
	rewardsPaid.WithLabelValues(kind).Inc()
	rewardAmount.WithLabelValues(kind).Add(float64(amount))
}

// RecordPeriodicSkip counts a user skipped by the periodic pass.
func RecordPeriodicSkip(reason string) {
	periodicSkips.WithLabelValues(reason).Inc()
}

// RecordStake adds a stake deposit.
func RecordStake(amount uint64) {
	stakeDeposits.Add(float64(amount))
}

// RecordAdminPayout counts an administrative payout or payout group.
func RecordAdminPayout(outcome string) {
	adminPayouts.WithLabelValues(outcome).Inc()
}

// RecordCompensation counts a compensating transfer.
func RecordCompensation(outcome string) {
	compensations.WithLabelValues(outcome).Inc()
}
