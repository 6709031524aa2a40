package domain

import "github.com/prometheus/client_golang/prometheus"

var (
	// gatekeeper_reconcile_total
	//
	// counter that measures the number of completed reconciliations
	//
	// Has the following labels:
	// * outcome - the reconciliation outcome (no_op, invite_issued, removed, failed)
	GatekeeperReconcileTotalMetricName = "gatekeeper_reconcile_total"

	// gatekeeper_reconcile_duration
	//
	// gauge that measures the duration of the last reconciliation in milliseconds
	GatekeeperReconcileDurationMetricName = "gatekeeper_reconcile_duration"

	// gatekeeper_oracle_error_total
	//
	// counter that measures the number of ledger oracle read failures
	GatekeeperOracleErrorMetricName = "gatekeeper_oracle_error_total"

	// gatekeeper_admin_action_error_total
	//
	// counter that measures the number of failed group admin actions
	//
	// Has the following labels:
	// * action - the action that failed (evict, invite)
	GatekeeperAdminActionErrorMetricName = "gatekeeper_admin_action_error_total"

	// gatekeeper_stake_events_total
	//
	// counter that measures the number of normalized ledger events observed
	//
	// Has the following labels:
	// * kind - the event kind (deposit, withdraw)
	GatekeeperStakeEventsTotalMetricName = "gatekeeper_stake_events_total"

	// gatekeeper_watcher_reconnect_total
	//
	// counter that measures the number of event subscription reconnects
	GatekeeperWatcherReconnectMetricName = "gatekeeper_watcher_reconnect_total"

	// gatekeeper_sweep_duration
	//
	// gauge that measures the duration of the last periodic sweep in milliseconds
	GatekeeperSweepDurationMetricName = "gatekeeper_sweep_duration"

	GatekeeperReconcileTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: GatekeeperReconcileTotalMetricName,
			Help: "Total number of completed reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	GatekeeperReconcileDurationGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: GatekeeperReconcileDurationMetricName,
			Help: "Duration of the last reconciliation in milliseconds",
		},
	)

	GatekeeperOracleErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: GatekeeperOracleErrorMetricName,
			Help: "Total number of ledger oracle read failures",
		},
	)

	GatekeeperAdminActionErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: GatekeeperAdminActionErrorMetricName,
			Help: "Total number of failed group admin actions",
		},
		[]string{"action"},
	)

	GatekeeperStakeEventsTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: GatekeeperStakeEventsTotalMetricName,
			Help: "Total number of normalized ledger events observed",
		},
		[]string{"kind"},
	)

	GatekeeperWatcherReconnectCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: GatekeeperWatcherReconnectMetricName,
			Help: "Total number of event subscription reconnects",
		},
	)

	GatekeeperSweepDurationGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: GatekeeperSweepDurationMetricName,
			Help: "Duration of the last periodic sweep in milliseconds",
		},
	)
)

func init() {
	prometheus.MustRegister(GatekeeperReconcileTotalCounter)
	prometheus.MustRegister(GatekeeperReconcileDurationGauge)
	prometheus.MustRegister(GatekeeperOracleErrorCounter)
	prometheus.MustRegister(GatekeeperAdminActionErrorCounter)
	prometheus.MustRegister(GatekeeperStakeEventsTotalCounter)
	prometheus.MustRegister(GatekeeperWatcherReconnectCounter)
	prometheus.MustRegister(GatekeeperSweepDurationGauge)
}
