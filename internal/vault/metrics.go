package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payout_vault",
		Subsystem: "vault",
		Name:      "operations_total",
		Help:      "Vault operations by name and outcome.",
	}, []string{"operation", "result"})

	paidOutUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "payout_vault",
		Subsystem: "vault",
		Name:      "paid_out_units_total",
		Help:      "Asset units released by payouts.",
	})

	depositedUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "payout_vault",
		Subsystem: "vault",
		Name:      "deposited_units_total",
		Help:      "Asset units deposited into custody.",
	})

	custodyHeldUnits = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "payout_vault",
		Subsystem: "vault",
		Name:      "custody_held_units",
		Help:      "Custody balance seen on the last read.",
	})

	publishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payout_vault",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Events whose publication failed after commit.",
	}, []string{"topic"})
)

func observe(op string, err error) {
	operationsTotal.WithLabelValues(op, errorKind(err)).Inc()
}
