package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	appliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sunward",
		Subsystem: "engine",
		Name:      "applies_total",
		Help:      "apply transactions by outcome",
	},
		[]string{"result"},
	)

	ruleActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sunward",
		Subsystem: "engine",
		Name:      "rule_active",
		Help:      "1 for the rule whose window contains the current time",
	},
		[]string{"rule"},
	)
)

func init() {
	prometheus.MustRegister(appliesTotal, ruleActive)
}
