package authhttp

import (
	"github.com/prometheus/client_golang/prometheus"
)

var metricsNamespace = "radio"

var (
	callDurationSummary = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  metricsNamespace,
		Subsystem:  "auth",
		Name:       "duration_seconds",
		Objectives: map[float64]float64{0.5: 0.05, 0.99: 0.001, 0.999: 0.0001},
		Help:       "Duration of authorization call.",
	}, []string{"action"})
	callErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "auth",
		Name:      "errors",
		Help:      "Authorization call error count.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(callDurationSummary)
	prometheus.MustRegister(callErrorCount)
}
