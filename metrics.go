package radio

import (
	"github.com/prometheus/client_golang/prometheus"
)

var metricsNamespace = "radio"

var (
	connectorStateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "connector",
		Name:      "state",
		Help:      "Connection state: 0 connecting, 1 awaiting id, 2 ready, 3 closed.",
	})
	queueSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "connector",
		Name:      "queue_size",
		Help:      "Number of packets waiting for the connection to become ready.",
	})
	packetsInCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "connector",
		Name:      "packets_in",
		Help:      "Number of inbound packets by kind.",
	}, []string{"kind"})
	packetsOutCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "connector",
		Name:      "packets_out",
		Help:      "Number of outbound packets by result.",
	}, []string{"result"})
	protocolErrorCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "connector",
		Name:      "protocol_errors",
		Help:      "Number of inbound packets which could not be routed.",
	})
	reconnectCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "connector",
		Name:      "reconnects",
		Help:      "Number of reconnect attempts.",
	})
)

var (
	packetsInConnection   = packetsInCount.WithLabelValues("connection")
	packetsInPing         = packetsInCount.WithLabelValues("ping")
	packetsInSubscribe    = packetsInCount.WithLabelValues("subscribe")
	packetsInChannel      = packetsInCount.WithLabelValues("channel")
	packetsInUnrouted     = packetsInCount.WithLabelValues("unrouted")
	packetsOutSent        = packetsOutCount.WithLabelValues("sent")
	packetsOutQueued      = packetsOutCount.WithLabelValues("queued")
	packetsOutDropped     = packetsOutCount.WithLabelValues("dropped")
	packetsOutDiscarded   = packetsOutCount.WithLabelValues("discarded")
	packetsOutSendFailure = packetsOutCount.WithLabelValues("send_failure")
)

func init() {
	prometheus.MustRegister(connectorStateGauge)
	prometheus.MustRegister(queueSizeGauge)
	prometheus.MustRegister(packetsInCount)
	prometheus.MustRegister(packetsOutCount)
	prometheus.MustRegister(protocolErrorCount)
	prometheus.MustRegister(reconnectCount)
}
