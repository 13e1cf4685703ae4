package broker

import "github.com/prometheus/client_golang/prometheus"

var (
	dialAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_broker_dial_attempts_total",
			Help: "Broker dial attempts by result",
		},
		[]string{"result"},
	)

	channelOpensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_broker_channel_opens_total",
			Help: "Logical channels opened, by cache mode",
		},
		[]string{"mode"},
	)

	evictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_broker_evictions_total",
			Help: "Cached connections and channels retired after the transport closed them",
		},
		[]string{"kind"},
	)
)

// RegisterMetrics registers broker metrics
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(dialAttemptsTotal)
	reg.MustRegister(channelOpensTotal)
	reg.MustRegister(evictionsTotal)
}
