package fanout

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_fanout_published_total",
			Help: "Record change events handed to the broker, by result",
		},
		[]string{"result"},
	)

	coalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ojcore_fanout_coalesced_total",
			Help: "Record changes folded into an already pending event",
		},
	)
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(publishedTotal)
	reg.MustRegister(coalescedTotal)
}
