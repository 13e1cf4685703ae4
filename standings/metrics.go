package standings

import "github.com/prometheus/client_golang/prometheus"

var (
	foldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_standings_folds_total",
			Help: "Journal folds, by result",
		},
		[]string{"result"},
	)

	foldDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ojcore_standings_fold_duration_seconds",
			Help:    "Time spent appending to a journal and storing the derived stat",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(foldsTotal)
	reg.MustRegister(foldDuration)
}
