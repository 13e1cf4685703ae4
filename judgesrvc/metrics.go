package judgesrvc

import "github.com/prometheus/client_golang/prometheus"

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_judge_submissions_total",
			Help: "Records admitted, by record type",
		},
		[]string{"type"},
	)

	claimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_judge_claims_total",
			Help: "begin_judge calls, by result",
		},
		[]string{"result"},
	)

	claimMismatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_judge_claim_mismatch_total",
			Help: "Progress and end reports dropped because the claim no longer matched",
		},
		[]string{"op"},
	)

	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_judge_outcomes_total",
			Help: "Finished judgements, by status",
		},
		[]string{"status"},
	)

	sideEffectFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ojcore_judge_side_effect_failures_total",
			Help: "Best-effort follow-ups that failed, by kind",
		},
		[]string{"kind"},
	)
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(submissionsTotal)
	reg.MustRegister(claimsTotal)
	reg.MustRegister(claimMismatchTotal)
	reg.MustRegister(outcomesTotal)
	reg.MustRegister(sideEffectFailuresTotal)
}
