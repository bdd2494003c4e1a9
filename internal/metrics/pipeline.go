package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline metrics are registered explicitly from main (no init()) so tests
// can construct services without touching the default registry.
var (
	// ResultCacheTotal counts result-cache outcomes.
	// Labels: result = hit | stale | miss | bypass.
	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidex",
			Name:      "result_cache_total",
			Help:      "Result cache outcomes by result (hit/stale/miss/bypass)",
		},
		[]string{"result"},
	)

	// FanoutGroups observes how many parallel lookups one search issued.
	FanoutGroups = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "candidex",
			Name:      "search_fanout_groups",
			Help:      "Skill groups issued per search fan-out",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// RateLimitRejections counts 429 decisions per tier.
	RateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidex",
			Name:      "ratelimit_rejections_total",
			Help:      "Rate limit rejections by tier (address/tenant)",
		},
		[]string{"tier"},
	)

	// AbuseFlagsTotal counts identifiers flagged for repeated violations.
	AbuseFlagsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "candidex",
			Name:      "ratelimit_abuse_flags_total",
			Help:      "Identifiers flagged as suspected abuse",
		},
	)

	// RankingDegradedTotal counts searches served keyword-only because the
	// semantic ranking signal was unavailable.
	RankingDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "candidex",
			Name:      "ranking_degraded_total",
			Help:      "Searches that fell back to keyword-only ranking",
		},
	)
)

// RegisterPipelineMetrics registers all pipeline metrics with the default registry.
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		ResultCacheTotal,
		FanoutGroups,
		RateLimitRejections,
		AbuseFlagsTotal,
		RankingDegradedTotal,
	)
}
