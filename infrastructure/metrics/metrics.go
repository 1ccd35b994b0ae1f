package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "dashspv"
)

// Diff processing outcomes
const (
	OutcomeValid             = "valid"
	OutcomeInvalid           = "invalid"
	OutcomeMalformed         = "malformed"
	OutcomeInconsistent      = "inconsistent"
	OutcomeMissingDependency = "missing_dependency"
)

var (
	// DiffsProcessed counts processed mnlistdiff messages by outcome
	DiffsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diffs_processed_total",
			Help:      "Total number of masternode list diffs processed",
		},
		[]string{"outcome"},
	)

	// DiffDuration measures how long a diff takes to decode, merge and verify
	DiffDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diff_duration_seconds",
			Help:      "Masternode list diff processing latency in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// QuorumsValidated counts quorum validations by resulting status
	QuorumsValidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quorums_validated_total",
			Help:      "Total number of quorum commitments validated",
		},
		[]string{"status"},
	)

	// ListHeight tracks the height of the latest masternode list
	ListHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "list_height",
			Help:      "Height of the latest masternode list",
		},
	)

	// ListEntries tracks the number of masternodes in the latest list
	ListEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "list_entries",
			Help:      "Number of masternodes in the latest list",
		},
		[]string{"kind"}, // all/valid
	)

	// CachedLists tracks the masternode lists held in memory
	CachedLists = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_lists",
			Help:      "Number of masternode lists held by the retrieval cache",
		},
	)

	// Retrievals tracks pending list retrievals by state
	Retrievals = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retrievals",
			Help:      "Number of masternode list retrievals by state",
		},
		[]string{"state"}, // queued/inflight/failed
	)

	// RetrievalTimeouts counts retrievals requeued after timing out
	RetrievalTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_timeouts_total",
			Help:      "Total number of masternode list retrievals that timed out",
		},
	)

	// CacheHits counts lookups served from memory
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of masternode list cache hits",
		},
	)

	// CacheMisses counts lookups not served from memory
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of masternode list cache misses",
		},
	)

	// PeerBanScore tracks accumulated misbehavior per peer
	PeerBanScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_ban_score",
			Help:      "Accumulated misbehavior score of a peer",
		},
		[]string{"peer"},
	)
)

// RecordDiff records the outcome and latency of a processed diff
func RecordDiff(outcome string, seconds float64) {
	DiffsProcessed.WithLabelValues(outcome).Inc()
	DiffDuration.Observe(seconds)
}

// RecordList records the latest masternode list
func RecordList(height uint32, entries, validEntries int) {
	ListHeight.Set(float64(height))
	ListEntries.WithLabelValues("all").Set(float64(entries))
	ListEntries.WithLabelValues("valid").Set(float64(validEntries))
}

// RecordRetrievals records the retrieval cache state
func RecordRetrievals(lists, queued, inFlight, failed int) {
	CachedLists.Set(float64(lists))
	Retrievals.WithLabelValues("queued").Set(float64(queued))
	Retrievals.WithLabelValues("inflight").Set(float64(inFlight))
	Retrievals.WithLabelValues("failed").Set(float64(failed))
}
