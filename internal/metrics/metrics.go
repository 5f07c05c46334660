package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rnd_matcher"

// Collector holds the match run metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	Runs              *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	ProgramsEvaluated prometheus.Counter
	GateBlocks        *prometheus.CounterVec
	Matches           prometheus.Counter
	MatchScore        prometheus.Histogram
	StageDropped      *prometheus.CounterVec
	PhrasingFailures  prometheus.Counter
	CacheLookups      *prometheus.CounterVec
}

// New registers the collectors on reg, or on the default registerer when reg
// is nil.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_runs_total",
			Help:      "Match runs by scoring mode and outcome",
		}, []string{"mode", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_run_duration_seconds",
			Help:      "Wall time of a match run",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"mode"}),
		ProgramsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "programs_evaluated_total",
			Help:      "Programs passed through the eligibility gate",
		}),
		GateBlocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_blocks_total",
			Help:      "Eligibility block reasons raised",
		}, []string{"reason"}),
		Matches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Matches returned to callers",
		}),
		MatchScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_score",
			Help:      "Total score of returned matches",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}),
		StageDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_dropped_total",
			Help:      "Programs dropped by each pipeline stage",
		}, []string{"stage"}),
		PhrasingFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phrasing_failures_total",
			Help:      "Explanations that kept template phrasing because the AI call failed",
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Match cache lookups by result",
		}, []string{"result"}),
	}
}

func (c *Collector) ObserveRun(mode, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(mode, status).Inc()
	c.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (c *Collector) ObserveGate(evaluated int, reasons []string) {
	if c == nil {
		return
	}
	c.ProgramsEvaluated.Add(float64(evaluated))
	for _, reason := range reasons {
		c.GateBlocks.WithLabelValues(reason).Inc()
	}
}

func (c *Collector) ObserveStage(stage string, dropped int) {
	if c == nil || dropped <= 0 {
		return
	}
	c.StageDropped.WithLabelValues(stage).Add(float64(dropped))
}

func (c *Collector) ObserveMatch(score float64) {
	if c == nil {
		return
	}
	c.Matches.Inc()
	c.MatchScore.Observe(score)
}

func (c *Collector) PhrasingFailed() {
	if c == nil {
		return
	}
	c.PhrasingFailures.Inc()
}

// ObserveCache records a cache lookup. hit is ignored when err is set.
func (c *Collector) ObserveCache(hit bool, err error) {
	if c == nil {
		return
	}
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case hit:
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}
