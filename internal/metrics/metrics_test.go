package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveRun("standard", "ok", 20*time.Millisecond)
	c.ObserveRun("standard", "ok", 10*time.Millisecond)
	c.ObserveGate(5, []string{"DESIGNATED_PROJECT", "DESIGNATED_PROJECT", "SME_SCALE_BLOCK"})
	c.ObserveStage("top_k", 2)
	c.ObserveStage("min_score", 0)
	c.ObserveMatch(82.8)
	c.PhrasingFailed()
	c.ObserveCache(true, nil)
	c.ObserveCache(true, errors.New("dial"))
	c.ObserveCache(false, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Runs.WithLabelValues("standard", "ok")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.ProgramsEvaluated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.GateBlocks.WithLabelValues("DESIGNATED_PROJECT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GateBlocks.WithLabelValues("SME_SCALE_BLOCK")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.StageDropped.WithLabelValues("top_k")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.StageDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Matches))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PhrasingFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheLookups.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheLookups.WithLabelValues("miss")))

	count, err := testutil.GatherAndCount(reg, "rnd_matcher_match_score")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveRun("standard", "ok", time.Second)
	c.ObserveGate(1, []string{"X"})
	c.ObserveStage("x", 1)
	c.ObserveMatch(1)
	c.PhrasingFailed()
	c.ObserveCache(true, nil)
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
