package monitor

import (
	"testing"

	"surge/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLevelQueueThresholds(t *testing.T) {
	cases := []struct {
		queue int
		want  model.PressureLevel
	}{
		{0, model.LevelLow},
		{499, model.LevelLow},
		{500, model.LevelMedium},
		{1199, model.LevelMedium},
		{1200, model.LevelHigh},
		{2000, model.LevelCritical},
		{9999, model.LevelCritical},
	}
	for _, tc := range cases {
		m := New(zaptest.NewLogger(t))
		m.UpdateQueueSize(tc.queue)
		assert.Equal(t, tc.want, m.Level(), "queue=%d", tc.queue)
	}
}

func TestLevelRateIsInverse(t *testing.T) {
	cases := []struct {
		rate float64
		want model.PressureLevel
	}{
		{150, model.LevelLow},
		{100, model.LevelLow},
		{60, model.LevelMedium},
		{25, model.LevelHigh},
		{5, model.LevelCritical},
	}
	for _, tc := range cases {
		m := New(zaptest.NewLogger(t))
		m.UpdateQueueSize(0)
		m.UpdateProcessingRate(tc.rate)
		assert.Equal(t, tc.want, m.Level(), "rate=%.0f", tc.rate)
	}
}

func TestLevelZeroRateDefaultsLow(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	m.UpdateQueueSize(10)
	// No throughput recorded: the rate signal must not count as
	// critical just because it is below every threshold.
	assert.Equal(t, model.LevelLow, m.Level())
}

func TestLevelMemoryThresholds(t *testing.T) {
	cases := []struct {
		mem  float64
		want model.PressureLevel
	}{
		{10, model.LevelLow},
		{60, model.LevelMedium},
		{80, model.LevelHigh},
		{95, model.LevelCritical},
	}
	for _, tc := range cases {
		m := New(zaptest.NewLogger(t))
		m.UpdateQueueSize(0)
		m.UpdateMemoryUsage(tc.mem)
		assert.Equal(t, tc.want, m.Level(), "mem=%.0f", tc.mem)
	}
}

func TestLevelWorstSignalWins(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	m.UpdateQueueSize(2500)
	m.UpdateProcessingRate(200)
	m.UpdateMemoryUsage(10)
	assert.Equal(t, model.LevelCritical, m.Level(), "queue signal dominates")

	m = New(zaptest.NewLogger(t))
	m.UpdateQueueSize(100)
	m.UpdateProcessingRate(200)
	m.UpdateMemoryUsage(85)
	assert.Equal(t, model.LevelHigh, m.Level(), "memory signal dominates")
}

func TestLevelNoSamples(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	assert.Equal(t, model.LevelLow, m.Level())
}

func TestRefinementsDoNotStartNewSamples(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	m.UpdateQueueSize(100)
	m.UpdateProcessingRate(10)
	m.UpdateMemoryUsage(50)

	m.mu.Lock()
	n := len(m.samples)
	m.mu.Unlock()
	require.Equal(t, 1, n)

	// Rate below 20 makes the refined sample critical.
	assert.Equal(t, model.LevelCritical, m.Level())
}

func TestRefinementBeforeAnySample(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	m.UpdateProcessingRate(5)
	assert.Equal(t, model.LevelCritical, m.Level())
}

func TestQueueSampleCarriesForwardRefinements(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	m.UpdateQueueSize(100)
	m.UpdateMemoryUsage(95)
	m.UpdateQueueSize(120)
	// Memory reading survives into the new sample until refreshed.
	assert.Equal(t, model.LevelCritical, m.Level())
}

func TestHistoryIsBounded(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	for i := 0; i < 50; i++ {
		m.UpdateQueueSize(i)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.samples, maxHistory)
	assert.Equal(t, 49, m.samples[len(m.samples)-1].QueueSize)
}

func TestTrendIncreasingHigh(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	for _, q := range []int{100, 150, 300, 800} {
		m.UpdateQueueSize(q)
	}
	trend := m.Trend()
	assert.Equal(t, model.TrendIncreasing, trend.Direction)
	assert.Equal(t, model.UrgencyHigh, trend.Severity)
}

func TestTrendDecreasingMedium(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	for _, q := range []int{800, 600, 500} {
		m.UpdateQueueSize(q)
	}
	trend := m.Trend()
	assert.Equal(t, model.TrendDecreasing, trend.Direction)
	assert.Equal(t, model.UrgencyMedium, trend.Severity)
}

func TestTrendStableAtZeroSum(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	for _, q := range []int{100, 200, 100} {
		m.UpdateQueueSize(q)
	}
	trend := m.Trend()
	assert.Equal(t, model.TrendStable, trend.Direction)
	assert.Equal(t, model.UrgencyLow, trend.Severity)
}

func TestTrendTooFewSamples(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	trend := m.Trend()
	assert.Equal(t, model.TrendStable, trend.Direction)
	assert.Equal(t, model.UrgencyLow, trend.Severity)

	m.UpdateQueueSize(500)
	trend = m.Trend()
	assert.Equal(t, model.TrendStable, trend.Direction)
}

func TestTrendOnlyConsidersWindow(t *testing.T) {
	m := New(zaptest.NewLogger(t))
	// A large old spike followed by five flat samples.
	for _, q := range []int{0, 5000, 300, 300, 300, 300, 300} {
		m.UpdateQueueSize(q)
	}
	trend := m.Trend()
	assert.Equal(t, model.TrendStable, trend.Direction)
}

func TestRecommendTable(t *testing.T) {
	cases := []struct {
		queue   int
		action  model.ScalingAction
		urgency model.Urgency
		target  int
	}{
		{2500, model.ActionScaleUp, model.UrgencyCritical, 3},
		{1500, model.ActionScaleUp, model.UrgencyHigh, 2},
		{600, model.ActionNone, model.UrgencyMedium, 1},
		{10, model.ActionNone, model.UrgencyLow, 1},
	}
	for _, tc := range cases {
		m := New(zaptest.NewLogger(t))
		m.UpdateQueueSize(tc.queue)
		rec := m.Recommend()
		assert.Equal(t, tc.action, rec.Action, "queue=%d", tc.queue)
		assert.Equal(t, tc.urgency, rec.Urgency, "queue=%d", tc.queue)
		assert.Equal(t, tc.target, rec.TargetInstances, "queue=%d", tc.queue)
	}
}
