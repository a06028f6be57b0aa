package monitor

import (
	"sync"

	"surge/pkg/model"

	"go.uber.org/zap"
)

const (
	maxHistory  = 10 // rolling samples kept for trend analysis
	trendWindow = 5
)

// Queue depth thresholds (count).
const (
	queueCritical = 2000
	queueHigh     = 1200
	queueMedium   = 500
)

// Throughput thresholds (ops/sec). The relationship is inverse: low
// throughput under load means the pool is falling behind.
const (
	rateLow    = 100
	rateMedium = 50
	rateHigh   = 20
)

// Memory utilization thresholds (percent).
const (
	memCritical = 90
	memHigh     = 80
	memMedium   = 60
)

// Trend magnitude thresholds (summed queue deltas).
const (
	trendHigh   = 500
	trendMedium = 100
)

// Monitor converts queue depth, throughput and memory signals into a
// pressure level, a short-term trend and a scaling recommendation.
// Levels are never stored: every call recomputes from the current
// sample, so there is no stale-level state to invalidate.
type Monitor struct {
	logger *zap.Logger

	mu      sync.Mutex
	samples []model.PressureSample
	seq     uint64
}

func New(logger *zap.Logger) *Monitor {
	return &Monitor{logger: logger}
}

// UpdateQueueSize appends a new rolling sample. The previous sample's
// rate and memory readings carry forward until refined.
func (m *Monitor) UpdateQueueSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	s := model.PressureSample{QueueSize: n, Sequence: m.seq}
	if len(m.samples) > 0 {
		last := m.samples[len(m.samples)-1]
		s.ProcessingRate = last.ProcessingRate
		s.MemoryUsage = last.MemoryUsage
	}
	m.samples = append(m.samples, s)
	if len(m.samples) > maxHistory {
		m.samples = m.samples[len(m.samples)-maxHistory:]
	}
}

// UpdateProcessingRate refines the most recent sample. Rate updates
// are treated as a correction of the same instant, not a new sample.
func (m *Monitor) UpdateProcessingRate(r float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.samples) == 0 {
		m.seq++
		m.samples = append(m.samples, model.PressureSample{ProcessingRate: r, Sequence: m.seq})
		return
	}
	m.samples[len(m.samples)-1].ProcessingRate = r
}

// UpdateMemoryUsage refines the most recent sample, like rate updates.
func (m *Monitor) UpdateMemoryUsage(pct float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.samples) == 0 {
		m.seq++
		m.samples = append(m.samples, model.PressureSample{MemoryUsage: pct, Sequence: m.seq})
		return
	}
	m.samples[len(m.samples)-1].MemoryUsage = pct
}

// Level derives the current pressure level: the worst of the three
// independent sub-levels. A single saturated signal is enough.
func (m *Monitor) Level() model.PressureLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levelLocked()
}

func (m *Monitor) levelLocked() model.PressureLevel {
	if len(m.samples) == 0 {
		return model.LevelLow
	}
	cur := m.samples[len(m.samples)-1]
	lvl := queueLevel(cur.QueueSize)
	lvl = model.MaxLevel(lvl, rateLevel(cur.ProcessingRate))
	lvl = model.MaxLevel(lvl, memoryLevel(cur.MemoryUsage))
	return lvl
}

func queueLevel(n int) model.PressureLevel {
	switch {
	case n >= queueCritical:
		return model.LevelCritical
	case n >= queueHigh:
		return model.LevelHigh
	case n >= queueMedium:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

func rateLevel(r float64) model.PressureLevel {
	if r <= 0 {
		// No throughput recorded yet; the signal contributes nothing.
		return model.LevelLow
	}
	switch {
	case r >= rateLow:
		return model.LevelLow
	case r >= rateMedium:
		return model.LevelMedium
	case r >= rateHigh:
		return model.LevelHigh
	default:
		return model.LevelCritical
	}
}

func memoryLevel(pct float64) model.PressureLevel {
	switch {
	case pct >= memCritical:
		return model.LevelCritical
	case pct >= memHigh:
		return model.LevelHigh
	case pct >= memMedium:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

// Trend sums consecutive queue-size deltas over the recent window. It
// is a discrete derivative, deliberately cheap to run on every tick.
func (m *Monitor) Trend() model.Trend {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := model.Trend{Direction: model.TrendStable, Severity: model.UrgencyLow}
	if len(m.samples) < 2 {
		return t
	}

	w := trendWindow
	if len(m.samples) < w {
		w = len(m.samples)
	}
	recent := m.samples[len(m.samples)-w:]

	sum := 0
	for i := 1; i < len(recent); i++ {
		sum += recent[i].QueueSize - recent[i-1].QueueSize
	}

	switch {
	case sum > 0:
		t.Direction = model.TrendIncreasing
	case sum < 0:
		t.Direction = model.TrendDecreasing
	}

	mag := sum
	if mag < 0 {
		mag = -mag
	}
	switch {
	case mag > trendHigh:
		t.Severity = model.UrgencyHigh
	case mag > trendMedium:
		t.Severity = model.UrgencyMedium
	}
	return t
}

// Recommend maps the current level to a recommendation. Medium and low
// pressure recommend no action; scaling down is left to policy above.
func (m *Monitor) Recommend() model.Recommendation {
	m.mu.Lock()
	lvl := m.levelLocked()
	m.mu.Unlock()

	var rec model.Recommendation
	switch lvl {
	case model.LevelCritical:
		rec = model.Recommendation{Action: model.ActionScaleUp, Urgency: model.UrgencyCritical, TargetInstances: 3, Level: lvl}
	case model.LevelHigh:
		rec = model.Recommendation{Action: model.ActionScaleUp, Urgency: model.UrgencyHigh, TargetInstances: 2, Level: lvl}
	case model.LevelMedium:
		rec = model.Recommendation{Action: model.ActionNone, Urgency: model.UrgencyMedium, TargetInstances: 1, Level: lvl}
	default:
		rec = model.Recommendation{Action: model.ActionNone, Urgency: model.UrgencyLow, TargetInstances: 1, Level: lvl}
	}

	m.logger.Debug("pressure evaluated",
		zap.String("level", lvl.String()),
		zap.String("action", string(rec.Action)),
		zap.Int("target_instances", rec.TargetInstances))
	return rec
}
