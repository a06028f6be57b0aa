package model

// PressureLevel classifies load severity. The values are ordered, so
// the worst of several independent signals can be taken with MaxLevel.
type PressureLevel int

const (
	LevelLow PressureLevel = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l PressureLevel) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MaxLevel returns the more severe of two levels.
func MaxLevel(a, b PressureLevel) PressureLevel {
	if b > a {
		return b
	}
	return a
}

// Urgency grades how quickly a recommendation should be acted on. It
// shares the low/medium/high/critical vocabulary with PressureLevel
// and is also used for trend severity.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyMedium:
		return "medium"
	case UrgencyHigh:
		return "high"
	case UrgencyCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ScalingAction is what the monitor recommends doing with the pool.
type ScalingAction string

const (
	ActionNone      ScalingAction = "none"
	ActionScaleUp   ScalingAction = "scale_up"
	ActionScaleDown ScalingAction = "scale_down"
)

type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// PressureSample is one snapshot of the three load signals. A new
// sample is appended whenever the queue depth changes; rate and memory
// updates refine the most recent sample in place.
type PressureSample struct {
	QueueSize      int     `json:"queue_size"`
	ProcessingRate float64 `json:"processing_rate"`
	MemoryUsage    float64 `json:"memory_usage"`
	Sequence       uint64  `json:"sequence"`
}

// Trend is the short-term queue movement over the recent sample window.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Severity  Urgency        `json:"severity"`
}

// Recommendation is the monitor's verdict for one evaluation. It is
// produced fresh each time and never mutated afterwards.
type Recommendation struct {
	Action          ScalingAction `json:"action"`
	Urgency         Urgency       `json:"urgency"`
	TargetInstances int           `json:"target_instances"`
	Level           PressureLevel `json:"level"`
}
