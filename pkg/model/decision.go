package model

type ScalingDirection string

const (
	DirectionUp   ScalingDirection = "up"
	DirectionDown ScalingDirection = "down"
)

// ScalingDecision is the coordinator's verdict on a recommendation
// after bounds clamping and cooldown policy have been applied. A
// rejected decision carries the reason; it is not an error.
type ScalingDecision struct {
	ShouldScale      bool             `json:"should_scale"`
	Direction        ScalingDirection `json:"direction,omitempty"`
	CurrentInstances int              `json:"current_instances"`
	TargetInstances  int              `json:"target_instances"`
	Urgency          Urgency          `json:"urgency"`
	Reason           string           `json:"reason"`
}

// Delta is the signed instance count change: positive for scale-up.
func (d *ScalingDecision) Delta() int {
	return d.TargetInstances - d.CurrentInstances
}
