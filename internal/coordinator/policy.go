package coordinator

import (
	"fmt"

	"surge/pkg/model"
)

// Decision reasons for policy rejections.
const (
	ReasonCooldown = "cooldown"
	ReasonNoAction = "no_action"
	ReasonAtTarget = "already_at_target"
)

// Decide applies bounds and cooldown policy to a recommendation. A
// rejection is a normal decision with a reason, never an error.
// Critical urgency bypasses the cooldown: under critical pressure
// availability wins over flap suppression.
func (c *Coordinator) Decide(current int, rec model.Recommendation) model.ScalingDecision {
	target := clamp(rec.TargetInstances, c.cfg.MinInstances, c.cfg.MaxInstances)
	d := model.ScalingDecision{
		CurrentInstances: current,
		TargetInstances:  target,
		Urgency:          rec.Urgency,
	}

	c.mu.Lock()
	sinceLast := c.now().Sub(c.lastScaling)
	c.mu.Unlock()

	if sinceLast < c.cfg.Cooldown && rec.Urgency != model.UrgencyCritical {
		d.Reason = ReasonCooldown
		return d
	}

	if rec.Action == model.ActionNone {
		d.Reason = ReasonNoAction
		return d
	}

	if target == current {
		d.Reason = ReasonAtTarget
		return d
	}

	d.ShouldScale = true
	if target > current {
		d.Direction = model.DirectionUp
	} else {
		d.Direction = model.DirectionDown
	}
	d.Reason = fmt.Sprintf("%s at %s urgency", rec.Action, rec.Urgency)
	return d
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
