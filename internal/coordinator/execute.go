package coordinator

import (
	"context"
	"fmt"

	"surge/pkg/model"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Execute carries out a decision. Rejected decisions are a successful
// no-op; every call, no-op or not, emits a scaling_decision event.
func (c *Coordinator) Execute(ctx context.Context, d model.ScalingDecision) error {
	if !d.ShouldScale {
		c.emitDecision(d, nil)
		return nil
	}

	var err error
	switch d.Direction {
	case model.DirectionUp:
		err = c.scaleUp(ctx, d)
	case model.DirectionDown:
		err = c.scaleDown(ctx, d)
	default:
		err = fmt.Errorf("unknown scaling direction %q", d.Direction)
	}
	c.emitDecision(d, err)
	return err
}

// scaleUp starts and registers instances one at a time. Sequencing
// keeps the failure boundary simple: on any failure, the instances
// registered so far in this batch form a well-defined prefix that is
// rolled back before the error is surfaced.
func (c *Coordinator) scaleUp(ctx context.Context, d model.ScalingDecision) error {
	var registered []string

	for i := 0; i < d.Delta(); i++ {
		id, err := c.lifecycle.StartInstance(ctx)
		if err != nil {
			c.rollback(ctx, registered)
			return fmt.Errorf("start instance: %w", err)
		}

		if err := c.balancer.RegisterInstance(ctx, id); err != nil {
			// The just-started instance never entered the balancer, so
			// only the earlier prefix needs to come back out.
			c.rollback(ctx, registered)
			return fmt.Errorf("register instance %s: %w", id, err)
		}

		// Membership follows confirmed registration, never speculation.
		c.ring.AddNode(id)
		registered = append(registered, id)
		c.logger.Info("instance started and registered", zap.String("instance", id))
	}

	c.mu.Lock()
	c.instances = append(c.instances, registered...)
	c.lastScaling = c.now()
	c.mu.Unlock()
	return nil
}

// rollback pulls every instance registered in this batch back out of
// the balancer. Cleanup failures are swallowed: escalating them would
// mask the primary failure. An unregistered stray container is
// acceptable collateral; an instance still receiving traffic is not.
func (c *Coordinator) rollback(ctx context.Context, registered []string) {
	var errs error
	for _, id := range registered {
		c.ring.RemoveNode(id)
		if err := c.balancer.DeregisterInstance(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deregister %s: %w", id, err))
		}
	}
	if errs != nil {
		c.logger.Warn("scale-up rollback incomplete", zap.Error(errs))
		c.sink.EmitEvent("rollback_failed", map[string]any{"error": errs.Error()})
	}
}

// scaleDown drains instances: deregister first so no new work arrives,
// then the two-phase shutdown. Nothing is created here, so a failed
// deregistration is surfaced directly with no rollback.
func (c *Coordinator) scaleDown(ctx context.Context, d model.ScalingDecision) error {
	n := -d.Delta()

	c.mu.Lock()
	victims := c.selectVictims(append([]string(nil), c.instances...), n)
	c.mu.Unlock()

	for _, id := range victims {
		if err := c.balancer.DeregisterInstance(ctx, id); err != nil {
			return fmt.Errorf("deregister instance %s: %w", id, err)
		}
		c.ring.RemoveNode(id)
		c.forget(id)

		if err := c.ShutdownInstance(ctx, id); err != nil {
			return err
		}
		c.logger.Info("instance drained", zap.String("instance", id))
	}

	c.mu.Lock()
	c.lastScaling = c.now()
	c.mu.Unlock()
	return nil
}
