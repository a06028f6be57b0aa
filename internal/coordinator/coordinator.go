package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"surge/pkg/metrics"
	"surge/pkg/model"
	"surge/pkg/ring"

	"go.uber.org/zap"
)

// Lifecycle starts and stops worker instances. Calls may block on the
// runtime; implementations own their timeouts, the coordinator does
// not retry them.
type Lifecycle interface {
	StartInstance(ctx context.Context) (string, error)
	StopInstance(ctx context.Context, id string) error
	SendShutdownSignal(ctx context.Context, id string) error
	WaitForGracefulShutdown(ctx context.Context, id string) bool
	ForceStop(ctx context.Context, id string) error
}

// Balancer is the routing-plane collaborator instances are registered
// with. The registry's etcd implementation satisfies it.
type Balancer interface {
	RegisterInstance(ctx context.Context, id string) error
	DeregisterInstance(ctx context.Context, id string) error
}

type Config struct {
	MinInstances int
	MaxInstances int
	Cooldown     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinInstances <= 0 {
		c.MinInstances = 1
	}
	if c.MaxInstances <= 0 {
		c.MaxInstances = 10
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	return c
}

type Option func(*Coordinator)

// WithVictimSelector overrides which instances are drained on
// scale-down. The selector receives the instances in start order and
// returns n of them.
func WithVictimSelector(f func(instances []string, n int) []string) Option {
	return func(c *Coordinator) { c.selectVictims = f }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// Coordinator turns recommendations into bounded, audited scaling
// actions. One coordinator owns one scaling domain; Decide and Execute
// are expected to run from a single control loop, never concurrently
// for the same pool.
type Coordinator struct {
	cfg           Config
	lifecycle     Lifecycle
	balancer      Balancer
	ring          *ring.Ring
	sink          metrics.Sink
	logger        *zap.Logger
	now           func() time.Time
	selectVictims func(instances []string, n int) []string

	mu          sync.Mutex
	instances   []string // start order
	lastScaling time.Time
}

func New(logger *zap.Logger, cfg Config, lc Lifecycle, b Balancer, rg *ring.Ring, sink metrics.Sink, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:           cfg.withDefaults(),
		lifecycle:     lc,
		balancer:      b,
		ring:          rg,
		sink:          sink,
		logger:        logger,
		now:           time.Now,
		selectVictims: newestFirst,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Adopt seeds bookkeeping and ring membership from instances that are
// already registered, typically after a daemon restart.
func (c *Coordinator) Adopt(ids []string) {
	c.mu.Lock()
	c.instances = append(c.instances, ids...)
	c.mu.Unlock()
	for _, id := range ids {
		c.ring.AddNode(id)
	}
}

// InstanceCount returns the number of instances under management.
func (c *Coordinator) InstanceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances)
}

// ShutdownInstance drains one instance: graceful signal plus bounded
// wait, with forced termination as the fallback. The caller only sees
// failure if the instance could not be made to go away at all; which
// path retired it is reported to the sink.
func (c *Coordinator) ShutdownInstance(ctx context.Context, id string) error {
	if err := c.lifecycle.SendShutdownSignal(ctx, id); err != nil {
		c.logger.Warn("shutdown signal failed, will rely on forced stop",
			zap.String("instance", id), zap.Error(err))
	}

	graceful := c.lifecycle.WaitForGracefulShutdown(ctx, id)
	if !graceful {
		if err := c.lifecycle.ForceStop(ctx, id); err != nil {
			return fmt.Errorf("force stop instance %s: %w", id, err)
		}
	}

	c.sink.EmitEvent("instance_shutdown", map[string]any{
		"instance": id,
		"graceful": graceful,
	})
	return nil
}

// newestFirst is the default victim selector: drain the most recently
// started instances first.
func newestFirst(instances []string, n int) []string {
	if n > len(instances) {
		n = len(instances)
	}
	out := make([]string, 0, n)
	for i := len(instances) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, instances[i])
	}
	return out
}

func (c *Coordinator) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, inst := range c.instances {
		if inst == id {
			c.instances = append(c.instances[:i], c.instances[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) emitDecision(d model.ScalingDecision, err error) {
	fields := map[string]any{
		"should_scale":      d.ShouldScale,
		"direction":         string(d.Direction),
		"current_instances": d.CurrentInstances,
		"target_instances":  d.TargetInstances,
		"urgency":           d.Urgency.String(),
		"reason":            d.Reason,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.sink.EmitEvent("scaling_decision", fields)
}
