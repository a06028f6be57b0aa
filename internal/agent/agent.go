package agent

import (
	"context"
	"os"
	"runtime"
	"time"

	"surge/pkg/model"
	"surge/pkg/retry"
	"surge/pkg/store"

	"go.uber.org/zap"
)

// Sampler supplies the current load signals of the workload.
type Sampler interface {
	Sample() model.Telemetry
}

// Agent publishes load telemetry to the registry on a heartbeat
// ticker. One agent runs next to each workload process (or one per
// scaling domain when the queue is shared).
type Agent struct {
	source   string
	registry store.Registry
	sampler  Sampler
	interval time.Duration
	logger   *zap.Logger
}

func New(logger *zap.Logger, registry store.Registry, sampler Sampler, source string, interval time.Duration) *Agent {
	if source == "" {
		source, _ = os.Hostname()
		if source == "" {
			source = "surge-agent"
		}
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Agent{
		source:   source,
		registry: registry,
		sampler:  sampler,
		interval: interval,
		logger:   logger,
	}
}

// Run publishes until ctx is cancelled. The first report goes out
// immediately so a fresh pool is visible without waiting a full tick.
func (a *Agent) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.report(ctx)
	for {
		select {
		case <-ticker.C:
			a.report(ctx)
		case <-ctx.Done():
			a.logger.Info("agent stopped", zap.String("source", a.source))
			return
		}
	}
}

func (a *Agent) report(ctx context.Context) {
	t := a.sampler.Sample()
	t.Source = a.source
	t.ReportedAt = time.Now().Unix()

	cfg := retry.Config{
		MaxRetries:    3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		Multiplier:    2.0,
		JitterEnabled: true,
	}
	err := retry.WithBackoff(ctx, cfg, a.logger, "publish telemetry", func() error {
		callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return a.registry.PublishTelemetry(callCtx, &t)
	})
	if err != nil {
		a.logger.Warn("telemetry heartbeat dropped", zap.Error(err))
	}
}

// ProcessSampler reports this process's own signals. Queue depth and
// throughput come from caller-provided gauges; memory usage is heap
// allocation measured against a configured limit.
type ProcessSampler struct {
	QueueLen    func() int
	Rate        func() float64
	MemoryLimit uint64 // bytes
}

func (p *ProcessSampler) Sample() model.Telemetry {
	var t model.Telemetry
	if p.QueueLen != nil {
		t.QueueSize = p.QueueLen()
	}
	if p.Rate != nil {
		t.ProcessingRate = p.Rate()
	}
	if p.MemoryLimit > 0 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		t.MemoryUsage = float64(ms.HeapAlloc) / float64(p.MemoryLimit) * 100
		if t.MemoryUsage > 100 {
			t.MemoryUsage = 100
		}
	}
	return t
}
