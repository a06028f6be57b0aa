package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"surge/internal/config"
	"surge/internal/coordinator"
	"surge/internal/monitor"
	"surge/internal/runtime"
	"surge/pkg/logging"
	"surge/pkg/metrics"
	"surge/pkg/ring"
	"surge/pkg/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var cfgFile string

	root := &cobra.Command{
		Use:          "surged",
		Short:        "Backpressure-driven scaling control daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgFile)
		},
	}
	root.Flags().StringVarP(&cfgFile, "config", "c", "", "path to config file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfgFile string) error {
	logger, err := logging.New()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	registry, err := store.NewEtcdRegistry(logger, cfg.EtcdEndpoints)
	if err != nil {
		return fmt.Errorf("connect to etcd: %w", err)
	}
	defer func() { _ = registry.Close() }()
	logger.Info("connected to etcd", zap.Strings("endpoints", cfg.EtcdEndpoints))

	rt, err := runtime.NewDockerRuntime(logger, cfg.Runtime.Image, cfg.Runtime.Command, cfg.GracePeriod())
	if err != nil {
		return err
	}

	rg := ring.New(cfg.Ring.VirtualNodes)
	mon := monitor.New(logger)
	sink := metrics.NewLogSink(logger)
	coord := coordinator.New(logger, coordinator.Config{
		MinInstances: cfg.Scaling.MinInstances,
		MaxInstances: cfg.Scaling.MaxInstances,
		Cooldown:     cfg.Cooldown(),
	}, rt, registry, rg, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Instances that survived a previous daemon run stay managed.
	seedCtx, seedCancel := context.WithTimeout(ctx, 5*time.Second)
	existing, err := registry.ListInstances(seedCtx)
	seedCancel()
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}
	ids := make([]string, 0, len(existing))
	for _, inst := range existing {
		ids = append(ids, inst.ID)
	}
	coord.Adopt(ids)
	logger.Info("adopted existing instances", zap.Int("count", len(ids)))

	go feedTelemetry(ctx, registry, mon)
	go syncMembership(ctx, registry, rg)
	go controlLoop(ctx, logger, cfg.EvaluateInterval(), mon, coord)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	return nil
}

// controlLoop is the single evaluation goroutine for this scaling
// domain; ticks never overlap, which keeps the cooldown guard honest.
func controlLoop(ctx context.Context, logger *zap.Logger, interval time.Duration, mon *monitor.Monitor, coord *coordinator.Coordinator) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rec := mon.Recommend()
			trend := mon.Trend()
			decision := coord.Decide(coord.InstanceCount(), rec)

			logger.Debug("evaluation tick",
				zap.String("level", rec.Level.String()),
				zap.String("trend", string(trend.Direction)),
				zap.Bool("should_scale", decision.ShouldScale),
				zap.String("reason", decision.Reason))

			execCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			if err := coord.Execute(execCtx, decision); err != nil {
				logger.Error("scaling action failed", zap.Error(err))
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// feedTelemetry turns registry telemetry updates into monitor samples.
// Each update opens a new sample; rate and memory refine it.
func feedTelemetry(ctx context.Context, registry store.Registry, mon *monitor.Monitor) {
	for t := range registry.WatchTelemetry(ctx) {
		mon.UpdateQueueSize(t.QueueSize)
		if t.ProcessingRate > 0 {
			mon.UpdateProcessingRate(t.ProcessingRate)
		}
		if t.MemoryUsage > 0 {
			mon.UpdateMemoryUsage(t.MemoryUsage)
		}
	}
}

// syncMembership mirrors confirmed registry membership into the ring.
// Ring ops are idempotent, so overlap with the coordinator's own
// updates is harmless.
func syncMembership(ctx context.Context, registry store.Registry, rg *ring.Ring) {
	for ev := range registry.WatchInstances(ctx) {
		switch ev.Type {
		case store.InstancePut:
			rg.AddNode(ev.Instance.ID)
		case store.InstanceDelete:
			rg.RemoveNode(ev.Instance.ID)
		}
	}
}
