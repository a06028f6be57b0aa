package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"surge/internal/agent"
	"surge/internal/config"
	"surge/pkg/logging"
	"surge/pkg/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var cfgFile string

	root := &cobra.Command{
		Use:          "surge-agent",
		Short:        "Telemetry heartbeat publisher for a surge scaling domain",
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

	sampler := &agent.ProcessSampler{
		MemoryLimit: uint64(cfg.Agent.MemoryLimitMB) * 1024 * 1024,
	}
	if cfg.Agent.QueueFile != "" {
		sampler.QueueLen = fileGauge(logger, cfg.Agent.QueueFile)
	}

	a := agent.New(logger, registry, sampler, cfg.Agent.Source, cfg.AgentInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down agent")
	return nil
}

// fileGauge reads the queue depth from a file holding a plain integer,
// the hand-off format used by workloads that cannot link the agent in.
func fileGauge(logger *zap.Logger, path string) func() int {
	return func() int {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("queue gauge unreadable", zap.String("path", path), zap.Error(err))
			return 0
		}
		n, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			logger.Warn("queue gauge malformed", zap.String("path", path), zap.Error(err))
			return 0
		}
		return n
	}
}
