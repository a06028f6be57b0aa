package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full daemon/agent configuration. Values come from an
// optional surge.yaml plus SURGE_-prefixed environment variables.
type Config struct {
	EtcdEndpoints []string      `mapstructure:"etcd_endpoints"`
	Scaling       ScalingConfig `mapstructure:"scaling"`
	Ring          RingConfig    `mapstructure:"ring"`
	Runtime       RuntimeConfig `mapstructure:"runtime"`
	Agent         AgentConfig   `mapstructure:"agent"`
}

// ScalingConfig bounds the coordinator.
type ScalingConfig struct {
	MinInstances    int `mapstructure:"min_instances"`
	MaxInstances    int `mapstructure:"max_instances"`
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
	// EvaluateSeconds is the control-loop tick interval.
	EvaluateSeconds int `mapstructure:"evaluate_seconds"`
}

type RingConfig struct {
	// VirtualNodes is the ring fan-out per instance.
	VirtualNodes int `mapstructure:"virtual_nodes"`
}

// RuntimeConfig describes the worker containers the daemon manages.
type RuntimeConfig struct {
	Image              string   `mapstructure:"image"`
	Command            []string `mapstructure:"command"`
	GracePeriodSeconds int      `mapstructure:"grace_period_seconds"`
}

// AgentConfig controls the telemetry heartbeat publisher.
type AgentConfig struct {
	Source          string `mapstructure:"source"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	MemoryLimitMB   int    `mapstructure:"memory_limit_mb"`
	// QueueFile, when set, is read each sample for the current queue
	// depth (a plain integer).
	QueueFile string `mapstructure:"queue_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("etcd_endpoints", []string{"localhost:2379"})
	v.SetDefault("scaling.min_instances", 1)
	v.SetDefault("scaling.max_instances", 10)
	v.SetDefault("scaling.cooldown_seconds", 30)
	v.SetDefault("scaling.evaluate_seconds", 10)
	v.SetDefault("ring.virtual_nodes", 150)
	v.SetDefault("runtime.image", "alpine:latest")
	v.SetDefault("runtime.command", []string{"sleep", "infinity"})
	v.SetDefault("runtime.grace_period_seconds", 30)
	v.SetDefault("agent.interval_seconds", 3)
	v.SetDefault("agent.memory_limit_mb", 512)
}

// Load reads configuration. An explicit path must exist; otherwise a
// surge.yaml in the working directory is optional.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SURGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("surge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Scaling.CooldownSeconds) * time.Second
}

func (c *Config) EvaluateInterval() time.Duration {
	return time.Duration(c.Scaling.EvaluateSeconds) * time.Second
}

func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Runtime.GracePeriodSeconds) * time.Second
}

func (c *Config) AgentInterval() time.Duration {
	return time.Duration(c.Agent.IntervalSeconds) * time.Second
}
