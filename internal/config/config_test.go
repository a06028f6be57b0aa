package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:2379"}, cfg.EtcdEndpoints)
	assert.Equal(t, 1, cfg.Scaling.MinInstances)
	assert.Equal(t, 10, cfg.Scaling.MaxInstances)
	assert.Equal(t, 30, cfg.Scaling.CooldownSeconds)
	assert.Equal(t, 150, cfg.Ring.VirtualNodes)
	assert.Equal(t, "alpine:latest", cfg.Runtime.Image)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "surge.yaml")
	data := []byte(`
etcd_endpoints: ["etcd-1:2379", "etcd-2:2379"]
scaling:
  max_instances: 20
  cooldown_seconds: 60
ring:
  virtual_nodes: 64
runtime:
  image: "surge/worker:1.2"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"etcd-1:2379", "etcd-2:2379"}, cfg.EtcdEndpoints)
	assert.Equal(t, 20, cfg.Scaling.MaxInstances)
	assert.Equal(t, 60, cfg.Scaling.CooldownSeconds)
	assert.Equal(t, 1, cfg.Scaling.MinInstances, "unset values keep defaults")
	assert.Equal(t, 64, cfg.Ring.VirtualNodes)
	assert.Equal(t, "surge/worker:1.2", cfg.Runtime.Image)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
