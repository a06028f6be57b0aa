package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const managedLabel = "surge.managed"

// DockerRuntime is the instance lifecycle collaborator backed by the
// local docker daemon. Every call is bounded by the caller's context
// plus the configured grace period; the coordinator never retries
// these, so the runtime owns its own timeouts.
type DockerRuntime struct {
	cli    *client.Client
	image  string
	cmd    []string
	grace  time.Duration
	logger *zap.Logger
}

func NewDockerRuntime(logger *zap.Logger, image string, cmd []string, grace time.Duration) (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithVersion("1.44"))
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	if grace <= 0 {
		grace = 30 * time.Second
	}
	return &DockerRuntime{
		cli:    cli,
		image:  image,
		cmd:    cmd,
		grace:  grace,
		logger: logger,
	}, nil
}

// StartInstance creates and starts one worker container. The returned
// instance ID is the container ID.
func (r *DockerRuntime) StartInstance(ctx context.Context) (string, error) {
	name := "surge-" + uuid.NewString()[:8]

	resp, err := r.cli.ContainerCreate(ctx, &container.Config{
		Image:  r.image,
		Cmd:    r.cmd,
		Labels: map[string]string{managedLabel: "true"},
	}, nil, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", name, err)
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return "", fmt.Errorf("start container %s: %w", name, err)
	}

	r.logger.Info("container started",
		zap.String("name", name),
		zap.String("container", resp.ID[:12]))
	return resp.ID, nil
}

// StopInstance stops the container within the grace period and removes
// it.
func (r *DockerRuntime) StopInstance(ctx context.Context, id string) error {
	timeout := int(r.grace.Seconds())
	if err := r.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stop container %s: %w", id, err)
	}
	if err := r.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{}); err != nil {
		return fmt.Errorf("remove container %s: %w", id, err)
	}
	return nil
}

// SendShutdownSignal asks the container to drain with SIGTERM.
func (r *DockerRuntime) SendShutdownSignal(ctx context.Context, id string) error {
	return r.cli.ContainerKill(ctx, id, "SIGTERM")
}

// WaitForGracefulShutdown blocks until the container exits or the
// grace period lapses. A lapsed wait reports false so the caller falls
// back to a forced stop.
func (r *DockerRuntime) WaitForGracefulShutdown(ctx context.Context, id string) bool {
	waitCtx, cancel := context.WithTimeout(ctx, r.grace)
	defer cancel()

	statusCh, errCh := r.cli.ContainerWait(waitCtx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			r.logger.Debug("graceful wait ended early",
				zap.String("container", id), zap.Error(err))
			return false
		}
		return true
	case <-statusCh:
		return true
	}
}

// ForceStop removes the container immediately, running or not.
func (r *DockerRuntime) ForceStop(ctx context.Context, id string) error {
	if err := r.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("force remove container %s: %w", id, err)
	}
	r.logger.Warn("container force removed", zap.String("container", id))
	return nil
}
