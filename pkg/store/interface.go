package store

import (
	"context"

	"surge/pkg/model"
)

// InstanceEventType tags a membership change seen on the watch stream.
type InstanceEventType int

const (
	InstancePut InstanceEventType = iota
	InstanceDelete
)

// InstanceEvent is one membership change. For deletes only the
// instance ID is populated.
type InstanceEvent struct {
	Type     InstanceEventType
	Instance *model.Instance
}

// Registry is the routing-plane collaborator: the authoritative set of
// registered worker instances plus the telemetry feed published by
// worker agents. Any implementation can be injected into the
// coordinator and the control daemon.
type Registry interface {
	// RegisterInstance makes an instance eligible for routing.
	RegisterInstance(ctx context.Context, id string) error

	// DeregisterInstance removes an instance from routing. It must be
	// called before the instance is terminated.
	DeregisterInstance(ctx context.Context, id string) error

	// ListInstances returns the currently registered instances.
	ListInstances(ctx context.Context) ([]*model.Instance, error)

	// WatchInstances streams membership changes until ctx is done.
	WatchInstances(ctx context.Context) <-chan InstanceEvent

	// PublishTelemetry records the latest load signals for a source.
	PublishTelemetry(ctx context.Context, t *model.Telemetry) error

	// WatchTelemetry streams telemetry updates until ctx is done.
	WatchTelemetry(ctx context.Context) <-chan model.Telemetry
}
