package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"surge/pkg/model"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// Key schema.
const (
	InstanceKeyPrefix  = "/surge/instances/"
	TelemetryKeyPrefix = "/surge/telemetry/"
)

// EtcdRegistry implements Registry on top of etcd. Instance membership
// lives under InstanceKeyPrefix, one key per instance; telemetry lives
// under TelemetryKeyPrefix, one key per reporting source, overwritten
// on every heartbeat.
type EtcdRegistry struct {
	client *clientv3.Client
	logger *zap.Logger
}

func NewEtcdRegistry(logger *zap.Logger, endpoints []string) (*EtcdRegistry, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: cli, logger: logger}, nil
}

func (e *EtcdRegistry) Close() error {
	return e.client.Close()
}

func (e *EtcdRegistry) RegisterInstance(ctx context.Context, id string) error {
	inst := &model.Instance{
		ID:           id,
		RegisteredAt: time.Now().Unix(),
	}
	return e.putValue(ctx, InstanceKeyPrefix+id, inst)
}

func (e *EtcdRegistry) DeregisterInstance(ctx context.Context, id string) error {
	_, err := e.client.Delete(ctx, InstanceKeyPrefix+id)
	return err
}

func (e *EtcdRegistry) ListInstances(ctx context.Context) ([]*model.Instance, error) {
	resp, err := e.client.Get(ctx, InstanceKeyPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]*model.Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst model.Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			e.logger.Warn("skipping undecodable instance record",
				zap.String("key", string(kv.Key)), zap.Error(err))
			continue
		}
		instances = append(instances, &inst)
	}
	return instances, nil
}

// WatchInstances converts the etcd watch stream into membership events.
// The channel closes when ctx is cancelled.
func (e *EtcdRegistry) WatchInstances(ctx context.Context) <-chan InstanceEvent {
	events := make(chan InstanceEvent)

	go func() {
		defer close(events)
		watchCh := e.client.Watch(ctx, InstanceKeyPrefix, clientv3.WithPrefix())

		for resp := range watchCh {
			for _, ev := range resp.Events {
				switch ev.Type {
				case clientv3.EventTypePut:
					var inst model.Instance
					if err := json.Unmarshal(ev.Kv.Value, &inst); err != nil {
						e.logger.Warn("skipping undecodable instance event",
							zap.String("key", string(ev.Kv.Key)), zap.Error(err))
						continue
					}
					events <- InstanceEvent{Type: InstancePut, Instance: &inst}
				case clientv3.EventTypeDelete:
					// Deletes carry no value; recover the ID from the key.
					id := strings.TrimPrefix(string(ev.Kv.Key), InstanceKeyPrefix)
					events <- InstanceEvent{Type: InstanceDelete, Instance: &model.Instance{ID: id}}
				}
			}
		}
	}()

	return events
}

func (e *EtcdRegistry) PublishTelemetry(ctx context.Context, t *model.Telemetry) error {
	return e.putValue(ctx, TelemetryKeyPrefix+t.Source, t)
}

func (e *EtcdRegistry) WatchTelemetry(ctx context.Context) <-chan model.Telemetry {
	updates := make(chan model.Telemetry)

	go func() {
		defer close(updates)
		watchCh := e.client.Watch(ctx, TelemetryKeyPrefix, clientv3.WithPrefix())

		for resp := range watchCh {
			for _, ev := range resp.Events {
				if ev.Type != clientv3.EventTypePut {
					continue
				}
				var t model.Telemetry
				if err := json.Unmarshal(ev.Kv.Value, &t); err != nil {
					e.logger.Warn("skipping undecodable telemetry",
						zap.String("key", string(ev.Kv.Key)), zap.Error(err))
					continue
				}
				updates <- t
			}
		}
	}()

	return updates
}

// putValue marshals val as JSON and writes it at key.
func (e *EtcdRegistry) putValue(ctx context.Context, key string, val interface{}) error {
	bytes, err := json.Marshal(val)
	if err != nil {
		return err
	}
	_, err = e.client.Put(ctx, key, string(bytes))
	return err
}
