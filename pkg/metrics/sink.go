package metrics

import "go.uber.org/zap"

// Sink receives scaling observability events. Emission is
// fire-and-forget: implementations log their own failures and never
// propagate them to the emitter.
type Sink interface {
	EmitEvent(eventType string, fields map[string]any)
}

// LogSink writes every event to the structured log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) EmitEvent(eventType string, fields map[string]any) {
	s.logger.Info("scaling event",
		zap.String("event_type", eventType),
		zap.Any("fields", fields))
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) EmitEvent(string, map[string]any) {}
