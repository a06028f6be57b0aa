package model

// Telemetry is one heartbeat published by a worker agent. Units:
// queue_size is a count, processing_rate is operations per second,
// memory_usage is a percentage in [0,100].
type Telemetry struct {
	Source         string  `json:"source"`
	QueueSize      int     `json:"queue_size"`
	ProcessingRate float64 `json:"processing_rate"`
	MemoryUsage    float64 `json:"memory_usage"`
	ReportedAt     int64   `json:"reported_at"`
}
