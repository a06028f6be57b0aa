package model

// Instance is one worker instance as known to the routing plane. The
// ID is opaque to everything except the lifecycle runtime that issued
// it (for the docker runtime it is the container ID).
type Instance struct {
	ID           string `json:"id"`
	RegisteredAt int64  `json:"registered_at"` // Unix seconds
}
