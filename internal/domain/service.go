package domain

import "time"

// ManagedService is the record of one auxiliary tool server launched and
// owned by this process. It is a write-once value: fields are set when the
// process starts and never mutated afterwards. The record holds no handle to
// the supervising registry, so it can be serialized and handed out freely.
//
// Port is zero for tools that expose no listener and is omitted from JSON in
// that case.
type ManagedService struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Port      int       `json:"port,omitempty"`
	StartedAt time.Time `json:"started_at"`
}
