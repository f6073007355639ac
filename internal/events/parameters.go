// Package events defines the change notifications emitted when an
// instance's extra parameters are rewritten or removed.
package events

import "time"

// Event type names carried in the event_type message header.
const (
	TypeParametersSynced  = "parameters.synced"
	TypeParametersDeleted = "parameters.deleted"
)

// Parameter is a stored parameter as it appears in event payloads.
type Parameter struct {
	EventType int    `json:"event_type"`
	Name      string `json:"name"`
	Value     string `json:"value"`
}

// ParametersSynced is emitted after the rows of an instance were replaced.
type ParametersSynced struct {
	EventID    string      `json:"event_id"`
	InstanceID int64       `json:"instance_id"`
	Actor      string      `json:"actor,omitempty"`
	Parameters []Parameter `json:"parameters"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// ParametersDeleted is emitted after an instance's rows were removed with it.
type ParametersDeleted struct {
	EventID    string    `json:"event_id"`
	InstanceID int64     `json:"instance_id"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
