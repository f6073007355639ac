package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// EventType selects the meeting requests a parameter is sent with.
type EventType int

const (
	EventTypeJoin   EventType = 1
	EventTypeCreate EventType = 2
	EventTypeBoth   EventType = 3
)

// Action is the outbound request being built by the host.
type Action string

const (
	ActionJoin   Action = "join"
	ActionCreate Action = "create"
)

// ParameterRow is one extra parameter attached to an activity instance.
type ParameterRow struct {
	ID         int64
	InstanceID int64
	EventType  EventType
	Name       string
	Value      string
}

// EventTypeOption labels an event type for selection widgets.
type EventTypeOption struct {
	Code  EventType `json:"code"`
	Label string    `json:"label"`
}

// EventTypeOptions returns the selectable event types in code order.
func EventTypeOptions() []EventTypeOption {
	return []EventTypeOption{
		{Code: EventTypeJoin, Label: "Join"},
		{Code: EventTypeCreate, Label: "Create"},
		{Code: EventTypeBoth, Label: "Both"},
	}
}

// Valid reports whether e is a known code.
func (e EventType) Valid() bool {
	switch e {
	case EventTypeJoin, EventTypeCreate, EventTypeBoth:
		return true
	}
	return false
}

// Matches reports whether a parameter of this type applies to the action.
func (e EventType) Matches(action Action) bool {
	switch e {
	case EventTypeBoth:
		return true
	case EventTypeJoin:
		return action == ActionJoin
	case EventTypeCreate:
		return action == ActionCreate
	}
	return false
}

func (e EventType) String() string {
	for _, opt := range EventTypeOptions() {
		if opt.Code == e {
			return strings.ToLower(opt.Label)
		}
	}
	return "unknown(" + strconv.Itoa(int(e)) + ")"
}

// ParseEventType parses a submitted event type code.
func ParseEventType(raw string) (EventType, error) {
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: event type %q", ErrInvalidValue, raw)
	}
	e := EventType(code)
	if !e.Valid() {
		return 0, fmt.Errorf("%w: event type %d", ErrInvalidValue, code)
	}
	return e, nil
}

// ParseAction parses the action segment of an outbound request.
func ParseAction(raw string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionJoin, ActionCreate:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// Target names the outbound map parameters are written into.
type Target string

const (
	TargetData     Target = "data"
	TargetMetadata Target = "metadata"
)

// ParseTarget validates a configured target map.
func ParseTarget(raw string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(raw))); t {
	case TargetData, TargetMetadata:
		return t, nil
	}
	return "", fmt.Errorf("unknown target map %q", raw)
}
