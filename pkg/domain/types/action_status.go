package types

import "fmt"

// ActionStatus is the per-recipient delivery outcome of one fan-out attempt.
// It is ephemeral: it is reported to the caller and never treated as
// authoritative negotiation state.
type ActionStatus string

const (
	// ActionStatusCreated means the outbound record was persisted but the
	// publish has not been confirmed yet.
	ActionStatusCreated ActionStatus = "Created"
	// ActionStatusProcessed means the message was handed to the bus broker.
	ActionStatusProcessed ActionStatus = "Processed"
	// ActionStatusFailed means publishing failed after exhausting retries.
	ActionStatusFailed ActionStatus = "Failed"
)

// IsValid checks if the action status is valid
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusCreated, ActionStatusProcessed, ActionStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action status
func (s ActionStatus) String() string {
	return string(s)
}

// ParseActionStatus parses a string into an ActionStatus
func ParseActionStatus(s string) (ActionStatus, error) {
	status := ActionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid action status: %s", s)
	}
	return status, nil
}
