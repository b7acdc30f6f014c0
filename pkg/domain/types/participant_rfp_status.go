package types

import "fmt"

// ParticipantRFPStatus is the derived negotiation status of one participant.
// It is never stored; it is always computed from the participant's reply log.
type ParticipantRFPStatus string

const (
	ParticipantStatusRequested       ParticipantRFPStatus = "REQUESTED"
	ParticipantStatusRequestDeclined ParticipantRFPStatus = "REQUEST_DECLINED"
	ParticipantStatusRequestExpired  ParticipantRFPStatus = "REQUEST_EXPIRED"
	ParticipantStatusQuoteSubmitted  ParticipantRFPStatus = "QUOTE_SUBMITTED"
	ParticipantStatusQuoteDeclined   ParticipantRFPStatus = "QUOTE_DECLINED"
	ParticipantStatusQuoteAccepted   ParticipantRFPStatus = "QUOTE_ACCEPTED"
)

// AllParticipantRFPStatuses returns all valid participant statuses
func AllParticipantRFPStatuses() []ParticipantRFPStatus {
	return []ParticipantRFPStatus{
		ParticipantStatusRequested,
		ParticipantStatusRequestDeclined,
		ParticipantStatusRequestExpired,
		ParticipantStatusQuoteSubmitted,
		ParticipantStatusQuoteDeclined,
		ParticipantStatusQuoteAccepted,
	}
}

// IsValid checks if the participant status is valid
func (s ParticipantRFPStatus) IsValid() bool {
	switch s {
	case ParticipantStatusRequested,
		ParticipantStatusRequestDeclined,
		ParticipantStatusRequestExpired,
		ParticipantStatusQuoteSubmitted,
		ParticipantStatusQuoteDeclined,
		ParticipantStatusQuoteAccepted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further reply may be appended for a
// participant in this status.
func (s ParticipantRFPStatus) IsTerminal() bool {
	switch s {
	case ParticipantStatusRequestDeclined,
		ParticipantStatusRequestExpired,
		ParticipantStatusQuoteDeclined,
		ParticipantStatusQuoteAccepted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the participant status
func (s ParticipantRFPStatus) String() string {
	return string(s)
}

// ParseParticipantRFPStatus parses a string into a ParticipantRFPStatus
func ParseParticipantRFPStatus(s string) (ParticipantRFPStatus, error) {
	status := ParticipantRFPStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid participant RFP status: %s", s)
	}
	return status, nil
}
