package types

import "fmt"

// RDStatus is the derived aggregate status of a receivables discounting
// application across all RFP participants.
type RDStatus string

const (
	RDStatusPendingRequest  RDStatus = "PENDING_REQUEST"
	RDStatusRequested       RDStatus = "REQUESTED"
	RDStatusRequestDeclined RDStatus = "REQUEST_DECLINED"
	RDStatusRequestExpired  RDStatus = "REQUEST_EXPIRED"
	RDStatusQuoteSubmitted  RDStatus = "QUOTE_SUBMITTED"
	RDStatusQuoteDeclined   RDStatus = "QUOTE_DECLINED"
	RDStatusQuoteAccepted   RDStatus = "QUOTE_ACCEPTED"
)

// IsValid checks if the RD status is valid
func (s RDStatus) IsValid() bool {
	switch s {
	case RDStatusPendingRequest,
		RDStatusRequested,
		RDStatusRequestDeclined,
		RDStatusRequestExpired,
		RDStatusQuoteSubmitted,
		RDStatusQuoteDeclined,
		RDStatusQuoteAccepted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the RD status
func (s RDStatus) String() string {
	return string(s)
}

// ParseRDStatus parses a string into a RDStatus
func ParseRDStatus(s string) (RDStatus, error) {
	status := RDStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid RD status: %s", s)
	}
	return status, nil
}
