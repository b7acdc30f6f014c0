package types

import "fmt"

// ReplyType represents the type of a participant RFP reply
type ReplyType string

const (
	ReplyTypeSubmitted ReplyType = "SUBMITTED"
	ReplyTypeRejected  ReplyType = "REJECTED"
	ReplyTypeAccepted  ReplyType = "ACCEPTED"
	ReplyTypeDeclined  ReplyType = "DECLINED"

	// Discounting-request replies belong to a sibling message family and are
	// never routed through the RFP reply dispatch table.
	ReplyTypeAddDiscountingRequest     ReplyType = "ADD_DISCOUNTING_REQUEST"
	ReplyTypeAcceptDiscountingRequest  ReplyType = "ACCEPT_DISCOUNTING_REQUEST"
	ReplyTypeDeclineDiscountingRequest ReplyType = "DECLINE_DISCOUNTING_REQUEST"
)

// AllReplyTypes returns all valid reply types
func AllReplyTypes() []ReplyType {
	return []ReplyType{
		ReplyTypeSubmitted,
		ReplyTypeRejected,
		ReplyTypeAccepted,
		ReplyTypeDeclined,
		ReplyTypeAddDiscountingRequest,
		ReplyTypeAcceptDiscountingRequest,
		ReplyTypeDeclineDiscountingRequest,
	}
}

// IsValid checks if the reply type is valid
func (t ReplyType) IsValid() bool {
	switch t {
	case ReplyTypeSubmitted,
		ReplyTypeRejected,
		ReplyTypeAccepted,
		ReplyTypeDeclined,
		ReplyTypeAddDiscountingRequest,
		ReplyTypeAcceptDiscountingRequest,
		ReplyTypeDeclineDiscountingRequest:
		return true
	default:
		return false
	}
}

// String returns the string representation of the reply type
func (t ReplyType) String() string {
	return string(t)
}

// ParseReplyType parses a string into a ReplyType
func ParseReplyType(s string) (ReplyType, error) {
	t := ReplyType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid reply type: %s", s)
	}
	return t, nil
}
