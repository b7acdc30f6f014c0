package usecase

import "errors"

// Sentinel errors for the use case layer. The HTTP boundary maps these to
// response status codes; the message consumer never surfaces them to a
// caller.
var (
	// ErrFieldValidation marks a malformed or ineligible request (422)
	ErrFieldValidation = errors.New("field validation failed")

	// ErrDuplicate marks a duplicate RFP or double-accept (409)
	ErrDuplicate = errors.New("duplicate request")

	// ErrNotFound marks an unknown RD, participant or quote (404)
	ErrNotFound = errors.New("entity not found")

	// ErrPublisherUnavailable marks a systemic bus outage (500)
	ErrPublisherUnavailable = errors.New("outbound publisher unavailable")
)

// Context keys for error values
const (
	RDIDKey          = "rd_id"
	QuoteIDKey       = "quote_id"
	ParticipantIDKey = "participant_static_id"
)
