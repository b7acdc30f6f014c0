package interfaces

import "context"

// ExpiryChecker reports whether the RFP window of an RD has elapsed. Expiry
// is owned by an external timer collaborator; the engine only reads it when
// deriving statuses, it never writes an expiry anywhere.
type ExpiryChecker interface {
	IsExpired(ctx context.Context, rdID string) (bool, error)
}
