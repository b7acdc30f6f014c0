package interfaces

import "errors"

// Sentinel errors shared by all repository backends, so callers can branch
// on the outcome without knowing which backend is wired in.
var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")
)
