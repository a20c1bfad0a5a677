package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so callers can branch on the fact rather than on message text:
// - ErrNotFound: record or referenced entity does not exist in the store
// - ErrConflict: write collided with an existing row
// - ErrInvalidState: entity in wrong state for the requested operation
// - ErrUnavailable: backing service temporarily unreachable
//
// Resolution misses during message rendering are expected over the lifetime
// of audit history and are handled by fallback, never surfaced as errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
