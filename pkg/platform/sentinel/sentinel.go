package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the repository return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about stored items, not validation failures:
// - ErrNotFound: no item at the requested key
// - ErrConflict: an item already occupies the key a write required to be free
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backend temporarily unable to serve (throttled, busy)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
