package chat

import "errors"

// Sentinel errors for gateway actions. Handlers surface these to the
// client as opaque reason strings; low-priority signaling actions drop
// them silently instead.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidTarget = errors.New("invalid target")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrTransport     = errors.New("delivery failed")
)
