package status

import "errors"

var (
	ErrInvalidPayload     = errors.New("scan: payload carries no usable ticket reference")
	ErrScanInFlight       = errors.New("scan: validation already in flight for session")
	ErrDuplicateScan      = errors.New("scan: duplicate payload inside debounce window")
	ErrSessionNotFound    = errors.New("session: session not found")
	ErrDeviceSecret       = errors.New("session: device secret mismatch")
	ErrBackendUnavailable = errors.New("ticketing: backend unavailable")
	ErrNotCached          = errors.New("offline: event not cached")
)
