package domain

import "errors"

// Error kinds surfaced by the gate and pass services. Handlers map each kind
// to a stable HTTP error code so clients can render a specific message.
var (
	ErrGateNotFound         = errors.New("gate not found")
	ErrGateDisabled         = errors.New("gate disabled")
	ErrUnauthorized         = errors.New("actor not authorized")
	ErrTransportUnavailable = errors.New("gate transport unavailable")

	ErrUnknownPolicy   = errors.New("unknown pass policy")
	ErrMissingName     = errors.New("visitor name required")
	ErrMissingID       = errors.New("visitor id required")
	ErrQuotaExceeded   = errors.New("active pass quota reached")
	ErrPassNotFound    = errors.New("pass not found")
	ErrPassExpired     = errors.New("pass expired")
	ErrPassRevoked     = errors.New("pass revoked")
	ErrPassCompleted   = errors.New("pass fully used")
	ErrAlreadyConsumed = errors.New("pass use already consumed")

	ErrResidentNotFound = errors.New("resident not found")

	// ErrShortCodeTaken stays internal to issuance; the collision retry loop
	// absorbs it and callers never see it.
	ErrShortCodeTaken = errors.New("short code taken")
)
