package domain

import "errors"

// Error kinds for the reconciliation flow. Callers branch with errors.Is and
// map each kind to an HTTP status at the handler boundary.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("transaction not found")
	ErrMissingFields    = errors.New("missing required fields")
	ErrMerchantMismatch = errors.New("merchant code mismatch")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrAmountMismatch   = errors.New("amount mismatch")
	ErrMalformedAmount  = errors.New("malformed amount")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
)
