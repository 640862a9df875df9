package commission

import "github.com/agency/backoffice/internal/domain/shared"

// Commission domain errors
var (
	ErrInvalidSplit    = shared.NewDomainError("INVALID_COMMISSION_SPLIT", "Commission split is out of range")
	ErrInvalidScope    = shared.NewDomainError("INVALID_COMMISSION_SCOPE", "Commission scope must be booking, currency or service")
	ErrMissingScopeKey = shared.NewDomainError("MISSING_COMMISSION_SCOPE_KEY", "Currency and service overrides require a key")
	ErrMalformedFeed   = shared.NewDomainError("MALFORMED_COMMISSION_FEED", "Commission feed is not a JSON object")
)
