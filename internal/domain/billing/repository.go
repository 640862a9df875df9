package billing

import "context"

// CalcConfigRepository stores the calculation configuration of an agency
type CalcConfigRepository interface {
	// FindByAgency returns the stored document as received. It returns
	// shared.ErrNotFound when the agency has no configuration.
	FindByAgency(ctx context.Context, agencyID string) (*RawCalcConfig, error)

	// Save creates or replaces the agency configuration
	Save(ctx context.Context, agencyID string, cfg CalcConfig) error
}
