package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agency/backoffice/internal/domain/billing"
)

// DefaultCalcConfigTTL is used when a cache is created without a TTL
const DefaultCalcConfigTTL = 5 * time.Minute

// CalcConfigCache stores raw calc configuration documents per agency.
// Get reports a miss with a nil document and a nil error.
type CalcConfigCache interface {
	Get(ctx context.Context, agencyID string) (*billing.RawCalcConfig, error)
	Set(ctx context.Context, agencyID string, raw *billing.RawCalcConfig, ttl time.Duration) error
	Delete(ctx context.Context, agencyID string) error
	Close() error
}

func encodeRaw(raw *billing.RawCalcConfig) ([]byte, error) {
	return json.Marshal(raw)
}

func decodeRaw(data []byte) (*billing.RawCalcConfig, error) {
	raw, err := billing.DecodeRawCalcConfig(data)
	if err != nil {
		return nil, err
	}
	return &raw, nil
}
