package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestResolveTransferFeePct(t *testing.T) {
	cfg := DefaultCalcConfig()
	cfg.TransferFeeByType = map[string]decimal.Decimal{"hotel": d("0.01")}
	agency := d("0.03")

	tests := []struct {
		name        string
		cfg         CalcConfig
		serviceType string
		stored      *decimal.Decimal
		fallback    *decimal.Decimal
		expected    string
		source      TransferFeeSource
	}{
		{"per-type config wins", withAgencyPct(cfg, &agency), "Hotel", dp("0.05"), dp("0.04"), "0.01", TransferFeeSourceType},
		{"agency config over stored", withAgencyPct(cfg, &agency), "flight", dp("0.05"), dp("0.04"), "0.03", TransferFeeSourceAgency},
		{"stored over fallback", cfg, "flight", dp("0.05"), dp("0.04"), "0.05", TransferFeeSourceService},
		{"caller fallback", cfg, "flight", nil, dp("0.04"), "0.04", TransferFeeSourceFallback},
		{"built-in default", cfg, "", nil, nil, "0.024", TransferFeeSourceFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, source := ResolveTransferFeePct(tt.cfg, tt.serviceType, tt.stored, tt.fallback)

			assertDecimal(t, tt.expected, pct)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestTransferFee(t *testing.T) {
	assertDecimal(t, "24", TransferFee(d("1000"), DefaultTransferFeePct))
}

func withAgencyPct(cfg CalcConfig, pct *decimal.Decimal) CalcConfig {
	cfg.TransferFeePct = pct
	return cfg
}
