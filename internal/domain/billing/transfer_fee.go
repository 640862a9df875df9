package billing

import (
	"github.com/shopspring/decimal"
)

// TransferFeeSource tells which level supplied a transfer fee percentage
type TransferFeeSource string

const (
	TransferFeeSourceType     TransferFeeSource = "type"
	TransferFeeSourceAgency   TransferFeeSource = "agency"
	TransferFeeSourceService  TransferFeeSource = "service"
	TransferFeeSourceFallback TransferFeeSource = "fallback"
)

// ResolveTransferFeePct picks the transfer fee proportion for a service type.
// Precedence: per-type config, agency config, the value stored on the
// service, then fallback. A nil fallback means DefaultTransferFeePct.
func ResolveTransferFeePct(cfg CalcConfig, serviceType string, stored, fallback *decimal.Decimal) (decimal.Decimal, TransferFeeSource) {
	if serviceType != "" {
		if pct, ok := cfg.TransferFeeByType[normalizeServiceType(serviceType)]; ok {
			return pct, TransferFeeSourceType
		}
	}
	if cfg.TransferFeePct != nil {
		return *cfg.TransferFeePct, TransferFeeSourceAgency
	}
	if stored != nil {
		return *stored, TransferFeeSourceService
	}
	if fallback != nil {
		return *fallback, TransferFeeSourceFallback
	}
	return DefaultTransferFeePct, TransferFeeSourceFallback
}

// TransferFee is the modeled collection cost on a sale
func TransferFee(sale, pct decimal.Decimal) decimal.Decimal {
	return sale.Mul(pct)
}
