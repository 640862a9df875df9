package billing

import (
	"github.com/shopspring/decimal"
)

// Service is a sold travel service as seen by the engine.
// TransferFeePct, CardInterestBase and CardInterestVAT are optional.
type Service struct {
	ID               string
	Type             string
	Currency         string
	SalePrice        decimal.Decimal
	CostPrice        decimal.Decimal
	Tax21            decimal.Decimal
	Tax105           decimal.Decimal
	Exempt           decimal.Decimal
	OtherTaxes       decimal.Decimal
	CardInterest     decimal.Decimal
	CardInterestBase *decimal.Decimal
	CardInterestVAT  *decimal.Decimal
	TransferFeePct   *decimal.Decimal
	ExtraAdjustments []AdjustmentItem
}

// HasCardInterestSplit reports whether the card interest was stored already
// split into taxable base and VAT
func (s Service) HasCardInterestSplit() bool {
	return s.CardInterestBase != nil && s.CardInterestVAT != nil
}

// CardInterestTotal prefers the stored split over the raw card interest
func (s Service) CardInterestTotal() decimal.Decimal {
	if s.HasCardInterestSplit() {
		return s.CardInterestBase.Add(*s.CardInterestVAT)
	}
	return s.CardInterest
}

// SaleBasis is the sale figure used to weigh payment allocation.
// Card interest only counts in itemized mode.
func (s Service) SaleBasis(mode BreakdownMode) decimal.Decimal {
	if mode == BreakdownModeManual {
		return s.SalePrice
	}
	return s.SalePrice.Add(s.CardInterestTotal())
}

// Conversion describes a receipt taken in one currency and credited in another
type Conversion struct {
	BaseAmount      decimal.Decimal
	BaseCurrency    string
	CounterAmount   decimal.Decimal
	CounterCurrency string
}

// ServiceAllocation is an explicit portion of a receipt applied to a service
type ServiceAllocation struct {
	ServiceID string
	Amount    decimal.Decimal
}

// Receipt is a payment collected from the client
type Receipt struct {
	ID          string
	Amount      decimal.Decimal
	Currency    string
	FeeAmount   decimal.Decimal
	Conversion  *Conversion
	Allocations []ServiceAllocation
	ServiceIDs  []string
}

// Credit returns the amount and currency credited against the booking
func (r Receipt) Credit() (decimal.Decimal, string) {
	if r.Conversion != nil && r.Conversion.BaseCurrency != "" {
		return r.Conversion.BaseAmount, r.Conversion.BaseCurrency
	}
	return r.Amount, r.Currency
}

// HasExplicitAllocations reports whether the receipt names its services directly
func (r Receipt) HasExplicitAllocations() bool {
	return len(r.Allocations) > 0
}

// OperatorDue is an amount the agency owes to a tour operator
type OperatorDue struct {
	ID        string
	Amount    decimal.Decimal
	Currency  string
	Status    string
	ServiceID string
}
