package billing

import (
	"github.com/shopspring/decimal"
)

// VAT brackets applied to commission in itemized mode
var (
	VATRate21  = decimal.RequireFromString("0.21")
	VATRate105 = decimal.RequireFromString("0.105")
)

// BreakdownInput carries the figures of one service, or of a whole currency
// in aggregate mode
type BreakdownInput struct {
	Mode             BreakdownMode
	Sale             decimal.Decimal
	Cost             decimal.Decimal
	Tax21            decimal.Decimal
	Tax105           decimal.Decimal
	Exempt           decimal.Decimal
	OtherTaxes       decimal.Decimal
	CardInterest     decimal.Decimal
	CardInterestBase *decimal.Decimal
	CardInterestVAT  *decimal.Decimal
	TransferFeePct   decimal.Decimal
}

// BreakdownInputFor builds the calculator input of a service
func BreakdownInputFor(svc Service, mode BreakdownMode, transferFeePct decimal.Decimal) BreakdownInput {
	return BreakdownInput{
		Mode:             mode,
		Sale:             svc.SalePrice,
		Cost:             svc.CostPrice,
		Tax21:            svc.Tax21,
		Tax105:           svc.Tax105,
		Exempt:           svc.Exempt,
		OtherTaxes:       svc.OtherTaxes,
		CardInterest:     svc.CardInterest,
		CardInterestBase: svc.CardInterestBase,
		CardInterestVAT:  svc.CardInterestVAT,
		TransferFeePct:   transferFeePct,
	}
}

// Totals is the derived breakdown of a service or currency.
// Values are unrounded; use Rounded for presentation.
type Totals struct {
	Sale       decimal.Decimal
	Cost       decimal.Decimal
	Tax21      decimal.Decimal
	Tax105     decimal.Decimal
	Exempt     decimal.Decimal
	OtherTaxes decimal.Decimal

	CardInterest     decimal.Decimal
	CardInterestBase decimal.Decimal
	CardInterestVAT  decimal.Decimal

	// CommissionPool is sale minus cost minus other taxes
	CommissionPool decimal.Decimal

	TaxableBase21  decimal.Decimal
	TaxableBase105 decimal.Decimal
	ExemptBase     decimal.Decimal
	VAT21          decimal.Decimal
	VAT105         decimal.Decimal

	TransferFee      decimal.Decimal
	NetCommission    decimal.Decimal
	SaleWithInterest decimal.Decimal
}

// ZeroTotals returns totals with every field set to zero
func ZeroTotals() Totals {
	z := decimal.Zero
	return Totals{
		Sale: z, Cost: z, Tax21: z, Tax105: z, Exempt: z, OtherTaxes: z,
		CardInterest: z, CardInterestBase: z, CardInterestVAT: z,
		CommissionPool: z,
		TaxableBase21:  z, TaxableBase105: z, ExemptBase: z, VAT21: z, VAT105: z,
		TransferFee: z, NetCommission: z, SaleWithInterest: z,
	}
}

// Add sums two breakdowns field by field
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Sale:             t.Sale.Add(o.Sale),
		Cost:             t.Cost.Add(o.Cost),
		Tax21:            t.Tax21.Add(o.Tax21),
		Tax105:           t.Tax105.Add(o.Tax105),
		Exempt:           t.Exempt.Add(o.Exempt),
		OtherTaxes:       t.OtherTaxes.Add(o.OtherTaxes),
		CardInterest:     t.CardInterest.Add(o.CardInterest),
		CardInterestBase: t.CardInterestBase.Add(o.CardInterestBase),
		CardInterestVAT:  t.CardInterestVAT.Add(o.CardInterestVAT),
		CommissionPool:   t.CommissionPool.Add(o.CommissionPool),
		TaxableBase21:    t.TaxableBase21.Add(o.TaxableBase21),
		TaxableBase105:   t.TaxableBase105.Add(o.TaxableBase105),
		ExemptBase:       t.ExemptBase.Add(o.ExemptBase),
		VAT21:            t.VAT21.Add(o.VAT21),
		VAT105:           t.VAT105.Add(o.VAT105),
		TransferFee:      t.TransferFee.Add(o.TransferFee),
		NetCommission:    t.NetCommission.Add(o.NetCommission),
		SaleWithInterest: t.SaleWithInterest.Add(o.SaleWithInterest),
	}
}

// Rounded returns a copy with every amount rounded half away from zero
func (t Totals) Rounded(places int32) Totals {
	return Totals{
		Sale:             t.Sale.Round(places),
		Cost:             t.Cost.Round(places),
		Tax21:            t.Tax21.Round(places),
		Tax105:           t.Tax105.Round(places),
		Exempt:           t.Exempt.Round(places),
		OtherTaxes:       t.OtherTaxes.Round(places),
		CardInterest:     t.CardInterest.Round(places),
		CardInterestBase: t.CardInterestBase.Round(places),
		CardInterestVAT:  t.CardInterestVAT.Round(places),
		CommissionPool:   t.CommissionPool.Round(places),
		TaxableBase21:    t.TaxableBase21.Round(places),
		TaxableBase105:   t.TaxableBase105.Round(places),
		ExemptBase:       t.ExemptBase.Round(places),
		VAT21:            t.VAT21.Round(places),
		VAT105:           t.VAT105.Round(places),
		TransferFee:      t.TransferFee.Round(places),
		NetCommission:    t.NetCommission.Round(places),
		SaleWithInterest: t.SaleWithInterest.Round(places),
	}
}

// ComputeBreakdown derives taxable bases, VAT on commission and net
// commission before adjustments. No intermediate rounding is applied.
func ComputeBreakdown(in BreakdownInput) Totals {
	if in.Mode == BreakdownModeManual {
		return manualBreakdown(in)
	}
	return itemizedBreakdown(in)
}

func manualBreakdown(in BreakdownInput) Totals {
	t := ZeroTotals()
	t.Sale = in.Sale
	t.Cost = in.Cost
	t.OtherTaxes = in.OtherTaxes
	t.CommissionPool = in.Sale.Sub(in.Cost).Sub(in.OtherTaxes)
	t.TransferFee = TransferFee(in.Sale, in.TransferFeePct)
	t.NetCommission = t.CommissionPool.Sub(t.TransferFee)
	t.SaleWithInterest = in.Sale
	return t
}

func itemizedBreakdown(in BreakdownInput) Totals {
	t := ZeroTotals()
	t.Sale = in.Sale
	t.Cost = in.Cost
	t.Tax21 = in.Tax21
	t.Tax105 = in.Tax105
	t.Exempt = in.Exempt
	t.OtherTaxes = in.OtherTaxes

	if in.CardInterestBase != nil && in.CardInterestVAT != nil {
		t.CardInterestBase = *in.CardInterestBase
		t.CardInterestVAT = *in.CardInterestVAT
		t.CardInterest = t.CardInterestBase.Add(t.CardInterestVAT)
	} else {
		t.CardInterest = in.CardInterest
		t.CardInterestBase = in.CardInterest
	}

	t.CommissionPool = in.Sale.Sub(in.Cost).Sub(in.OtherTaxes)
	t.TransferFee = TransferFee(in.Sale, in.TransferFeePct)

	if t.CommissionPool.IsPositive() {
		splitPool(&t, in)
	}

	t.NetCommission = t.CommissionPool.
		Sub(t.VAT21).
		Sub(t.VAT105).
		Sub(t.TransferFee).
		Sub(t.CardInterestVAT)
	t.SaleWithInterest = in.Sale.Add(t.CardInterest)
	return t
}

// splitPool apportions the commission pool to VAT brackets by the share of the
// sale each bracket represents. A pool with no taxed or exempt components is
// left untaxed.
func splitPool(t *Totals, in BreakdownInput) {
	weights := []decimal.Decimal{
		bracketWeight(in.Tax21, VATRate21),
		bracketWeight(in.Tax105, VATRate105),
		nonNegative(in.Exempt),
	}
	if sumDecimals(weights).IsZero() {
		return
	}

	shares := Distribute(t.CommissionPool, weights)

	t.TaxableBase21 = shares[0].Div(decimal.NewFromInt(1).Add(VATRate21))
	t.VAT21 = t.TaxableBase21.Mul(VATRate21)
	t.TaxableBase105 = shares[1].Div(decimal.NewFromInt(1).Add(VATRate105))
	t.VAT105 = t.TaxableBase105.Mul(VATRate105)
	t.ExemptBase = shares[2]
}

func bracketWeight(tax, rate decimal.Decimal) decimal.Decimal {
	return nonNegative(tax).Div(rate)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
