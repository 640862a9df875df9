package billing

import (
	"github.com/shopspring/decimal"
)

// AdjustmentKind classifies where an adjustment accumulates
type AdjustmentKind string

const (
	AdjustmentKindCost AdjustmentKind = "cost"
	AdjustmentKindTax  AdjustmentKind = "tax"
)

// IsValid returns true if the kind is recognised
func (k AdjustmentKind) IsValid() bool {
	return k == AdjustmentKindCost || k == AdjustmentKindTax
}

// AdjustmentBasis selects the amount a percent adjustment is applied to
type AdjustmentBasis string

const (
	AdjustmentBasisSale   AdjustmentBasis = "sale"
	AdjustmentBasisCost   AdjustmentBasis = "cost"
	AdjustmentBasisMargin AdjustmentBasis = "margin"
)

// IsValid returns true if the basis is recognised
func (b AdjustmentBasis) IsValid() bool {
	switch b {
	case AdjustmentBasisSale, AdjustmentBasisCost, AdjustmentBasisMargin:
		return true
	}
	return false
}

// AdjustmentValueType tells whether Value is a proportion or an absolute amount
type AdjustmentValueType string

const (
	AdjustmentValuePercent AdjustmentValueType = "percent"
	AdjustmentValueFixed   AdjustmentValueType = "fixed"
)

// IsValid returns true if the value type is recognised
func (v AdjustmentValueType) IsValid() bool {
	return v == AdjustmentValuePercent || v == AdjustmentValueFixed
}

// AdjustmentSource marks whether a rule applies to every service or only its owner
type AdjustmentSource string

const (
	AdjustmentSourceGlobal  AdjustmentSource = "global"
	AdjustmentSourceService AdjustmentSource = "service"
)

// AdjustmentRule is a configured deduction from commission.
// Value is a proportion (0.10 = 10%) for percent rules.
type AdjustmentRule struct {
	ID        string
	Name      string
	Kind      AdjustmentKind
	Basis     AdjustmentBasis
	ValueType AdjustmentValueType
	Value     decimal.Decimal
	Active    bool
	Source    AdjustmentSource
}

// BaseAmount returns the amount the rule's basis selects
func (r AdjustmentRule) BaseAmount(sale, cost decimal.Decimal) decimal.Decimal {
	switch r.Basis {
	case AdjustmentBasisCost:
		return cost
	case AdjustmentBasisMargin:
		return sale.Sub(cost)
	default:
		return sale
	}
}

// Amount computes the deduction for a single rule
func (r AdjustmentRule) Amount(sale, cost decimal.Decimal) decimal.Decimal {
	if r.ValueType == AdjustmentValueFixed {
		return r.Value
	}
	return r.BaseAmount(sale, cost).Mul(r.Value)
}

// AdjustmentItem is one computed adjustment line
type AdjustmentItem struct {
	RuleID    string
	Name      string
	Kind      AdjustmentKind
	Basis     AdjustmentBasis
	ValueType AdjustmentValueType
	Value     decimal.Decimal
	Amount    decimal.Decimal
	Source    AdjustmentSource
	ServiceID string
}

// AdjustmentResult holds computed items and their totals.
// Total is the net deduction from commission.
type AdjustmentResult struct {
	Items      []AdjustmentItem
	TotalCosts decimal.Decimal
	TotalTaxes decimal.Decimal
	Total      decimal.Decimal
}

// EmptyAdjustments returns a result with no items and zero totals
func EmptyAdjustments() AdjustmentResult {
	return AdjustmentResult{
		Items:      []AdjustmentItem{},
		TotalCosts: decimal.Zero,
		TotalTaxes: decimal.Zero,
		Total:      decimal.Zero,
	}
}

func (r *AdjustmentResult) add(item AdjustmentItem) {
	r.Items = append(r.Items, item)
	if item.Kind == AdjustmentKindTax {
		r.TotalTaxes = r.TotalTaxes.Add(item.Amount)
	} else {
		r.TotalCosts = r.TotalCosts.Add(item.Amount)
	}
	r.Total = r.TotalCosts.Add(r.TotalTaxes)
}

// Merge appends other's items after r's and sums the totals
func (r AdjustmentResult) Merge(other AdjustmentResult) AdjustmentResult {
	out := EmptyAdjustments()
	for _, item := range r.Items {
		out.add(item)
	}
	for _, item := range other.Items {
		out.add(item)
	}
	return out
}

// ComputeAdjustments applies every active rule against the same sale and cost.
// Rules never chain, so ordering only affects the Items order.
func ComputeAdjustments(rules []AdjustmentRule, sale, cost decimal.Decimal) AdjustmentResult {
	return computeAdjustments(rules, sale, cost, "")
}

func computeAdjustments(rules []AdjustmentRule, sale, cost decimal.Decimal, serviceID string) AdjustmentResult {
	result := EmptyAdjustments()
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		result.add(AdjustmentItem{
			RuleID:    rule.ID,
			Name:      rule.Name,
			Kind:      rule.Kind,
			Basis:     rule.Basis,
			ValueType: rule.ValueType,
			Value:     rule.Value,
			Amount:    rule.Amount(sale, cost),
			Source:    rule.Source,
			ServiceID: serviceID,
		})
	}
	return result
}

// GlobalRules filters rules that apply to every service in a currency
func GlobalRules(rules []AdjustmentRule) []AdjustmentRule {
	out := make([]AdjustmentRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Source == AdjustmentSourceGlobal {
			out = append(out, rule)
		}
	}
	return out
}

// ServiceAdjustments computes the adjustments of one service in per-service mode.
// Global rules are recomputed from the live configuration; stored items tagged
// with source=service are carried over as already computed, and stored global
// items are ignored.
func ServiceAdjustments(svc Service, rules []AdjustmentRule) AdjustmentResult {
	result := computeAdjustments(GlobalRules(rules), svc.SalePrice, svc.CostPrice, svc.ID)
	for _, stored := range svc.ExtraAdjustments {
		if stored.Source != AdjustmentSourceService {
			continue
		}
		stored.ServiceID = svc.ID
		result.add(stored)
	}
	return result
}
