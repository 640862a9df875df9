package dto

import (
	"bytes"
	"encoding/json"

	appbilling "github.com/agency/backoffice/internal/application/billing"
	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/shopspring/decimal"
)

// AdjustmentItemRequest is a service-specific adjustment already computed upstream
type AdjustmentItemRequest struct {
	RuleID    string          `json:"rule_id"`
	Name      string          `json:"name" binding:"required"`
	Kind      string          `json:"kind" binding:"required,oneof=cost tax"`
	Basis     string          `json:"basis" binding:"omitempty,oneof=sale cost margin"`
	ValueType string          `json:"value_type" binding:"omitempty,oneof=percent fixed"`
	Value     decimal.Decimal `json:"value"`
	Amount    decimal.Decimal `json:"amount"`
	Source    string          `json:"source" binding:"omitempty,oneof=global service"`
}

// ServiceRequest is one sold service of the booking
type ServiceRequest struct {
	ID               string                  `json:"id" binding:"required"`
	Type             string                  `json:"type"`
	Currency         string                  `json:"currency" binding:"omitempty,currency_code"`
	SalePrice        decimal.Decimal         `json:"sale_price"`
	CostPrice        decimal.Decimal         `json:"cost_price"`
	Tax21            decimal.Decimal         `json:"tax_21"`
	Tax105           decimal.Decimal         `json:"tax_10_5"`
	Exempt           decimal.Decimal         `json:"exempt"`
	OtherTaxes       decimal.Decimal         `json:"other_taxes"`
	CardInterest     decimal.Decimal         `json:"card_interest"`
	CardInterestBase *decimal.Decimal        `json:"card_interest_base"`
	CardInterestVAT  *decimal.Decimal        `json:"card_interest_vat"`
	TransferFeePct   *decimal.Decimal        `json:"transfer_fee_pct"`
	ExtraAdjustments []AdjustmentItemRequest `json:"extra_adjustments" binding:"omitempty,dive"`
}

// ConversionRequest describes a receipt credited in another currency
type ConversionRequest struct {
	BaseAmount      decimal.Decimal `json:"base_amount"`
	BaseCurrency    string          `json:"base_currency" binding:"omitempty,currency_code"`
	CounterAmount   decimal.Decimal `json:"counter_amount"`
	CounterCurrency string          `json:"counter_currency" binding:"omitempty,currency_code"`
}

// AllocationRequest is an explicit share of a receipt
type AllocationRequest struct {
	ServiceID string          `json:"service_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// ReceiptRequest is one client payment
type ReceiptRequest struct {
	ID          string              `json:"id" binding:"required"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    string              `json:"currency" binding:"omitempty,currency_code"`
	FeeAmount   decimal.Decimal     `json:"fee_amount"`
	Conversion  *ConversionRequest  `json:"conversion" binding:"omitempty"`
	Allocations []AllocationRequest `json:"allocations" binding:"omitempty,dive"`
	ServiceIDs  []string            `json:"service_ids"`
}

// OperatorDueRequest is an amount owed to a tour operator
type OperatorDueRequest struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" binding:"omitempty,currency_code"`
	Status    string          `json:"status"`
	ServiceID string          `json:"service_id"`
}

// SummaryRequest is the body of POST /bookings/:id/summary.
// Commission, when present, replaces the stored commission feed.
type SummaryRequest struct {
	Services          []ServiceRequest           `json:"services" binding:"dive"`
	Receipts          []ReceiptRequest           `json:"receipts" binding:"dive"`
	OperatorDues      []OperatorDueRequest       `json:"operator_dues" binding:"dive"`
	BookingSaleTotals map[string]decimal.Decimal `json:"booking_sale_totals"`
	Commission        json.RawMessage            `json:"commission"`
}

// ToSummaryRequest converts the body into the application request
func (r SummaryRequest) ToSummaryRequest() (appbilling.SummaryRequest, error) {
	out := appbilling.SummaryRequest{
		Services:          make([]billing.Service, 0, len(r.Services)),
		Receipts:          make([]billing.Receipt, 0, len(r.Receipts)),
		OperatorDues:      make([]billing.OperatorDue, 0, len(r.OperatorDues)),
		BookingSaleTotals: r.BookingSaleTotals,
	}
	for _, s := range r.Services {
		out.Services = append(out.Services, s.toDomain())
	}
	for _, rc := range r.Receipts {
		out.Receipts = append(out.Receipts, rc.toDomain())
	}
	for _, d := range r.OperatorDues {
		out.OperatorDues = append(out.OperatorDues, billing.OperatorDue{
			ID:        d.ID,
			Amount:    d.Amount,
			Currency:  d.Currency,
			Status:    d.Status,
			ServiceID: d.ServiceID,
		})
	}

	raw := bytes.TrimSpace(r.Commission)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		feed, err := commission.ParseFeed(raw)
		if err != nil {
			return appbilling.SummaryRequest{}, err
		}
		out.Commission = feed
	}
	return out, nil
}

func (s ServiceRequest) toDomain() billing.Service {
	svc := billing.Service{
		ID:               s.ID,
		Type:             s.Type,
		Currency:         s.Currency,
		SalePrice:        s.SalePrice,
		CostPrice:        s.CostPrice,
		Tax21:            s.Tax21,
		Tax105:           s.Tax105,
		Exempt:           s.Exempt,
		OtherTaxes:       s.OtherTaxes,
		CardInterest:     s.CardInterest,
		CardInterestBase: s.CardInterestBase,
		CardInterestVAT:  s.CardInterestVAT,
		TransferFeePct:   s.TransferFeePct,
	}
	for _, a := range s.ExtraAdjustments {
		svc.ExtraAdjustments = append(svc.ExtraAdjustments, billing.AdjustmentItem{
			RuleID:    a.RuleID,
			Name:      a.Name,
			Kind:      billing.AdjustmentKind(a.Kind),
			Basis:     billing.AdjustmentBasis(a.Basis),
			ValueType: billing.AdjustmentValueType(a.ValueType),
			Value:     a.Value,
			Amount:    a.Amount,
			Source:    a.source(),
			ServiceID: s.ID,
		})
	}
	return svc
}

// source defaults to service; stored global items are recomputed from config
func (a AdjustmentItemRequest) source() billing.AdjustmentSource {
	if a.Source == string(billing.AdjustmentSourceGlobal) {
		return billing.AdjustmentSourceGlobal
	}
	return billing.AdjustmentSourceService
}

func (r ReceiptRequest) toDomain() billing.Receipt {
	rc := billing.Receipt{
		ID:         r.ID,
		Amount:     r.Amount,
		Currency:   r.Currency,
		FeeAmount:  r.FeeAmount,
		ServiceIDs: r.ServiceIDs,
	}
	if r.Conversion != nil {
		rc.Conversion = &billing.Conversion{
			BaseAmount:      r.Conversion.BaseAmount,
			BaseCurrency:    r.Conversion.BaseCurrency,
			CounterAmount:   r.Conversion.CounterAmount,
			CounterCurrency: r.Conversion.CounterCurrency,
		}
	}
	for _, a := range r.Allocations {
		rc.Allocations = append(rc.Allocations, billing.ServiceAllocation{ServiceID: a.ServiceID, Amount: a.Amount})
	}
	return rc
}

// LeaderSplitRequest is one leader's percentage in an override
type LeaderSplitRequest struct {
	UserID string          `json:"user_id" binding:"required"`
	Pct    decimal.Decimal `json:"pct"`
}

// CommissionOverrideRequest is the body of PUT /bookings/:id/commission-overrides/:scope.
// Percentages are 0-100.
type CommissionOverrideRequest struct {
	SellerPct *decimal.Decimal     `json:"seller_pct" binding:"required"`
	Leaders   []LeaderSplitRequest `json:"leaders" binding:"omitempty,unique=UserID,dive"`
}

// ToSplit converts the body into a commission split
func (r CommissionOverrideRequest) ToSplit() commission.Split {
	split := commission.Split{Leaders: make(map[string]decimal.Decimal, len(r.Leaders))}
	if r.SellerPct != nil {
		split.SellerPct = *r.SellerPct
	}
	for _, l := range r.Leaders {
		split.Leaders[l.UserID] = l.Pct
	}
	return split
}

// CommissionOverrideQuery carries the override key of currency and service scopes
type CommissionOverrideQuery struct {
	Key string `form:"key"`
}
