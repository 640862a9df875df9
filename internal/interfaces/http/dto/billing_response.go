package dto

import (
	appbilling "github.com/agency/backoffice/internal/application/billing"
	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimals amounts are rendered with
const MoneyPlaces = 2

func money(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// TotalsResponse is a rounded breakdown
type TotalsResponse struct {
	Sale             string `json:"sale"`
	Cost             string `json:"cost"`
	Tax21            string `json:"tax_21"`
	Tax105           string `json:"tax_10_5"`
	Exempt           string `json:"exempt"`
	OtherTaxes       string `json:"other_taxes"`
	CardInterest     string `json:"card_interest"`
	CardInterestBase string `json:"card_interest_base"`
	CardInterestVAT  string `json:"card_interest_vat"`
	CommissionPool   string `json:"commission_pool"`
	TaxableBase21    string `json:"taxable_base_21"`
	TaxableBase105   string `json:"taxable_base_10_5"`
	ExemptBase       string `json:"exempt_base"`
	VAT21            string `json:"vat_21"`
	VAT105           string `json:"vat_10_5"`
	TransferFee      string `json:"transfer_fee"`
	NetCommission    string `json:"net_commission"`
	SaleWithInterest string `json:"sale_with_interest"`
}

// AdjustmentItemResponse is one computed adjustment line
type AdjustmentItemResponse struct {
	RuleID    string `json:"rule_id,omitempty"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Basis     string `json:"basis,omitempty"`
	ValueType string `json:"value_type,omitempty"`
	Value     string `json:"value"`
	Amount    string `json:"amount"`
	Source    string `json:"source"`
	ServiceID string `json:"service_id,omitempty"`
}

// AdjustmentsResponse lists adjustment lines and their totals
type AdjustmentsResponse struct {
	Items      []AdjustmentItemResponse `json:"items"`
	TotalCosts string                   `json:"total_costs"`
	TotalTaxes string                   `json:"total_taxes"`
	Total      string                   `json:"total"`
}

// LeaderResponse is a leader percentage and, when computed, its amount
type LeaderResponse struct {
	UserID string `json:"user_id"`
	Pct    string `json:"pct"`
	Amount string `json:"amount,omitempty"`
}

// CommissionResponse is the split a scope resolved to
type CommissionResponse struct {
	SellerPct string           `json:"seller_pct"`
	Leaders   []LeaderResponse `json:"leaders"`
	Source    string           `json:"source"`
	FellBack  bool             `json:"fell_back"`
	Clamped   bool             `json:"clamped"`
}

// EarningsResponse splits a commission base between seller, leaders and owner
type EarningsResponse struct {
	Base    string           `json:"base"`
	Seller  string           `json:"seller"`
	Leaders []LeaderResponse `json:"leaders"`
	Owner   string           `json:"owner"`
}

// DebtRowResponse is the client balance of a service
type DebtRowResponse struct {
	ServiceID string `json:"service_id"`
	Sale      string `json:"sale"`
	Paid      string `json:"paid"`
	Debt      string `json:"debt"`
}

// CurrencyDebtResponse is the client and operator balance of a currency
type CurrencyDebtResponse struct {
	Sale         string `json:"sale"`
	Paid         string `json:"paid"`
	Unallocated  string `json:"unallocated"`
	Orphaned     string `json:"orphaned"`
	Debt         string `json:"debt"`
	OperatorDebt string `json:"operator_debt"`
}

// OperatorDebtLineResponse is the pending operator amount of a service
type OperatorDebtLineResponse struct {
	ServiceID string `json:"service_id"`
	Amount    string `json:"amount"`
}

// ServiceSummaryResponse is one service inside a currency summary
type ServiceSummaryResponse struct {
	ServiceID         string              `json:"service_id"`
	Type              string              `json:"type,omitempty"`
	TransferFeePct    string              `json:"transfer_fee_pct"`
	TransferFeeSource string              `json:"transfer_fee_source"`
	Totals            TotalsResponse      `json:"totals"`
	Adjustments       AdjustmentsResponse `json:"adjustments"`
	CommissionBase    string              `json:"commission_base"`
	Commission        *CommissionResponse `json:"commission,omitempty"`
	Earnings          *EarningsResponse   `json:"earnings,omitempty"`
	Debt              DebtRowResponse     `json:"debt"`
}

// CurrencySummaryResponse is the rounded summary of one currency
type CurrencySummaryResponse struct {
	Currency          string                     `json:"currency"`
	Mode              string                     `json:"mode"`
	Aggregated        bool                       `json:"aggregated"`
	Totals            TotalsResponse             `json:"totals"`
	Services          []ServiceSummaryResponse   `json:"services"`
	Adjustments       AdjustmentsResponse        `json:"adjustments"`
	CommissionBase    string                     `json:"commission_base"`
	Commission        CommissionResponse         `json:"commission"`
	Earnings          EarningsResponse           `json:"earnings"`
	FromFeed          bool                       `json:"from_feed"`
	OwnerPct          string                     `json:"owner_pct"`
	Debt              CurrencyDebtResponse       `json:"debt"`
	Rows              []DebtRowResponse          `json:"rows"`
	OperatorDebtLines []OperatorDebtLineResponse `json:"operator_debt_lines"`
}

// SummaryResponse is the body returned by POST /bookings/:id/summary
type SummaryResponse struct {
	BookingID     string                    `json:"booking_id"`
	Mode          string                    `json:"mode"`
	UsingDefaults bool                      `json:"using_defaults"`
	Currencies    []CurrencySummaryResponse `json:"currencies"`
}

// ToSummaryResponse rounds a summary result for display
func ToSummaryResponse(res *appbilling.SummaryResult) SummaryResponse {
	out := SummaryResponse{
		BookingID:     res.BookingID,
		Mode:          string(res.Mode),
		UsingDefaults: res.UsingDefaults,
		Currencies:    make([]CurrencySummaryResponse, 0, len(res.Summaries)),
	}
	for _, s := range res.Summaries {
		out.Currencies = append(out.Currencies, toCurrencySummaryResponse(s))
	}
	return out
}

func toCurrencySummaryResponse(s billing.CurrencySummary) CurrencySummaryResponse {
	out := CurrencySummaryResponse{
		Currency:       s.Currency,
		Mode:           string(s.Mode),
		Aggregated:     s.Aggregated,
		Totals:         toTotalsResponse(s.Totals),
		Services:       make([]ServiceSummaryResponse, 0, len(s.Services)),
		Adjustments:    toAdjustmentsResponse(s.Adjustments),
		CommissionBase: money(s.CommissionBase),
		Commission:     toCommissionResponse(s.Commission),
		Earnings:       toEarningsResponse(s.Earnings),
		FromFeed:       s.FromFeed,
		OwnerPct:       s.OwnerPct.String(),
		Debt: CurrencyDebtResponse{
			Sale:         money(s.Debt.Sale),
			Paid:         money(s.Debt.Paid),
			Unallocated:  money(s.Debt.Unallocated),
			Orphaned:     money(s.Debt.Orphaned),
			Debt:         money(s.Debt.Debt),
			OperatorDebt: money(s.Debt.OperatorDebt),
		},
		Rows:              make([]DebtRowResponse, 0, len(s.Rows)),
		OperatorDebtLines: make([]OperatorDebtLineResponse, 0, len(s.OperatorDebtLines)),
	}
	for _, svc := range s.Services {
		out.Services = append(out.Services, toServiceSummaryResponse(svc))
	}
	for _, row := range s.Rows {
		out.Rows = append(out.Rows, toDebtRowResponse(row))
	}
	for _, line := range s.OperatorDebtLines {
		out.OperatorDebtLines = append(out.OperatorDebtLines, OperatorDebtLineResponse{
			ServiceID: line.ServiceID,
			Amount:    money(line.Amount),
		})
	}
	return out
}

func toServiceSummaryResponse(s billing.ServiceSummary) ServiceSummaryResponse {
	out := ServiceSummaryResponse{
		ServiceID:         s.ServiceID,
		Type:              s.Type,
		TransferFeePct:    s.TransferFeePct.String(),
		TransferFeeSource: string(s.TransferFeeSource),
		Totals:            toTotalsResponse(s.Totals),
		Adjustments:       toAdjustmentsResponse(s.Adjustments),
		CommissionBase:    money(s.CommissionBase),
		Debt:              toDebtRowResponse(s.Debt),
	}
	if s.Commission != nil {
		c := toCommissionResponse(*s.Commission)
		out.Commission = &c
	}
	if s.Earnings != nil {
		e := toEarningsResponse(*s.Earnings)
		out.Earnings = &e
	}
	return out
}

func toTotalsResponse(t billing.Totals) TotalsResponse {
	r := t.Rounded(MoneyPlaces)
	return TotalsResponse{
		Sale:             money(r.Sale),
		Cost:             money(r.Cost),
		Tax21:            money(r.Tax21),
		Tax105:           money(r.Tax105),
		Exempt:           money(r.Exempt),
		OtherTaxes:       money(r.OtherTaxes),
		CardInterest:     money(r.CardInterest),
		CardInterestBase: money(r.CardInterestBase),
		CardInterestVAT:  money(r.CardInterestVAT),
		CommissionPool:   money(r.CommissionPool),
		TaxableBase21:    money(r.TaxableBase21),
		TaxableBase105:   money(r.TaxableBase105),
		ExemptBase:       money(r.ExemptBase),
		VAT21:            money(r.VAT21),
		VAT105:           money(r.VAT105),
		TransferFee:      money(r.TransferFee),
		NetCommission:    money(r.NetCommission),
		SaleWithInterest: money(r.SaleWithInterest),
	}
}

func toAdjustmentsResponse(a billing.AdjustmentResult) AdjustmentsResponse {
	out := AdjustmentsResponse{
		Items:      make([]AdjustmentItemResponse, 0, len(a.Items)),
		TotalCosts: money(a.TotalCosts),
		TotalTaxes: money(a.TotalTaxes),
		Total:      money(a.Total),
	}
	for _, item := range a.Items {
		out.Items = append(out.Items, AdjustmentItemResponse{
			RuleID:    item.RuleID,
			Name:      item.Name,
			Kind:      string(item.Kind),
			Basis:     string(item.Basis),
			ValueType: string(item.ValueType),
			Value:     item.Value.String(),
			Amount:    money(item.Amount),
			Source:    string(item.Source),
			ServiceID: item.ServiceID,
		})
	}
	return out
}

func toCommissionResponse(r commission.Resolution) CommissionResponse {
	out := CommissionResponse{
		SellerPct: r.SellerPct.String(),
		Leaders:   make([]LeaderResponse, 0, len(r.Leaders)),
		Source:    string(r.Source),
		FellBack:  r.FellBack,
		Clamped:   r.Clamped,
	}
	for _, l := range r.Leaders {
		out.Leaders = append(out.Leaders, LeaderResponse{UserID: l.UserID, Pct: l.Pct.String()})
	}
	return out
}

func toEarningsResponse(e commission.Earnings) EarningsResponse {
	out := EarningsResponse{
		Base:    money(e.Base),
		Seller:  money(e.Seller),
		Leaders: make([]LeaderResponse, 0, len(e.Leaders)),
		Owner:   money(e.Owner),
	}
	for _, l := range e.Leaders {
		out.Leaders = append(out.Leaders, LeaderResponse{
			UserID: l.UserID,
			Pct:    l.Pct.String(),
			Amount: money(l.Amount),
		})
	}
	return out
}

func toDebtRowResponse(row billing.DebtRow) DebtRowResponse {
	return DebtRowResponse{
		ServiceID: row.ServiceID,
		Sale:      money(row.Sale),
		Paid:      money(row.Paid),
		Debt:      money(row.Debt),
	}
}

// CommissionOverrideResponse echoes a stored override
type CommissionOverrideResponse struct {
	BookingID string           `json:"booking_id"`
	Scope     string           `json:"scope"`
	Key       string           `json:"key,omitempty"`
	SellerPct string           `json:"seller_pct"`
	Leaders   []LeaderResponse `json:"leaders"`
}

// ToCommissionOverrideResponse renders a stored split, leaders sorted by id
func ToCommissionOverrideResponse(bookingID string, target commission.Target, split commission.Split) CommissionOverrideResponse {
	out := CommissionOverrideResponse{
		BookingID: bookingID,
		Scope:     string(target.Scope),
		Key:       target.Key,
		SellerPct: split.SellerPct.String(),
		Leaders:   make([]LeaderResponse, 0, len(split.Leaders)),
	}
	for _, id := range split.LeaderIDs() {
		out.Leaders = append(out.Leaders, LeaderResponse{UserID: id, Pct: split.Leaders[id].String()})
	}
	return out
}

// CommissionRuleResponse echoes a stored base rule
type CommissionRuleResponse struct {
	BookingID string           `json:"booking_id"`
	OwnerPct  string           `json:"owner_pct"`
	SellerPct string           `json:"seller_pct"`
	Leaders   []LeaderResponse `json:"leaders"`
	Discarded []string         `json:"discarded,omitempty"`
}

// ToCommissionRuleResponse renders a stored feed, leaders in rule order
func ToCommissionRuleResponse(bookingID string, feed *commission.Feed) CommissionRuleResponse {
	rule := feed.BaseRule()
	out := CommissionRuleResponse{
		BookingID: bookingID,
		OwnerPct:  feed.OwnerPct.String(),
		SellerPct: rule.SellerPct.String(),
		Leaders:   make([]LeaderResponse, 0, len(rule.Leaders)),
		Discarded: feed.Discarded,
	}
	for _, l := range rule.Leaders {
		out.Leaders = append(out.Leaders, LeaderResponse{UserID: l.UserID, Pct: l.Pct.String()})
	}
	return out
}
