package billing

import (
	"sort"

	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SummaryInput is one booking's snapshot.
// BookingSaleTotals is only read when Config.UseBookingSaleTotal is set.
// A nil Commission feed means local computation with an empty rule.
type SummaryInput struct {
	Services              []Service
	Receipts              []Receipt
	OperatorDues          []OperatorDue
	Config                CalcConfig
	BookingSaleTotals     map[string]decimal.Decimal
	Commission            *commission.Feed
	DefaultTransferFeePct *decimal.Decimal
}

// ServiceSummary is the breakdown of one service inside a currency summary.
// Adjustments, Commission and Earnings stay empty in aggregate mode.
type ServiceSummary struct {
	ServiceID         string
	Type              string
	TransferFeePct    decimal.Decimal
	TransferFeeSource TransferFeeSource
	Totals            Totals
	Adjustments       AdjustmentResult
	CommissionBase    decimal.Decimal
	Commission        *commission.Resolution
	Earnings          *commission.Earnings
	Debt              DebtRow
}

// CurrencySummary merges breakdown, adjustments, commission and debt of a currency
type CurrencySummary struct {
	Currency   string
	Mode       BreakdownMode
	Aggregated bool

	Totals      Totals
	Services    []ServiceSummary
	Adjustments AdjustmentResult

	// CommissionBase is net commission minus adjustments, unless FromFeed
	CommissionBase decimal.Decimal
	Commission     commission.Resolution
	Earnings       commission.Earnings
	FromFeed       bool
	OwnerPct       decimal.Decimal

	Debt              CurrencyDebt
	Rows              []DebtRow
	OperatorDebtLines []OperatorDebtLine
}

// Summarize computes one summary per currency with sales, payments or pending
// operator dues, sorted by currency code. It is a pure function of its input.
func Summarize(in SummaryInput) []CurrencySummary {
	cfg := in.Config
	if !cfg.Mode.IsValid() {
		cfg.Mode = BreakdownModeAuto
	}
	services := normalizeServices(in.Services)

	var aggregateSale map[string]decimal.Decimal
	if cfg.UseBookingSaleTotal {
		aggregateSale = make(map[string]decimal.Decimal, len(in.BookingSaleTotals))
		for cur, total := range in.BookingSaleTotals {
			aggregateSale[valueobject.NormalizeCurrency(cur)] = total
		}
	}

	alloc := Allocate(AllocationInput{
		Mode:          cfg.Mode,
		Services:      services,
		Receipts:      in.Receipts,
		OperatorDues:  in.OperatorDues,
		AggregateSale: aggregateSale,
	})

	byCurrency := make(map[string][]Service)
	for _, svc := range services {
		byCurrency[svc.Currency] = append(byCurrency[svc.Currency], svc)
	}

	feed := in.Commission
	if feed == nil {
		feed = commission.EmptyFeed()
	}

	summaries := make([]CurrencySummary, 0, len(alloc.ByCurrency))
	for _, cur := range alloc.Currencies() {
		debt := alloc.ByCurrency[cur]
		if debt.Sale.IsZero() && debt.Paid.IsZero() && debt.OperatorDebt.IsZero() {
			continue
		}
		s := summarizeCurrency(cur, byCurrency[cur], cfg, aggregateSale, feed, in.DefaultTransferFeePct, alloc)
		summaries = append(summaries, s)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Currency < summaries[j].Currency
	})
	return summaries
}

func summarizeCurrency(
	cur string,
	services []Service,
	cfg CalcConfig,
	aggregateSale map[string]decimal.Decimal,
	feed *commission.Feed,
	fallbackPct *decimal.Decimal,
	alloc AllocationResult,
) CurrencySummary {
	s := CurrencySummary{
		Currency:          cur,
		Mode:              cfg.Mode,
		Aggregated:        cfg.UseBookingSaleTotal,
		Totals:            ZeroTotals(),
		Services:          make([]ServiceSummary, 0, len(services)),
		Adjustments:       EmptyAdjustments(),
		Earnings:          commission.ZeroEarnings(),
		OwnerPct:          feed.OwnerPct,
		Debt:              alloc.ByCurrency[cur],
		Rows:              alloc.RowsFor(cur),
		OperatorDebtLines: operatorLinesFor(alloc.OperatorDebt, cur),
	}

	rows := make(map[string]DebtRow, len(s.Rows))
	for _, row := range s.Rows {
		if _, dup := rows[row.ServiceID]; !dup {
			rows[row.ServiceID] = row
		}
	}

	rule := feed.BaseRule()
	s.Commission = commission.Resolve(rule, feed.Overrides, commission.Context{Currency: cur})

	for _, svc := range services {
		pct, source := ResolveTransferFeePct(cfg, svc.Type, svc.TransferFeePct, fallbackPct)
		ss := ServiceSummary{
			ServiceID:         svc.ID,
			Type:              svc.Type,
			TransferFeePct:    pct,
			TransferFeeSource: source,
			Totals:            ComputeBreakdown(BreakdownInputFor(svc, cfg.Mode, pct)),
			Adjustments:       EmptyAdjustments(),
			CommissionBase:    decimal.Zero,
			Debt:              rows[svc.ID],
		}
		if !cfg.UseBookingSaleTotal {
			ss.Adjustments = ServiceAdjustments(svc, cfg.Adjustments)
			ss.CommissionBase = ss.Totals.NetCommission.Sub(ss.Adjustments.Total)
			res := commission.Resolve(rule, feed.Overrides, commission.Context{
				Currency:          cur,
				ServiceID:         svc.ID,
				AllowServiceScope: true,
			})
			earnings := commission.ComputeEarnings(ss.CommissionBase, res)
			ss.Commission = &res
			ss.Earnings = &earnings

			s.Totals = s.Totals.Add(ss.Totals)
			s.Adjustments = s.Adjustments.Merge(ss.Adjustments)
			s.Earnings = s.Earnings.Add(earnings)
		}
		s.Services = append(s.Services, ss)
	}

	if cfg.UseBookingSaleTotal {
		pct, _ := ResolveTransferFeePct(cfg, "", nil, fallbackPct)
		s.Totals = ComputeBreakdown(aggregateInput(services, cfg.Mode, aggregateSale, cur, pct))
		s.Adjustments = ComputeAdjustments(GlobalRules(cfg.Adjustments), s.Totals.Sale, s.Totals.Cost)
		for _, svc := range services {
			for _, stored := range svc.ExtraAdjustments {
				if stored.Source == AdjustmentSourceService {
					stored.ServiceID = svc.ID
					s.Adjustments.add(stored)
				}
			}
		}
	}

	s.CommissionBase = s.Totals.NetCommission.Sub(s.Adjustments.Total)
	if cfg.UseBookingSaleTotal {
		s.Earnings = commission.ComputeEarnings(s.CommissionBase, s.Commission)
	}

	if base, ok := feed.PrecomputedBase(cur); ok {
		s.CommissionBase = base
		s.Earnings = commission.ComputeEarnings(base, s.Commission)
		s.FromFeed = true
	}
	if seller, ok := feed.PrecomputedSellerEarnings(cur); ok {
		s.Earnings.Owner = s.Earnings.Owner.Add(s.Earnings.Seller).Sub(seller)
		s.Earnings.Seller = seller
		s.FromFeed = true
	}
	return s
}

// aggregateInput folds a currency's services into one calculator input.
// The booking sale total replaces the summed sale when provided.
func aggregateInput(services []Service, mode BreakdownMode, aggregateSale map[string]decimal.Decimal, cur string, pct decimal.Decimal) BreakdownInput {
	in := BreakdownInput{
		Mode:           mode,
		Sale:           decimal.Zero,
		Cost:           decimal.Zero,
		Tax21:          decimal.Zero,
		Tax105:         decimal.Zero,
		Exempt:         decimal.Zero,
		OtherTaxes:     decimal.Zero,
		CardInterest:   decimal.Zero,
		TransferFeePct: pct,
	}
	anySplit := false
	splitBase, splitVAT := decimal.Zero, decimal.Zero
	for _, svc := range services {
		in.Sale = in.Sale.Add(svc.SalePrice)
		in.Cost = in.Cost.Add(svc.CostPrice)
		in.Tax21 = in.Tax21.Add(svc.Tax21)
		in.Tax105 = in.Tax105.Add(svc.Tax105)
		in.Exempt = in.Exempt.Add(svc.Exempt)
		in.OtherTaxes = in.OtherTaxes.Add(svc.OtherTaxes)
		in.CardInterest = in.CardInterest.Add(svc.CardInterest)
		if svc.HasCardInterestSplit() {
			anySplit = true
			splitBase = splitBase.Add(*svc.CardInterestBase)
			splitVAT = splitVAT.Add(*svc.CardInterestVAT)
		} else {
			splitBase = splitBase.Add(svc.CardInterest)
		}
	}
	if anySplit {
		in.CardInterestBase = &splitBase
		in.CardInterestVAT = &splitVAT
	}
	if total, ok := aggregateSale[cur]; ok {
		in.Sale = total
	}
	return in
}

func operatorLinesFor(lines []OperatorDebtLine, cur string) []OperatorDebtLine {
	out := make([]OperatorDebtLine, 0)
	for _, line := range lines {
		if line.Currency == cur {
			out = append(out, line)
		}
	}
	return out
}
