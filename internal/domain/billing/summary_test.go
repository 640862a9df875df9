package billing

import (
	"testing"

	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryFixture() SummaryInput {
	cfg := DefaultCalcConfig()
	cfg.Adjustments = []AdjustmentRule{
		{ID: "iibb", Name: "Gross income", Kind: AdjustmentKindTax, Basis: AdjustmentBasisSale, ValueType: AdjustmentValuePercent, Value: d("0.01"), Active: true, Source: AdjustmentSourceGlobal},
	}

	rule := commission.Rule{
		SellerPct: d("50"),
		Leaders:   []commission.LeaderSplit{{UserID: "lead-1", Pct: d("10")}},
	}

	return SummaryInput{
		Services: []Service{
			{ID: "hotel-1", Type: "hotel", Currency: "usd", SalePrice: d("1000"), CostPrice: d("800"), Tax21: d("21")},
			{ID: "tour-1", Type: "tour", Currency: "USD", SalePrice: d("500"), CostPrice: d("400")},
			{ID: "bus-1", Type: "bus", Currency: "ARS", SalePrice: d("20000"), CostPrice: d("15000"), Exempt: d("20000")},
			{ID: "empty-1", Type: "misc", Currency: "EUR", SalePrice: decimal.Zero, CostPrice: d("10")},
		},
		Receipts: []Receipt{
			{ID: "r1", Amount: d("600"), Currency: "USD"},
		},
		OperatorDues: []OperatorDue{
			{ID: "o1", Amount: d("300"), Currency: "BRL", Status: "PENDING"},
		},
		Config: cfg,
		Commission: &commission.Feed{
			OwnerPct: d("40"),
			Rule:     &rule,
			Overrides: commission.Overrides{
				Currency: map[string]commission.Split{"ARS": {SellerPct: d("70"), Leaders: map[string]decimal.Decimal{}}},
				Service:  map[string]commission.Split{"tour-1": {SellerPct: d("90"), Leaders: map[string]decimal.Decimal{"lead-1": d("5")}}},
			},
		},
	}
}

func summaryFor(t *testing.T, summaries []CurrencySummary, cur string) CurrencySummary {
	t.Helper()
	for _, s := range summaries {
		if s.Currency == cur {
			return s
		}
	}
	require.Failf(t, "summary not found", "currency %s", cur)
	return CurrencySummary{}
}

func TestSummarize_CurrenciesSortedAndFiltered(t *testing.T) {
	summaries := Summarize(summaryFixture())

	currencies := make([]string, 0, len(summaries))
	for _, s := range summaries {
		currencies = append(currencies, s.Currency)
	}
	assert.Equal(t, []string{"ARS", "BRL", "USD"}, currencies, "EUR has no sale, payment or operator debt")

	brl := summaryFor(t, summaries, "BRL")
	assertDecimal(t, "300", brl.Debt.OperatorDebt)
	require.Len(t, brl.OperatorDebtLines, 1)
	assert.Equal(t, NoServiceKey, brl.OperatorDebtLines[0].ServiceID)
	assert.Empty(t, brl.Services)
}

func TestSummarize_PerServiceMode(t *testing.T) {
	in := summaryFixture()

	usd := summaryFor(t, Summarize(in), "USD")

	assert.False(t, usd.Aggregated)
	require.Len(t, usd.Services, 2)
	assertDecimal(t, "1500", usd.Totals.Sale)

	hotel := usd.Services[0]
	tour := usd.Services[1]
	assert.Equal(t, TransferFeeSourceFallback, hotel.TransferFeeSource)
	assertDecimal(t, "0.024", hotel.TransferFeePct)

	// one global adjustment per service
	require.Len(t, usd.Adjustments.Items, 2)
	assertDecimal(t, "15", usd.Adjustments.Total)

	assert.True(t, usd.Totals.NetCommission.Sub(usd.Adjustments.Total).Equal(usd.CommissionBase))
	assert.True(t, hotel.CommissionBase.Add(tour.CommissionBase).Equal(usd.CommissionBase))

	require.NotNil(t, tour.Commission)
	assert.Equal(t, commission.SourceService, tour.Commission.Source)
	assertDecimal(t, "90", tour.Commission.SellerPct)
	require.NotNil(t, hotel.Commission)
	assert.Equal(t, commission.SourceBase, hotel.Commission.Source)
	assertDecimal(t, "50", hotel.Commission.SellerPct)

	assert.Equal(t, commission.SourceBase, usd.Commission.Source, "currency label never uses service overrides")
	expectedSeller := hotel.Earnings.Seller.Add(tour.Earnings.Seller)
	assert.True(t, expectedSeller.Equal(usd.Earnings.Seller))
	assert.False(t, usd.FromFeed)
	assertDecimal(t, "40", usd.OwnerPct)

	assertDecimal(t, "600", usd.Debt.Paid)
	assertDecimal(t, "900", usd.Debt.Debt)
	require.Len(t, usd.Rows, 2)

	ars := summaryFor(t, Summarize(in), "ARS")
	assert.Equal(t, commission.SourceCurrency, ars.Commission.Source)
	assertDecimal(t, "70", ars.Commission.SellerPct)
}

func TestSummarize_AggregateMode(t *testing.T) {
	in := summaryFixture()
	in.Config.UseBookingSaleTotal = true
	in.BookingSaleTotals = map[string]decimal.Decimal{"usd": d("1600")}

	usd := summaryFor(t, Summarize(in), "USD")

	assert.True(t, usd.Aggregated)
	assertDecimal(t, "1600", usd.Totals.Sale)
	assertDecimal(t, "1200", usd.Totals.Cost)
	require.Len(t, usd.Adjustments.Items, 1, "global rules are computed once per currency")
	assertDecimal(t, "16", usd.Adjustments.Total)
	assertDecimal(t, "1600", usd.Debt.Sale)
	assertDecimal(t, "1000", usd.Debt.Debt)

	for _, svc := range usd.Services {
		assert.Nil(t, svc.Commission, "service overrides are not resolved in aggregate mode")
		assert.Empty(t, svc.Adjustments.Items)
	}
	assert.True(t, usd.CommissionBase.Mul(d("0.5")).Equal(usd.Earnings.Seller))
}

func TestSummarize_PrefersFeedFigures(t *testing.T) {
	in := summaryFixture()
	in.Commission.CommissionBaseByCurrency = map[string]decimal.Decimal{"USD": d("200")}
	in.Commission.SellerEarningsByCurrency = map[string]decimal.Decimal{"USD": d("123")}

	usd := summaryFor(t, Summarize(in), "USD")

	assert.True(t, usd.FromFeed)
	assertDecimal(t, "200", usd.CommissionBase)
	assertDecimal(t, "123", usd.Earnings.Seller)
	require.Len(t, usd.Earnings.Leaders, 1)
	assertDecimal(t, "20", usd.Earnings.Leaders[0].Amount)
	assertDecimal(t, "57", usd.Earnings.Owner)

	ars := summaryFor(t, Summarize(in), "ARS")
	assert.False(t, ars.FromFeed)
}

func TestSummarize_Idempotent(t *testing.T) {
	in := summaryFixture()

	first := Summarize(in)
	second := Summarize(in)

	assert.Equal(t, first, second)
}

func TestSummarize_WithoutFeed(t *testing.T) {
	in := summaryFixture()
	in.Commission = nil

	usd := summaryFor(t, Summarize(in), "USD")

	assert.Equal(t, commission.SourceBase, usd.Commission.Source)
	assertDecimal(t, "0", usd.Earnings.Seller)
	assert.True(t, usd.CommissionBase.Equal(usd.Earnings.Owner))
}
