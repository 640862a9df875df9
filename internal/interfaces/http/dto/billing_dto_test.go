package dto

import (
	"encoding/json"
	"testing"

	appbilling "github.com/agency/backoffice/internal/application/billing"
	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryRequest_ToSummaryRequest(t *testing.T) {
	t.Run("decodes string and number decimals", func(t *testing.T) {
		body := `{
			"services": [{"id": "s1", "currency": "usd", "sale_price": "1210.50", "cost_price": 900,
				"transfer_fee_pct": "0.03",
				"extra_adjustments": [{"name": "Gross income", "kind": "tax", "amount": "12", "source": "global"},
					{"name": "Courier", "kind": "cost", "amount": "5"}]}],
			"receipts": [{"id": "r1", "amount": "500", "currency": "USD",
				"allocations": [{"service_id": "s1", "amount": "500"}],
				"conversion": {"base_amount": "500", "base_currency": "USD", "counter_amount": "600000", "counter_currency": "ARS"}}],
			"operator_dues": [{"id": "d1", "amount": "100", "currency": "USD", "status": "pending", "service_id": "s1"}],
			"booking_sale_totals": {"USD": "1210.50"}
		}`
		var req SummaryRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))

		out, err := req.ToSummaryRequest()
		require.NoError(t, err)

		require.Len(t, out.Services, 1)
		svc := out.Services[0]
		assert.True(t, decimal.RequireFromString("1210.50").Equal(svc.SalePrice))
		assert.True(t, decimal.NewFromInt(900).Equal(svc.CostPrice))
		require.NotNil(t, svc.TransferFeePct)
		assert.Equal(t, "0.03", svc.TransferFeePct.String())
		assert.Nil(t, svc.CardInterestBase)
		require.Len(t, svc.ExtraAdjustments, 2)
		assert.Equal(t, billing.AdjustmentSourceGlobal, svc.ExtraAdjustments[0].Source)
		assert.Equal(t, billing.AdjustmentSourceService, svc.ExtraAdjustments[1].Source)
		assert.Equal(t, "s1", svc.ExtraAdjustments[1].ServiceID)

		require.Len(t, out.Receipts, 1)
		require.NotNil(t, out.Receipts[0].Conversion)
		assert.Equal(t, "ARS", out.Receipts[0].Conversion.CounterCurrency)
		assert.Len(t, out.Receipts[0].Allocations, 1)
		assert.Len(t, out.OperatorDues, 1)
		assert.Nil(t, out.Commission)
	})

	t.Run("commission feed replaces stored feed", func(t *testing.T) {
		req := SummaryRequest{Commission: json.RawMessage(`{"rule": {"sellerPct": 30, "leaders": []}}`)}

		out, err := req.ToSummaryRequest()
		require.NoError(t, err)
		require.NotNil(t, out.Commission)
		require.NotNil(t, out.Commission.Rule)
		assert.Equal(t, "30", out.Commission.Rule.SellerPct.String())
	})

	t.Run("null commission is absent", func(t *testing.T) {
		out, err := SummaryRequest{Commission: json.RawMessage(` null `)}.ToSummaryRequest()
		require.NoError(t, err)
		assert.Nil(t, out.Commission)
	})

	t.Run("commission that is not an object is rejected", func(t *testing.T) {
		_, err := SummaryRequest{Commission: json.RawMessage(`[1, 2]`)}.ToSummaryRequest()
		assert.ErrorIs(t, err, commission.ErrMalformedFeed)
	})
}

func TestCommissionOverrideRequest_ToSplit(t *testing.T) {
	seller := decimal.NewFromInt(40)
	req := CommissionOverrideRequest{
		SellerPct: &seller,
		Leaders: []LeaderSplitRequest{
			{UserID: "lead-1", Pct: decimal.NewFromInt(10)},
			{UserID: "lead-2", Pct: decimal.NewFromInt(5)},
		},
	}

	split := req.ToSplit()

	assert.True(t, seller.Equal(split.SellerPct))
	assert.Equal(t, []string{"lead-1", "lead-2"}, split.LeaderIDs())
	assert.Equal(t, "55", split.Total().String())
}

func TestToSummaryResponse(t *testing.T) {
	res := &appbilling.SummaryResult{
		BookingID:     "b-1",
		Seq:           2,
		Mode:          billing.BreakdownModeAuto,
		UsingDefaults: true,
		Summaries: []billing.CurrencySummary{{
			Currency: "USD",
			Mode:     billing.BreakdownModeAuto,
			Totals:   billing.Totals{Sale: decimal.RequireFromString("100.005"), NetCommission: decimal.RequireFromString("9.999")},
			Services: []billing.ServiceSummary{{
				ServiceID:         "s1",
				TransferFeePct:    decimal.RequireFromString("0.024"),
				TransferFeeSource: billing.TransferFeeSource("default"),
				Commission:        &commission.Resolution{SellerPct: decimal.NewFromInt(30), Source: commission.SourceService},
			}},
			Adjustments:    billing.EmptyAdjustments(),
			CommissionBase: decimal.RequireFromString("7.5"),
			Commission: commission.Resolution{
				SellerPct: decimal.NewFromInt(30),
				Leaders:   []commission.LeaderSplit{{UserID: "lead", Pct: decimal.NewFromInt(10)}},
				Source:    commission.SourceBase,
			},
			Earnings: commission.ComputeEarnings(decimal.RequireFromString("7.5"), commission.Resolution{
				SellerPct: decimal.NewFromInt(30),
				Leaders:   []commission.LeaderSplit{{UserID: "lead", Pct: decimal.NewFromInt(10)}},
			}),
			Debt: billing.CurrencyDebt{Currency: "USD", Sale: decimal.NewFromInt(100), Debt: decimal.NewFromInt(100)},
			Rows: []billing.DebtRow{{ServiceID: "s1", Currency: "USD", Sale: decimal.NewFromInt(100), Debt: decimal.NewFromInt(100)}},
		}},
	}

	out := ToSummaryResponse(res)

	assert.Equal(t, "b-1", out.BookingID)
	assert.True(t, out.UsingDefaults)
	require.Len(t, out.Currencies, 1)
	cur := out.Currencies[0]
	assert.Equal(t, "100.01", cur.Totals.Sale)
	assert.Equal(t, "10.00", cur.Totals.NetCommission)
	assert.Equal(t, "0.00", cur.Totals.VAT21)
	assert.Equal(t, "7.50", cur.CommissionBase)
	assert.Equal(t, "2.25", cur.Earnings.Seller)
	require.Len(t, cur.Earnings.Leaders, 1)
	assert.Equal(t, "0.75", cur.Earnings.Leaders[0].Amount)
	assert.Equal(t, "4.50", cur.Earnings.Owner)
	assert.Equal(t, "base", cur.Commission.Source)
	assert.Equal(t, "100.00", cur.Debt.Debt)
	assert.Empty(t, cur.Adjustments.Items)
	assert.NotNil(t, cur.OperatorDebtLines)

	require.Len(t, cur.Services, 1)
	svc := cur.Services[0]
	assert.Equal(t, "0.024", svc.TransferFeePct)
	require.NotNil(t, svc.Commission)
	assert.Equal(t, "service", svc.Commission.Source)
	assert.Nil(t, svc.Earnings)
}
