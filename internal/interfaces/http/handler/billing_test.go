package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appbilling "github.com/agency/backoffice/internal/application/billing"
	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSummaryService is a mock implementation of SummaryService
type MockSummaryService struct {
	mock.Mock
}

func (m *MockSummaryService) Summarize(ctx context.Context, bookingID string, req appbilling.SummaryRequest) (*appbilling.SummaryResult, error) {
	args := m.Called(ctx, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.SummaryResult), args.Error(1)
}

func (m *MockSummaryService) SaveCommissionRule(ctx context.Context, bookingID string, feed *commission.Feed) error {
	args := m.Called(ctx, bookingID, feed)
	return args.Error(0)
}

func (m *MockSummaryService) SaveCommissionOverride(ctx context.Context, bookingID string, target commission.Target, split commission.Split) error {
	args := m.Called(ctx, bookingID, target, split)
	return args.Error(0)
}

func (m *MockSummaryService) DeleteCommissionOverride(ctx context.Context, bookingID string, target commission.Target) error {
	args := m.Called(ctx, bookingID, target)
	return args.Error(0)
}

func newBillingRouter(svc SummaryService) *gin.Engine {
	router := gin.New()
	NewBillingHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBillingHandler_Summarize(t *testing.T) {
	t.Run("returns rounded summaries with retrieval meta", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("Summarize", mock.Anything, "b-1", mock.MatchedBy(func(req appbilling.SummaryRequest) bool {
			return len(req.Services) == 1 && req.Services[0].SalePrice.Equal(decimal.RequireFromString("121")) &&
				len(req.Receipts) == 1 && req.Commission == nil
		})).Return(&appbilling.SummaryResult{
			BookingID: "b-1",
			Seq:       4,
			Mode:      billing.BreakdownModeAuto,
			Summaries: []billing.CurrencySummary{{
				Currency: "USD",
				Mode:     billing.BreakdownModeAuto,
				Totals:   billing.Totals{Sale: decimal.RequireFromString("121"), NetCommission: decimal.RequireFromString("16.5289")},
			}},
		}, nil)

		w := doJSON(newBillingRouter(svc), http.MethodPost, "/api/v1/bookings/b-1/summary",
			`{"services": [{"id": "s1", "currency": "USD", "sale_price": "121", "cost_price": "100"}],
			  "receipts": [{"id": "r1", "amount": 50, "currency": "USD"}]}`)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"net_commission":"16.53"`)
		assert.Contains(t, body, `"retrieval_id":4`)
		assert.Contains(t, body, `"currency":"USD"`)
		svc.AssertExpectations(t)
	})

	t.Run("feed override is parsed and passed on", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("Summarize", mock.Anything, "b-1", mock.MatchedBy(func(req appbilling.SummaryRequest) bool {
			return req.Commission != nil && req.Commission.Rule != nil
		})).Return(&appbilling.SummaryResult{BookingID: "b-1"}, nil)

		w := doJSON(newBillingRouter(svc), http.MethodPost, "/api/v1/bookings/b-1/summary",
			`{"commission": {"rule": {"sellerPct": "30", "leaders": []}}}`)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("malformed feed is a 400", func(t *testing.T) {
		svc := new(MockSummaryService)

		w := doJSON(newBillingRouter(svc), http.MethodPost, "/api/v1/bookings/b-1/summary", `{"commission": "nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeCommissionFeed)
		svc.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad currency code is a validation error", func(t *testing.T) {
		svc := new(MockSummaryService)

		w := doJSON(newBillingRouter(svc), http.MethodPost, "/api/v1/bookings/b-1/summary",
			`{"services": [{"id": "s1", "currency": "DOLLARS"}]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"services[0].currency"`)
	})

	t.Run("stale retrieval is a 409", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("Summarize", mock.Anything, "b-1", mock.Anything).Return(nil, appbilling.ErrStaleRetrieval)

		w := doJSON(newBillingRouter(svc), http.MethodPost, "/api/v1/bookings/b-1/summary", `{}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeStaleRetrieval)
	})
}

func TestBillingHandler_SaveCommissionOverride(t *testing.T) {
	t.Run("currency override", func(t *testing.T) {
		svc := new(MockSummaryService)
		target := commission.Target{Scope: commission.ScopeCurrency, Key: "USD"}
		svc.On("SaveCommissionOverride", mock.Anything, "b-1", target, mock.MatchedBy(func(s commission.Split) bool {
			return s.SellerPct.Equal(decimal.NewFromInt(40)) && s.Leaders["lead"].Equal(decimal.NewFromInt(10))
		})).Return(nil)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission-overrides/currency?key=usd",
			`{"seller_pct": "40", "leaders": [{"user_id": "lead", "pct": 10}]}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"scope":"currency"`)
		assert.Contains(t, w.Body.String(), `"key":"USD"`)
		svc.AssertExpectations(t)
	})

	t.Run("booking override ignores the key", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("SaveCommissionOverride", mock.Anything, "b-1", commission.Target{Scope: commission.ScopeBooking}, mock.Anything).Return(nil)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission-overrides/booking?key=ignored",
			`{"seller_pct": 25}`)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown scope", func(t *testing.T) {
		svc := new(MockSummaryService)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission-overrides/agency", `{"seller_pct": 25}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeCommissionScope)
	})

	t.Run("service scope without key", func(t *testing.T) {
		svc := new(MockSummaryService)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission-overrides/service", `{"seller_pct": 25}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeCommissionScopeKey)
	})

	t.Run("split rejected by the service", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("SaveCommissionOverride", mock.Anything, "b-1", mock.Anything, mock.Anything).Return(commission.ErrInvalidSplit)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission-overrides/service?key=s1",
			`{"seller_pct": 90, "leaders": [{"user_id": "lead", "pct": 20}]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeCommissionSplit)
	})

	t.Run("missing seller pct", func(t *testing.T) {
		svc := new(MockSummaryService)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission-overrides/booking", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
	})
}

func TestBillingHandler_SaveCommissionRule(t *testing.T) {
	t.Run("stores the parsed rule", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("SaveCommissionRule", mock.Anything, "b-1", mock.MatchedBy(func(f *commission.Feed) bool {
			rule := f.BaseRule()
			return f.OwnerPct.Equal(decimal.NewFromInt(10)) &&
				rule.SellerPct.Equal(decimal.NewFromInt(50)) &&
				len(rule.Leaders) == 1 && rule.Leaders[0].UserID == "lead"
		})).Return(nil)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission",
			`{"ownerPct": 10, "rule": {"sellerPct": 50, "leaders": {"lead": 15}}}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"seller_pct":"50"`)
		assert.Contains(t, w.Body.String(), `"user_id":"lead"`)
		svc.AssertExpectations(t)
	})

	t.Run("body that is not an object", func(t *testing.T) {
		svc := new(MockSummaryService)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission", `[1, 2]`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeCommissionFeed)
		svc.AssertNotCalled(t, "SaveCommissionRule", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rule rejected by the service", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("SaveCommissionRule", mock.Anything, "b-1", mock.Anything).Return(commission.ErrInvalidSplit)

		w := doJSON(newBillingRouter(svc), http.MethodPut, "/api/v1/bookings/b-1/commission",
			`{"rule": {"sellerPct": 90, "leaders": {"lead": 20}}}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeCommissionSplit)
	})
}

func TestBillingHandler_DeleteCommissionOverride(t *testing.T) {
	t.Run("deletes", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("DeleteCommissionOverride", mock.Anything, "b-1", commission.Target{Scope: commission.ScopeService, Key: "s1"}).Return(nil)

		w := doJSON(newBillingRouter(svc), http.MethodDelete, "/api/v1/bookings/b-1/commission-overrides/service?key=s1", "")

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing override is a 404", func(t *testing.T) {
		svc := new(MockSummaryService)
		svc.On("DeleteCommissionOverride", mock.Anything, "b-1", mock.Anything).Return(shared.ErrNotFound)

		w := doJSON(newBillingRouter(svc), http.MethodDelete, "/api/v1/bookings/b-1/commission-overrides/booking", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeNotFound)
	})
}
