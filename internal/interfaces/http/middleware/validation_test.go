package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agency/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type currencyPayload struct {
	Currency string `json:"currency" binding:"omitempty,currency_code" validate:"omitempty,currency_code"`
}

func TestValidateCurrencyCode(t *testing.T) {
	v := validator.New()
	RegisterValidations(v)

	tests := []struct {
		code  string
		valid bool
	}{
		{"USD", true},
		{"ars", true},
		{" eur ", true},
		{"", true},
		{"US", false},
		{"USDT", false},
		{"U5D", false},
		{"ÜSD", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := v.Struct(currencyPayload{Currency: tt.code})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFormatValidationErrors(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.PUT("/overrides", func(c *gin.Context) {
		var req dto.CommissionOverrideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	t.Run("missing seller pct and duplicated leader", func(t *testing.T) {
		body := `{"leaders": [{"user_id": "l1", "pct": 5}, {"user_id": "l1", "pct": 5}]}`
		req := httptest.NewRequest(http.MethodPut, "/overrides", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "req-v")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
		assert.Contains(t, w.Body.String(), `"field":"seller_pct"`)
		assert.Contains(t, w.Body.String(), `"field":"leaders"`)
		assert.Contains(t, w.Body.String(), "req-v")
	})

	t.Run("leader without id", func(t *testing.T) {
		body := `{"seller_pct": "30", "leaders": [{"pct": 5}]}`
		req := httptest.NewRequest(http.MethodPut, "/overrides", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"leaders[0].user_id"`)
		assert.Contains(t, w.Body.String(), "This field is required")
	})

	t.Run("valid body passes", func(t *testing.T) {
		body := `{"seller_pct": 30, "leaders": [{"user_id": "l1", "pct": "5"}]}`
		req := httptest.NewRequest(http.MethodPut, "/overrides", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestFormatValidationErrors_NonValidationError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "req")

	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}
