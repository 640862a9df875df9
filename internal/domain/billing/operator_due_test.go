package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPendingStatus(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{"PENDING", true},
		{"pending", true},
		{" Pending payment", true},
		{"PENDÍNG", true},
		{"pendïng_operator", true},
		{"PAID", false},
		{"", false},
		{"NOT PENDING", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPendingStatus(tt.status))
		})
	}
}

func TestOperatorDebt(t *testing.T) {
	dues := []OperatorDue{
		{ID: "1", Amount: d("100"), Currency: "usd", Status: "pending", ServiceID: "b"},
		{ID: "2", Amount: d("50"), Currency: "USD", Status: "PENDING", ServiceID: "b"},
		{ID: "3", Amount: d("30"), Currency: "USD", Status: "Pendiente", ServiceID: "a"},
		{ID: "4", Amount: d("999"), Currency: "USD", Status: "PAID", ServiceID: "a"},
		{ID: "5", Amount: d("10"), Currency: "ARS", Status: "PENDING"},
	}

	lines := OperatorDebt(dues)

	require.Len(t, lines, 2)
	assert.Equal(t, "ARS", lines[0].Currency)
	assert.Equal(t, NoServiceKey, lines[0].ServiceID)
	assertDecimal(t, "10", lines[0].Amount)
	assert.Equal(t, "USD", lines[1].Currency)
	assert.Equal(t, "b", lines[1].ServiceID)
	assertDecimal(t, "150", lines[1].Amount)

	totals := OperatorDebtByCurrency(lines)
	assertDecimal(t, "150", totals["USD"])
	assertDecimal(t, "10", totals["ARS"])
}
