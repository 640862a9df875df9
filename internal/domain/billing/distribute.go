package billing

import (
	"github.com/shopspring/decimal"
)

// Distribute splits total across weights in proportion to each weight.
// Negative weights count as zero. The residual left by division lands on the
// last positive weight so the parts always sum to total exactly. When no
// weight is positive the total is split equally.
func Distribute(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(weights))
	if len(weights) == 0 {
		return parts
	}

	sum := decimal.Zero
	last := -1
	for i, w := range weights {
		parts[i] = decimal.Zero
		if w.IsPositive() {
			sum = sum.Add(w)
			last = i
		}
	}

	if last < 0 {
		return equalSplit(total, len(weights))
	}

	assigned := decimal.Zero
	for i, w := range weights {
		if !w.IsPositive() || i == last {
			continue
		}
		parts[i] = total.Mul(w).Div(sum)
		assigned = assigned.Add(parts[i])
	}
	parts[last] = total.Sub(assigned)
	return parts
}

func equalSplit(total decimal.Decimal, n int) []decimal.Decimal {
	parts := make([]decimal.Decimal, n)
	share := total.Div(decimal.NewFromInt(int64(n)))
	assigned := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = share
		assigned = assigned.Add(share)
	}
	parts[n-1] = total.Sub(assigned)
	return parts
}

func sumDecimals(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
