package billing

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const pendingPrefix = "PENDING"

// NoServiceKey groups operator dues not attached to a service
const NoServiceKey = "none"

var statusUpper = cases.Upper(language.Und)

// NormalizeStatus strips diacritics and upper-cases a status label
func NormalizeStatus(status string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(status))
	if err != nil {
		folded = strings.TrimSpace(status)
	}
	return statusUpper.String(folded)
}

// IsPendingStatus reports whether an operator due still counts as owed
func IsPendingStatus(status string) bool {
	return strings.HasPrefix(NormalizeStatus(status), pendingPrefix)
}

// OperatorDebtLine is the pending amount owed for one (currency, service) pair
type OperatorDebtLine struct {
	Currency  string
	ServiceID string
	Amount    decimal.Decimal
}

// OperatorDebt sums pending dues grouped by currency and service.
// Dues are never netted against client receipts. Lines are sorted by
// currency then service.
func OperatorDebt(dues []OperatorDue) []OperatorDebtLine {
	type key struct{ currency, service string }
	sums := make(map[key]decimal.Decimal)
	for _, due := range dues {
		if !IsPendingStatus(due.Status) {
			continue
		}
		k := key{currency: valueobject.NormalizeCurrency(due.Currency), service: due.ServiceID}
		if k.service == "" {
			k.service = NoServiceKey
		}
		if k.currency == "" {
			continue
		}
		sums[k] = sums[k].Add(due.Amount)
	}

	lines := make([]OperatorDebtLine, 0, len(sums))
	for k, amount := range sums {
		lines = append(lines, OperatorDebtLine{Currency: k.currency, ServiceID: k.service, Amount: amount})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Currency != lines[j].Currency {
			return lines[i].Currency < lines[j].Currency
		}
		return lines[i].ServiceID < lines[j].ServiceID
	})
	return lines
}

// OperatorDebtByCurrency totals operator debt lines per currency
func OperatorDebtByCurrency(lines []OperatorDebtLine) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, line := range lines {
		out[line.Currency] = out[line.Currency].Add(line.Amount)
	}
	return out
}
