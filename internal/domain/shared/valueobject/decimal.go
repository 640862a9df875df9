package valueobject

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LooseDecimal decodes a JSON number or numeric string into a decimal.
// The second return value is false for null, empty and malformed input.
func LooseDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// LooseDecimalMap decodes a JSON object of numbers. Entries that fail to
// decode are skipped; a malformed object yields an empty map.
func LooseDecimalMap(raw json.RawMessage, normalizeKey func(string) string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return out
	}
	for k, v := range entries {
		d, ok := LooseDecimal(v)
		if !ok {
			continue
		}
		if normalizeKey != nil {
			k = normalizeKey(k)
		}
		if k == "" {
			continue
		}
		out[k] = d
	}
	return out
}

// LooseBool decodes a JSON boolean, also accepting "true"/"false" strings and 0/1.
func LooseBool(raw json.RawMessage) (value bool, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, false
	}
	if err := json.Unmarshal(raw, &value); err == nil {
		return value, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
		return false, false
	}
	if d, ok := LooseDecimal(raw); ok {
		return !d.IsZero(), true
	}
	return false, false
}

// PercentToProportion converts a 0-100 percentage into a 0-1 proportion.
func PercentToProportion(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(hundred)
}


// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
