package commission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Feed is the per-booking commission data supplied by the back office.
// When CommissionBaseByCurrency or SellerEarningsByCurrency carry a currency,
// those figures take precedence over local computation.
type Feed struct {
	OwnerPct                 decimal.Decimal
	Rule                     *Rule
	Overrides                Overrides
	CommissionBaseByCurrency map[string]decimal.Decimal
	SellerEarningsByCurrency map[string]decimal.Decimal

	// Discarded lists parts of the payload that were dropped as malformed
	Discarded []string
}

// EmptyFeed returns a feed with no rule, no overrides and no precomputed figures
func EmptyFeed() *Feed {
	return &Feed{
		OwnerPct:                 decimal.Zero,
		Overrides:                Overrides{Currency: map[string]Split{}, Service: map[string]Split{}},
		CommissionBaseByCurrency: map[string]decimal.Decimal{},
		SellerEarningsByCurrency: map[string]decimal.Decimal{},
	}
}

// BaseRule returns the feed's rule or an empty one
func (f *Feed) BaseRule() Rule {
	if f == nil || f.Rule == nil {
		return Rule{SellerPct: decimal.Zero}
	}
	return *f.Rule
}

// PrecomputedBase returns the server-side commission base of a currency
func (f *Feed) PrecomputedBase(currency string) (decimal.Decimal, bool) {
	if f == nil {
		return decimal.Zero, false
	}
	d, ok := f.CommissionBaseByCurrency[valueobject.NormalizeCurrency(currency)]
	return d, ok
}

// PrecomputedSellerEarnings returns the server-side seller earnings of a currency
func (f *Feed) PrecomputedSellerEarnings(currency string) (decimal.Decimal, bool) {
	if f == nil {
		return decimal.Zero, false
	}
	d, ok := f.SellerEarningsByCurrency[valueobject.NormalizeCurrency(currency)]
	return d, ok
}

type rawFeed struct {
	OwnerPct                 json.RawMessage `json:"ownerPct"`
	Rule                     json.RawMessage `json:"rule"`
	Custom                   json.RawMessage `json:"custom"`
	CommissionBaseByCurrency json.RawMessage `json:"commissionBaseByCurrency"`
	SellerEarningsByCurrency json.RawMessage `json:"sellerEarningsByCurrency"`
}

type rawSplit struct {
	SellerPct json.RawMessage `json:"sellerPct"`
	Leaders   json.RawMessage `json:"leaders"`
}

type rawOverrides struct {
	Booking  json.RawMessage            `json:"booking"`
	Currency map[string]json.RawMessage `json:"currency"`
	Service  map[string]json.RawMessage `json:"service"`
}

// ParseFeed decodes a commission feed. Only a payload that is not a JSON
// object is an error; malformed parts are treated as absent and listed in
// Discarded.
func ParseFeed(data []byte) (*Feed, error) {
	var raw rawFeed
	if err := json.Unmarshal(data, &raw); err != nil {
		return EmptyFeed(), fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	feed := EmptyFeed()
	if pct, ok := valueobject.LooseDecimal(raw.OwnerPct); ok {
		feed.OwnerPct = pct
	}

	if !isNull(raw.Rule) {
		split, err := parseSplit(raw.Rule)
		if err != nil {
			feed.Discarded = append(feed.Discarded, "rule: "+err.Error())
		} else {
			rule := Rule{SellerPct: split.SellerPct, Leaders: leadersInOrder(raw.Rule, split)}
			feed.Rule = &rule
		}
	}

	if !isNull(raw.Custom) {
		var custom rawOverrides
		if err := json.Unmarshal(raw.Custom, &custom); err != nil {
			feed.Discarded = append(feed.Discarded, "custom: not an object")
		} else {
			feed.Overrides, feed.Discarded = parseOverrides(custom, feed.Discarded)
		}
	}

	if !isNull(raw.CommissionBaseByCurrency) {
		feed.CommissionBaseByCurrency = valueobject.LooseDecimalMap(raw.CommissionBaseByCurrency, valueobject.NormalizeCurrency)
	}
	if !isNull(raw.SellerEarningsByCurrency) {
		feed.SellerEarningsByCurrency = valueobject.LooseDecimalMap(raw.SellerEarningsByCurrency, valueobject.NormalizeCurrency)
	}
	return feed, nil
}

func parseOverrides(raw rawOverrides, discarded []string) (Overrides, []string) {
	out := Overrides{Currency: map[string]Split{}, Service: map[string]Split{}}
	if !isNull(raw.Booking) {
		if split, err := parseSplit(raw.Booking); err == nil {
			out.Booking = &split
		} else {
			discarded = append(discarded, "custom.booking: "+err.Error())
		}
	}
	for _, key := range sortedKeys(raw.Currency) {
		cur := valueobject.NormalizeCurrency(key)
		split, err := parseSplit(raw.Currency[key])
		if err != nil || cur == "" {
			discarded = append(discarded, "custom.currency."+key+": malformed")
			continue
		}
		out.Currency[cur] = split
	}
	for _, key := range sortedKeys(raw.Service) {
		id := strings.TrimSpace(key)
		split, err := parseSplit(raw.Service[key])
		if err != nil || id == "" {
			discarded = append(discarded, "custom.service."+key+": malformed")
			continue
		}
		out.Service[id] = split
	}
	return out, discarded
}

// parseSplit reads {sellerPct, leaders}. Leaders may be a map of user id to
// pct or a list of {userId, pct}.
func parseSplit(data json.RawMessage) (Split, error) {
	var raw rawSplit
	if err := json.Unmarshal(data, &raw); err != nil {
		return Split{}, errors.New("not an object")
	}
	seller, ok := valueobject.LooseDecimal(raw.SellerPct)
	if !ok {
		return Split{}, errors.New("sellerPct missing or not numeric")
	}
	split := Split{SellerPct: seller, Leaders: map[string]decimal.Decimal{}}
	if isNull(raw.Leaders) {
		return split, nil
	}
	for _, l := range parseLeaders(raw.Leaders) {
		split.Leaders[l.UserID] = l.Pct
	}
	return split, nil
}

type rawLeader struct {
	UserID     json.RawMessage `json:"userId"`
	UserIDAlt  json.RawMessage `json:"user_id"`
	ID         json.RawMessage `json:"id"`
	Pct        json.RawMessage `json:"pct"`
	Percentage json.RawMessage `json:"percentage"`
}

func parseLeaders(data json.RawMessage) []LeaderSplit {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '{' {
		m := valueobject.LooseDecimalMap(data, strings.TrimSpace)
		ids := make([]string, 0, len(m))
		for id := range m {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := make([]LeaderSplit, 0, len(ids))
		for _, id := range ids {
			out = append(out, LeaderSplit{UserID: id, Pct: m[id]})
		}
		return out
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	out := make([]LeaderSplit, 0, len(entries))
	for _, entry := range entries {
		var raw rawLeader
		if err := json.Unmarshal(entry, &raw); err != nil {
			continue
		}
		id := firstID(raw.UserID, raw.UserIDAlt, raw.ID)
		pct, ok := valueobject.LooseDecimal(raw.Pct)
		if !ok {
			pct, ok = valueobject.LooseDecimal(raw.Percentage)
		}
		if id == "" || !ok {
			continue
		}
		out = append(out, LeaderSplit{UserID: id, Pct: pct})
	}
	return out
}

// leadersInOrder keeps the payload order for list-shaped rule leaders
func leadersInOrder(data json.RawMessage, split Split) []LeaderSplit {
	var raw rawSplit
	_ = json.Unmarshal(data, &raw)
	leaders := parseLeaders(raw.Leaders)
	out := make([]LeaderSplit, 0, len(leaders))
	seen := make(map[string]bool)
	for _, l := range leaders {
		if seen[l.UserID] {
			continue
		}
		seen[l.UserID] = true
		out = append(out, LeaderSplit{UserID: l.UserID, Pct: split.Leaders[l.UserID]})
	}
	return out
}

func firstID(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		if isNull(c) {
			continue
		}
		var s string
		if err := json.Unmarshal(c, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		if d, ok := valueobject.LooseDecimal(c); ok {
			return d.String()
		}
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
