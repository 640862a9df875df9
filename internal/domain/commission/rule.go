package commission

import (
	"sort"
	"strings"

	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MaxPct is the ceiling of any single scope's assigned percentage
var MaxPct = decimal.NewFromInt(100)

// LeaderSplit is a team leader's share, in percent (0-100)
type LeaderSplit struct {
	UserID string
	Pct    decimal.Decimal
}

// Rule is the base commission rule of a booking
type Rule struct {
	SellerPct decimal.Decimal
	Leaders   []LeaderSplit
}

// Split is an override of seller and leader percentages for one scope
type Split struct {
	SellerPct decimal.Decimal
	Leaders   map[string]decimal.Decimal
}

// Total returns the seller plus every leader percentage
func (s Split) Total() decimal.Decimal {
	total := s.SellerPct
	for _, pct := range s.Leaders {
		total = total.Add(pct)
	}
	return total
}

// LeaderIDs returns the leader ids sorted
func (s Split) LeaderIDs() []string {
	ids := make([]string, 0, len(s.Leaders))
	for id := range s.Leaders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Overrides holds the optional per-scope splits of a booking
type Overrides struct {
	Booking  *Split
	Currency map[string]Split
	Service  map[string]Split
}

// IsEmpty reports whether no scope carries an override
func (o Overrides) IsEmpty() bool {
	return o.Booking == nil && len(o.Currency) == 0 && len(o.Service) == 0
}

// Scope is the level an override applies to
type Scope string

const (
	ScopeBooking  Scope = "booking"
	ScopeCurrency Scope = "currency"
	ScopeService  Scope = "service"
)

// IsValid returns true if the scope is recognised
func (s Scope) IsValid() bool {
	switch s {
	case ScopeBooking, ScopeCurrency, ScopeService:
		return true
	}
	return false
}

// Target addresses one override: the booking itself, a currency or a service
type Target struct {
	Scope Scope
	Key   string
}

// NewTarget validates and normalises an override address.
// Booking targets ignore the key; currency keys are upper-cased.
func NewTarget(scope, key string) (Target, error) {
	t := Target{Scope: Scope(strings.ToLower(strings.TrimSpace(scope)))}
	switch t.Scope {
	case ScopeBooking:
		return t, nil
	case ScopeCurrency:
		t.Key = valueobject.NormalizeCurrency(key)
	case ScopeService:
		t.Key = strings.TrimSpace(key)
	default:
		return Target{}, ErrInvalidScope
	}
	if t.Key == "" {
		return Target{}, ErrMissingScopeKey
	}
	return t, nil
}

// Apply returns a copy of o with split stored at the target
func (o Overrides) Apply(t Target, split Split) Overrides {
	out := o.clone()
	switch t.Scope {
	case ScopeBooking:
		s := split
		out.Booking = &s
	case ScopeCurrency:
		out.Currency[t.Key] = split
	case ScopeService:
		out.Service[t.Key] = split
	}
	return out
}

func (o Overrides) clone() Overrides {
	out := Overrides{
		Currency: make(map[string]Split, len(o.Currency)),
		Service:  make(map[string]Split, len(o.Service)),
	}
	if o.Booking != nil {
		b := *o.Booking
		out.Booking = &b
	}
	for k, v := range o.Currency {
		out.Currency[k] = v
	}
	for k, v := range o.Service {
		out.Service[k] = v
	}
	return out
}
