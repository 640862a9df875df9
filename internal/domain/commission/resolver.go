package commission

import (
	"sort"

	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Source describes which level of the override hierarchy produced a resolution
type Source string

const (
	// SourceService indicates the split came from a service-level override
	SourceService Source = "service"
	// SourceCurrency indicates the split came from a currency-level override
	SourceCurrency Source = "currency"
	// SourceBooking indicates the split came from the booking-level override
	SourceBooking Source = "booking"
	// SourceBase indicates the base rule was used
	SourceBase Source = "base"
)

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// Context selects the overrides that may apply.
// AllowServiceScope is false when the booking is summarised as a whole.
type Context struct {
	Currency          string
	ServiceID         string
	AllowServiceScope bool
}

// Resolution is the split that applies to a context
type Resolution struct {
	SellerPct decimal.Decimal
	Leaders   []LeaderSplit
	Source    Source

	// FellBack is set when an override was found but out of range
	FellBack bool
	// Clamped is set when the base rule itself had to be forced into range
	Clamped bool
}

// Total returns seller plus leader percentages
func (r Resolution) Total() decimal.Decimal {
	total := r.SellerPct
	for _, l := range r.Leaders {
		total = total.Add(l.Pct)
	}
	return total
}

func (r Resolution) inBounds() bool {
	if !inRange(r.SellerPct) {
		return false
	}
	for _, l := range r.Leaders {
		if !inRange(l.Pct) {
			return false
		}
	}
	return r.Total().LessThanOrEqual(MaxPct)
}

type lookup struct {
	source Source
	find   func() (Split, bool)
}

// Resolve walks service, currency and booking overrides in that order and
// falls back to the base rule. Leaders missing from an override keep the
// base rule's pct. The result never assigns more than 100%.
func Resolve(rule Rule, overrides Overrides, ctx Context) Resolution {
	chain := []lookup{
		{source: SourceService, find: func() (Split, bool) {
			if !ctx.AllowServiceScope || ctx.ServiceID == "" {
				return Split{}, false
			}
			s, ok := overrides.Service[ctx.ServiceID]
			return s, ok
		}},
		{source: SourceCurrency, find: func() (Split, bool) {
			cur := valueobject.NormalizeCurrency(ctx.Currency)
			if cur == "" {
				return Split{}, false
			}
			s, ok := overrides.Currency[cur]
			return s, ok
		}},
		{source: SourceBooking, find: func() (Split, bool) {
			if overrides.Booking == nil {
				return Split{}, false
			}
			return *overrides.Booking, true
		}},
	}

	for _, step := range chain {
		split, ok := step.find()
		if !ok {
			continue
		}
		res := applyOverride(rule, split, step.source)
		if res.inBounds() {
			return res
		}
		base := resolveBase(rule)
		base.FellBack = true
		return base
	}
	return resolveBase(rule)
}

func applyOverride(rule Rule, split Split, source Source) Resolution {
	res := Resolution{SellerPct: split.SellerPct, Source: source}
	seen := make(map[string]bool, len(rule.Leaders))
	for _, l := range rule.Leaders {
		seen[l.UserID] = true
		pct, ok := split.Leaders[l.UserID]
		if !ok {
			pct = l.Pct
		}
		res.Leaders = append(res.Leaders, LeaderSplit{UserID: l.UserID, Pct: pct})
	}
	extra := make([]string, 0)
	for id := range split.Leaders {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		res.Leaders = append(res.Leaders, LeaderSplit{UserID: id, Pct: split.Leaders[id]})
	}
	return res
}

func resolveBase(rule Rule) Resolution {
	res := Resolution{SellerPct: rule.SellerPct, Source: SourceBase}
	res.Leaders = append(res.Leaders, rule.Leaders...)
	if res.inBounds() {
		return res
	}
	return clamp(res)
}

// clamp forces seller into [0,100] and scales leaders down to fit what the
// seller leaves
func clamp(res Resolution) Resolution {
	res.Clamped = true
	res.SellerPct = decimal.Min(decimal.Max(res.SellerPct, decimal.Zero), MaxPct)
	room := MaxPct.Sub(res.SellerPct)

	leaders := make([]LeaderSplit, len(res.Leaders))
	sum := decimal.Zero
	for i, l := range res.Leaders {
		pct := decimal.Max(l.Pct, decimal.Zero)
		leaders[i] = LeaderSplit{UserID: l.UserID, Pct: pct}
		sum = sum.Add(pct)
	}
	if sum.GreaterThan(room) {
		last := -1
		assigned := decimal.Zero
		for i := range leaders {
			if leaders[i].Pct.IsPositive() {
				last = i
			}
		}
		for i := range leaders {
			if i == last || !leaders[i].Pct.IsPositive() {
				continue
			}
			leaders[i].Pct = leaders[i].Pct.Mul(room).Div(sum)
			assigned = assigned.Add(leaders[i].Pct)
		}
		if last >= 0 {
			leaders[last].Pct = room.Sub(assigned)
		}
	}
	res.Leaders = leaders
	return res
}
