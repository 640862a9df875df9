package commission

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateSplit is the edit-boundary check for an override payload: every
// percentage within [0,100] and the seller plus leaders not above 100.
func ValidateSplit(s Split) error {
	if !inRange(s.SellerPct) {
		return fmt.Errorf("%w: seller pct %s not within [0,100]", ErrInvalidSplit, s.SellerPct)
	}
	for _, id := range s.LeaderIDs() {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: leader id is empty", ErrInvalidSplit)
		}
		if pct := s.Leaders[id]; !inRange(pct) {
			return fmt.Errorf("%w: leader %s pct %s not within [0,100]", ErrInvalidSplit, id, pct)
		}
	}
	if total := s.Total(); total.GreaterThan(MaxPct) {
		return fmt.Errorf("%w: seller and leaders add up to %s", ErrInvalidSplit, total)
	}
	return nil
}

// ValidateEffective checks split as it would resolve against rule: leaders
// the payload leaves out keep the base pct, so a split that passes
// ValidateSplit can still assign more than 100% once merged.
func ValidateEffective(rule Rule, split Split) error {
	if err := ValidateSplit(split); err != nil {
		return err
	}
	res := applyOverride(rule, split, "")
	for _, l := range res.Leaders {
		if !inRange(l.Pct) {
			return fmt.Errorf("%w: inherited leader %s pct %s not within [0,100]", ErrInvalidSplit, l.UserID, l.Pct)
		}
	}
	if total := res.Total(); total.GreaterThan(MaxPct) {
		return fmt.Errorf("%w: seller and leaders add up to %s with inherited base leaders", ErrInvalidSplit, total)
	}
	return nil
}

// ValidateFeed is the edit-boundary check for a stored base rule: owner pct
// and every rule pct within [0,100], leader ids unique and the rule not
// assigning more than 100%.
func ValidateFeed(f *Feed) error {
	if f == nil {
		return fmt.Errorf("%w: feed is empty", ErrInvalidSplit)
	}
	if !inRange(f.OwnerPct) {
		return fmt.Errorf("%w: owner pct %s not within [0,100]", ErrInvalidSplit, f.OwnerPct)
	}
	if f.Rule == nil {
		return nil
	}
	split := Split{SellerPct: f.Rule.SellerPct, Leaders: make(map[string]decimal.Decimal, len(f.Rule.Leaders))}
	for _, l := range f.Rule.Leaders {
		if _, dup := split.Leaders[l.UserID]; dup {
			return fmt.Errorf("%w: leader %s listed twice", ErrInvalidSplit, l.UserID)
		}
		split.Leaders[l.UserID] = l.Pct
	}
	return ValidateSplit(split)
}

func inRange(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(MaxPct)
}
