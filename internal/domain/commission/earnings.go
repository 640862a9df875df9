package commission

import (
	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// LeaderEarning is the amount earned by one leader
type LeaderEarning struct {
	UserID string
	Pct    decimal.Decimal
	Amount decimal.Decimal
}

// Earnings splits a commission base between seller, leaders and the agency
// owner. Owner is whatever the seller and leaders leave.
type Earnings struct {
	Base    decimal.Decimal
	Seller  decimal.Decimal
	Leaders []LeaderEarning
	Owner   decimal.Decimal
}

// ComputeEarnings applies a resolution to a commission base
func ComputeEarnings(base decimal.Decimal, res Resolution) Earnings {
	e := Earnings{
		Base:    base,
		Seller:  base.Mul(valueobject.PercentToProportion(res.SellerPct)),
		Leaders: make([]LeaderEarning, 0, len(res.Leaders)),
	}
	owner := base.Sub(e.Seller)
	for _, l := range res.Leaders {
		amount := base.Mul(valueobject.PercentToProportion(l.Pct))
		e.Leaders = append(e.Leaders, LeaderEarning{UserID: l.UserID, Pct: l.Pct, Amount: amount})
		owner = owner.Sub(amount)
	}
	e.Owner = owner
	return e
}

// Add sums two earnings, matching leaders by user id
func (e Earnings) Add(o Earnings) Earnings {
	out := Earnings{
		Base:    e.Base.Add(o.Base),
		Seller:  e.Seller.Add(o.Seller),
		Owner:   e.Owner.Add(o.Owner),
		Leaders: make([]LeaderEarning, 0, len(e.Leaders)+len(o.Leaders)),
	}
	pos := make(map[string]int)
	for _, list := range [][]LeaderEarning{e.Leaders, o.Leaders} {
		for _, l := range list {
			if i, ok := pos[l.UserID]; ok {
				out.Leaders[i].Amount = out.Leaders[i].Amount.Add(l.Amount)
				continue
			}
			pos[l.UserID] = len(out.Leaders)
			out.Leaders = append(out.Leaders, l)
		}
	}
	return out
}

// ZeroEarnings returns earnings with nothing assigned
func ZeroEarnings() Earnings {
	return Earnings{
		Base:    decimal.Zero,
		Seller:  decimal.Zero,
		Leaders: []LeaderEarning{},
		Owner:   decimal.Zero,
	}
}
