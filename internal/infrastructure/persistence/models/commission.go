package models

import (
	"encoding/json"
	"sort"

	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// modelLogger resolves the global logger on every call so rows decoded
// after zap.ReplaceGlobals report through the configured logger
func modelLogger() *zap.Logger {
	return zap.L().Named("commission.models")
}

type leaderDoc struct {
	UserID string          `json:"userId"`
	Pct    decimal.Decimal `json:"pct"`
}

// CommissionRuleModel is the base commission rule of a booking
type CommissionRuleModel struct {
	BaseModel
	BookingID                    string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	OwnerPct                     decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	SellerPct                    decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	LeadersJSON                  string          `gorm:"column:leaders;type:jsonb;default:'[]'"`
	CommissionBaseByCurrencyJSON string          `gorm:"column:commission_base_by_currency;type:jsonb;default:'{}'"`
	SellerEarningsByCurrencyJSON string          `gorm:"column:seller_earnings_by_currency;type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (CommissionRuleModel) TableName() string {
	return "commission_rules"
}

// ApplyTo copies the rule and precomputed figures into feed
func (m *CommissionRuleModel) ApplyTo(feed *commission.Feed) {
	feed.OwnerPct = m.OwnerPct
	rule := commission.Rule{SellerPct: m.SellerPct}
	var leaders []leaderDoc
	if m.LeadersJSON != "" {
		if err := json.Unmarshal([]byte(m.LeadersJSON), &leaders); err != nil {
			modelLogger().Warn("failed to parse leaders JSON",
				zap.String("booking_id", m.BookingID),
				zap.Error(err))
			feed.Discarded = append(feed.Discarded, "rule.leaders: malformed")
		}
	}
	for _, l := range leaders {
		rule.Leaders = append(rule.Leaders, commission.LeaderSplit{UserID: l.UserID, Pct: l.Pct})
	}
	feed.Rule = &rule

	feed.CommissionBaseByCurrency = decodeCurrencyMap(m.CommissionBaseByCurrencyJSON)
	feed.SellerEarningsByCurrency = decodeCurrencyMap(m.SellerEarningsByCurrencyJSON)
}

// CommissionRuleModelFromDomain builds a rule row for bookingID
func CommissionRuleModelFromDomain(bookingID string, feed *commission.Feed) *CommissionRuleModel {
	rule := feed.BaseRule()
	leaders := make([]leaderDoc, 0, len(rule.Leaders))
	for _, l := range rule.Leaders {
		leaders = append(leaders, leaderDoc{UserID: l.UserID, Pct: l.Pct})
	}
	return &CommissionRuleModel{
		BookingID:                    bookingID,
		OwnerPct:                     feed.OwnerPct,
		SellerPct:                    rule.SellerPct,
		LeadersJSON:                  mustJSON(leaders, "[]"),
		CommissionBaseByCurrencyJSON: mustJSON(feed.CommissionBaseByCurrency, "{}"),
		SellerEarningsByCurrencyJSON: mustJSON(feed.SellerEarningsByCurrency, "{}"),
	}
}

// CommissionOverrideModel is one scope override of a booking
type CommissionOverrideModel struct {
	BaseModel
	BookingID   string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_commission_override_target,priority:1"`
	Scope       string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_commission_override_target,priority:2"`
	ScopeKey    string          `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_commission_override_target,priority:3"`
	SellerPct   decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	LeadersJSON string          `gorm:"column:leaders;type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (CommissionOverrideModel) TableName() string {
	return "commission_overrides"
}

// Target returns the override address
func (m *CommissionOverrideModel) Target() commission.Target {
	return commission.Target{Scope: commission.Scope(m.Scope), Key: m.ScopeKey}
}

// ToDomain converts the row to a split
func (m *CommissionOverrideModel) ToDomain() commission.Split {
	split := commission.Split{SellerPct: m.SellerPct, Leaders: map[string]decimal.Decimal{}}
	if m.LeadersJSON != "" {
		if err := json.Unmarshal([]byte(m.LeadersJSON), &split.Leaders); err != nil {
			modelLogger().Warn("failed to parse override leaders JSON",
				zap.String("booking_id", m.BookingID),
				zap.String("scope", m.Scope),
				zap.Error(err))
			split.Leaders = map[string]decimal.Decimal{}
		}
	}
	return split
}

// CommissionOverrideModelFromDomain builds an override row
func CommissionOverrideModelFromDomain(bookingID string, target commission.Target, split commission.Split) *CommissionOverrideModel {
	leaders := split.Leaders
	if leaders == nil {
		leaders = map[string]decimal.Decimal{}
	}
	return &CommissionOverrideModel{
		BookingID:   bookingID,
		Scope:       string(target.Scope),
		ScopeKey:    target.Key,
		SellerPct:   split.SellerPct,
		LeadersJSON: mustJSON(leaders, "{}"),
	}
}

// OverridesFromModels folds override rows into the domain structure.
// Rows with an unknown scope are skipped.
func OverridesFromModels(rows []CommissionOverrideModel) commission.Overrides {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	out := commission.Overrides{Currency: map[string]commission.Split{}, Service: map[string]commission.Split{}}
	for i := range rows {
		target := rows[i].Target()
		if !target.Scope.IsValid() {
			continue
		}
		out = out.Apply(target, rows[i].ToDomain())
	}
	return out
}

// decodeCurrencyMap reads a currency-keyed figure map. Keys are normalised
// the same way lookups are; when two spellings collide the canonical one wins.
func decodeCurrencyMap(data string) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	if data == "" {
		return out
	}
	var raw map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		modelLogger().Warn("failed to parse currency map JSON", zap.Error(err))
		return out
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cur := valueobject.NormalizeCurrency(k)
		if cur == "" {
			continue
		}
		if _, taken := out[cur]; taken && k != cur {
			continue
		}
		out[cur] = raw[k]
	}
	return out
}

func mustJSON(v any, empty string) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return empty
	}
	return string(data)
}
