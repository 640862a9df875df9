package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agency/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BreakdownMode selects which service fields are authoritative
type BreakdownMode string

const (
	// BreakdownModeAuto itemizes taxes and splits VAT on commission per bracket
	BreakdownModeAuto BreakdownMode = "auto"
	// BreakdownModeManual trusts sale and a single other-taxes figure
	BreakdownModeManual BreakdownMode = "manual"
)

// IsValid returns true if the mode is recognised
func (m BreakdownMode) IsValid() bool {
	return m == BreakdownModeAuto || m == BreakdownModeManual
}

// DefaultTransferFeePct is the fallback transfer fee proportion (2.4%)
var DefaultTransferFeePct = decimal.RequireFromString("0.024")

// CalcConfig is the validated agency calculation configuration.
// TransferFeePct is nil when the agency did not configure one.
type CalcConfig struct {
	Mode                BreakdownMode
	TransferFeePct      *decimal.Decimal
	TransferFeeByType   map[string]decimal.Decimal
	Adjustments         []AdjustmentRule
	UseBookingSaleTotal bool

	// UsingDefaults is set when the configuration could not be retrieved
	UsingDefaults bool
	// Discarded lists entries dropped while parsing
	Discarded []string
}

// DefaultCalcConfig returns the configuration used when none is available
func DefaultCalcConfig() CalcConfig {
	return CalcConfig{
		Mode:              BreakdownModeAuto,
		TransferFeeByType: map[string]decimal.Decimal{},
		Adjustments:       []AdjustmentRule{},
	}
}

// RawCalcConfig is the calculation configuration as received, every field optional
type RawCalcConfig struct {
	BreakdownMode       json.RawMessage `json:"billing_breakdown_mode,omitempty"`
	TransferFeePct      json.RawMessage `json:"transfer_fee_pct,omitempty"`
	TransferFeeByType   json.RawMessage `json:"transfer_fee_by_type,omitempty"`
	Adjustments         json.RawMessage `json:"billing_adjustments,omitempty"`
	UseBookingSaleTotal json.RawMessage `json:"use_booking_sale_total,omitempty"`
}

// ErrMalformedConfig is returned when a configuration document is not a JSON object
var ErrMalformedConfig = errors.New("malformed calc configuration")

// DecodeRawCalcConfig decodes a configuration document
func DecodeRawCalcConfig(data []byte) (RawCalcConfig, error) {
	var raw RawCalcConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawCalcConfig{}, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}
	return raw, nil
}

// ParseCalcConfig decodes and validates a configuration document.
// On error the default configuration is returned alongside it.
func ParseCalcConfig(data []byte) (CalcConfig, error) {
	raw, err := DecodeRawCalcConfig(data)
	if err != nil {
		return DefaultCalcConfig(), err
	}
	return raw.Parse(), nil
}

// Parse converts the raw document into a CalcConfig. Malformed fields
// fall back to their defaults and malformed adjustments are dropped.
func (r RawCalcConfig) Parse() CalcConfig {
	cfg := DefaultCalcConfig()

	if len(r.BreakdownMode) > 0 {
		var mode string
		if err := json.Unmarshal(r.BreakdownMode, &mode); err == nil {
			m := BreakdownMode(strings.ToLower(strings.TrimSpace(mode)))
			if m.IsValid() {
				cfg.Mode = m
			} else if m != "" {
				cfg.Discarded = append(cfg.Discarded, "billing_breakdown_mode: unknown mode "+mode)
			}
		} else if string(r.BreakdownMode) != "null" {
			cfg.Discarded = append(cfg.Discarded, "billing_breakdown_mode: not a string")
		}
	}

	if pct, ok := valueobject.LooseDecimal(r.TransferFeePct); ok {
		if validProportion(pct) {
			cfg.TransferFeePct = &pct
		} else {
			cfg.Discarded = append(cfg.Discarded, "transfer_fee_pct: out of range "+pct.String())
		}
	}

	if len(r.TransferFeeByType) > 0 {
		for typ, pct := range valueobject.LooseDecimalMap(r.TransferFeeByType, normalizeServiceType) {
			if !validProportion(pct) {
				cfg.Discarded = append(cfg.Discarded, "transfer_fee_by_type."+typ+": out of range")
				continue
			}
			cfg.TransferFeeByType[typ] = pct
		}
	}

	if v, ok := valueobject.LooseBool(r.UseBookingSaleTotal); ok {
		cfg.UseBookingSaleTotal = v
	}

	if len(r.Adjustments) > 0 {
		rules, discarded := parseAdjustmentRules(r.Adjustments)
		cfg.Adjustments = rules
		cfg.Discarded = append(cfg.Discarded, discarded...)
	}

	return cfg
}

// EncodeCalcConfig renders a configuration in the same document shape ParseCalcConfig reads
func EncodeCalcConfig(cfg CalcConfig) ([]byte, error) {
	type adjustmentDoc struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Kind      string          `json:"kind"`
		Basis     string          `json:"basis"`
		ValueType string          `json:"valueType"`
		Value     decimal.Decimal `json:"value"`
		Active    bool            `json:"active"`
		Source    string          `json:"source"`
	}
	doc := struct {
		Mode                string                     `json:"billing_breakdown_mode"`
		TransferFeePct      *decimal.Decimal           `json:"transfer_fee_pct,omitempty"`
		TransferFeeByType   map[string]decimal.Decimal `json:"transfer_fee_by_type,omitempty"`
		Adjustments         []adjustmentDoc            `json:"billing_adjustments"`
		UseBookingSaleTotal bool                       `json:"use_booking_sale_total"`
	}{
		Mode:                string(cfg.Mode),
		TransferFeePct:      cfg.TransferFeePct,
		TransferFeeByType:   cfg.TransferFeeByType,
		Adjustments:         make([]adjustmentDoc, 0, len(cfg.Adjustments)),
		UseBookingSaleTotal: cfg.UseBookingSaleTotal,
	}
	for _, rule := range cfg.Adjustments {
		doc.Adjustments = append(doc.Adjustments, adjustmentDoc{
			ID:        rule.ID,
			Name:      rule.Name,
			Kind:      string(rule.Kind),
			Basis:     string(rule.Basis),
			ValueType: string(rule.ValueType),
			Value:     rule.Value,
			Active:    rule.Active,
			Source:    string(rule.Source),
		})
	}
	return json.Marshal(doc)
}

type rawAdjustment struct {
	ID         json.RawMessage `json:"id"`
	Name       string          `json:"name"`
	Label      string          `json:"label"`
	Kind       string          `json:"kind"`
	Basis      string          `json:"basis"`
	ValueType  string          `json:"valueType"`
	ValueType2 string          `json:"value_type"`
	Value      json.RawMessage `json:"value"`
	Active     json.RawMessage `json:"active"`
	Source     string          `json:"source"`
}

func parseAdjustmentRules(data json.RawMessage) ([]AdjustmentRule, []string) {
	rules := []AdjustmentRule{}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return rules, []string{"billing_adjustments: not a list"}
	}
	var discarded []string
	for i, entry := range entries {
		rule, err := parseAdjustmentRule(entry)
		if err != nil {
			discarded = append(discarded, fmt.Sprintf("billing_adjustments[%d]: %v", i, err))
			continue
		}
		// service items are stored per service, the engine never computes them from configuration
		if rule.Source == AdjustmentSourceService {
			discarded = append(discarded, fmt.Sprintf("billing_adjustments[%d]: source service is not a configuration rule", i))
			continue
		}
		if rule.ID == "" {
			rule.ID = strconv.Itoa(i)
		}
		rules = append(rules, rule)
	}
	return rules, discarded
}

func parseAdjustmentRule(data json.RawMessage) (AdjustmentRule, error) {
	var raw rawAdjustment
	if err := json.Unmarshal(data, &raw); err != nil {
		return AdjustmentRule{}, errors.New("not an object")
	}

	value, ok := valueobject.LooseDecimal(raw.Value)
	if !ok {
		return AdjustmentRule{}, errors.New("missing numeric value")
	}

	rule := AdjustmentRule{
		ID:        looseID(raw.ID),
		Name:      strings.TrimSpace(raw.Name),
		Kind:      AdjustmentKindCost,
		Basis:     AdjustmentBasisSale,
		ValueType: AdjustmentValuePercent,
		Value:     value,
		Active:    true,
		Source:    AdjustmentSourceGlobal,
	}
	if rule.Name == "" {
		rule.Name = strings.TrimSpace(raw.Label)
	}

	if k := lowerTrim(raw.Kind); k != "" {
		rule.Kind = AdjustmentKind(k)
		if !rule.Kind.IsValid() {
			return AdjustmentRule{}, fmt.Errorf("unknown kind %q", raw.Kind)
		}
	}
	if b := lowerTrim(raw.Basis); b != "" {
		rule.Basis = AdjustmentBasis(b)
		if !rule.Basis.IsValid() {
			return AdjustmentRule{}, fmt.Errorf("unknown basis %q", raw.Basis)
		}
	}
	vt := lowerTrim(raw.ValueType)
	if vt == "" {
		vt = lowerTrim(raw.ValueType2)
	}
	if vt != "" {
		rule.ValueType = AdjustmentValueType(vt)
		if !rule.ValueType.IsValid() {
			return AdjustmentRule{}, fmt.Errorf("unknown value type %q", vt)
		}
	}
	if s := lowerTrim(raw.Source); s != "" {
		rule.Source = AdjustmentSource(s)
		if rule.Source != AdjustmentSourceGlobal && rule.Source != AdjustmentSourceService {
			return AdjustmentRule{}, fmt.Errorf("unknown source %q", raw.Source)
		}
	}
	if active, ok := valueobject.LooseBool(raw.Active); ok {
		rule.Active = active
	}
	return rule, nil
}

func looseID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if d, ok := valueobject.LooseDecimal(raw); ok {
		return d.String()
	}
	return ""
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeServiceType(s string) string {
	return lowerTrim(s)
}

func validProportion(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(1))
}
