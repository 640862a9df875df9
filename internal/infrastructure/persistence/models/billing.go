package models

import (
	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// CalcConfigModel is the persistence model of an agency calculation configuration.
// Document holds the full configuration; mode and transfer fee are
// duplicated into columns for reporting queries.
type CalcConfigModel struct {
	BaseModel
	AgencyID       string              `gorm:"type:varchar(100);not null;uniqueIndex"`
	BreakdownMode  string              `gorm:"type:varchar(20);not null;default:'auto'"`
	TransferFeePct decimal.NullDecimal `gorm:"type:decimal(9,6)"`
	Document       string              `gorm:"type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (CalcConfigModel) TableName() string {
	return "billing_calc_configs"
}

// ToRaw decodes the stored document
func (m *CalcConfigModel) ToRaw() (*billing.RawCalcConfig, error) {
	raw, err := billing.DecodeRawCalcConfig([]byte(m.Document))
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

// CalcConfigModelFromDomain encodes cfg for agencyID
func CalcConfigModelFromDomain(agencyID string, cfg billing.CalcConfig) (*CalcConfigModel, error) {
	doc, err := billing.EncodeCalcConfig(cfg)
	if err != nil {
		return nil, err
	}
	m := &CalcConfigModel{
		AgencyID:      agencyID,
		BreakdownMode: string(cfg.Mode),
		Document:      string(doc),
	}
	if m.BreakdownMode == "" {
		m.BreakdownMode = string(billing.BreakdownModeAuto)
	}
	if cfg.TransferFeePct != nil {
		m.TransferFeePct = decimal.NewNullDecimal(*cfg.TransferFeePct)
	}
	return m, nil
}
