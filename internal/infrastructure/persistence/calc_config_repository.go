package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCalcConfigRepository implements billing.CalcConfigRepository using GORM
type GormCalcConfigRepository struct {
	db *gorm.DB
}

// NewGormCalcConfigRepository creates a new GormCalcConfigRepository
func NewGormCalcConfigRepository(db *gorm.DB) *GormCalcConfigRepository {
	return &GormCalcConfigRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormCalcConfigRepository) WithTx(tx *gorm.DB) *GormCalcConfigRepository {
	return &GormCalcConfigRepository{db: tx}
}

// FindByAgency returns the stored configuration document of an agency
func (r *GormCalcConfigRepository) FindByAgency(ctx context.Context, agencyID string) (*billing.RawCalcConfig, error) {
	var model models.CalcConfigModel
	if err := r.db.WithContext(ctx).Where("agency_id = ?", agencyID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToRaw()
}

// Save creates or replaces the configuration of an agency
func (r *GormCalcConfigRepository) Save(ctx context.Context, agencyID string, cfg billing.CalcConfig) error {
	if agencyID == "" {
		return shared.ErrInvalidInput
	}
	model, err := models.CalcConfigModelFromDomain(agencyID, cfg)
	if err != nil {
		return err
	}
	model.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agency_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"breakdown_mode", "transfer_fee_pct", "document", "updated_at"}),
		}).
		Create(model).Error
}

// Ensure GormCalcConfigRepository implements the interface
var _ billing.CalcConfigRepository = (*GormCalcConfigRepository)(nil)
