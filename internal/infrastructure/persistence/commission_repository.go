package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/agency/backoffice/internal/domain/commission"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCommissionRepository implements commission.Repository using GORM
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewGormCommissionRepository creates a new GormCommissionRepository
func NewGormCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: tx}
}

// FindFeed assembles the rule and overrides of a booking
func (r *GormCommissionRepository) FindFeed(ctx context.Context, bookingID string) (*commission.Feed, error) {
	feed := commission.EmptyFeed()
	db := r.db.WithContext(ctx)

	var rule models.CommissionRuleModel
	err := db.Where("booking_id = ?", bookingID).First(&rule).Error
	switch {
	case err == nil:
		rule.ApplyTo(feed)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var rows []models.CommissionOverrideModel
	if err := db.Where("booking_id = ?", bookingID).Find(&rows).Error; err != nil {
		return nil, err
	}
	feed.Overrides = models.OverridesFromModels(rows)
	return feed, nil
}

// SaveRule creates or replaces the base rule and precomputed figures of a booking
func (r *GormCommissionRepository) SaveRule(ctx context.Context, bookingID string, feed *commission.Feed) error {
	if bookingID == "" || feed == nil {
		return shared.ErrInvalidInput
	}
	model := models.CommissionRuleModelFromDomain(bookingID, feed)
	model.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "booking_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"owner_pct", "seller_pct", "leaders",
				"commission_base_by_currency", "seller_earnings_by_currency", "updated_at",
			}),
		}).
		Create(model).Error
}

// SaveOverride creates or replaces the override at target
func (r *GormCommissionRepository) SaveOverride(ctx context.Context, bookingID string, target commission.Target, split commission.Split) error {
	model := models.CommissionOverrideModelFromDomain(bookingID, target, split)
	model.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "booking_id"}, {Name: "scope"}, {Name: "scope_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"seller_pct", "leaders", "updated_at"}),
		}).
		Create(model).Error
}

// DeleteOverride removes the override at target
func (r *GormCommissionRepository) DeleteOverride(ctx context.Context, bookingID string, target commission.Target) error {
	result := r.db.WithContext(ctx).
		Where("booking_id = ? AND scope = ? AND scope_key = ?", bookingID, string(target.Scope), target.Key).
		Delete(&models.CommissionOverrideModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormCommissionRepository implements the interface
var _ commission.Repository = (*GormCommissionRepository)(nil)
