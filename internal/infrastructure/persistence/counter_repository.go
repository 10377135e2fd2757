package persistence

import (
	"context"
	"fmt"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCounterRepository allocates values from named counters. Increments
// are single UPDATE statements so concurrent callers never share a value.
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new counter repository
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

func (r *GormCounterRepository) ensure(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&models.CounterModel{Name: name, Value: 0}).Error
}

// Next increments the counter and returns the new value
func (r *GormCounterRepository) Next(ctx context.Context, name string) (int64, error) {
	if err := r.ensure(ctx, name); err != nil {
		return 0, fmt.Errorf("counter %s: %w", name, err)
	}
	err := r.db.WithContext(ctx).
		Model(&models.CounterModel{}).
		Where("name = ?", name).
		Update("value", gorm.Expr("value + ?", 1)).Error
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", name, err)
	}
	return r.Current(ctx, name)
}

// Current returns the counter value, zero when it was never used
func (r *GormCounterRepository) Current(ctx context.Context, name string) (int64, error) {
	var rows []models.CounterModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("counter %s: %w", name, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Value, nil
}

// Advance raises the counter to value if it is lower
func (r *GormCounterRepository) Advance(ctx context.Context, name string, value int64) error {
	if err := r.ensure(ctx, name); err != nil {
		return fmt.Errorf("counter %s: %w", name, err)
	}
	err := r.db.WithContext(ctx).
		Model(&models.CounterModel{}).
		Where("name = ? AND value < ?", name, value).
		Update("value", value).Error
	if err != nil {
		return fmt.Errorf("counter %s: %w", name, err)
	}
	return nil
}

var _ shared.CounterRepository = (*GormCounterRepository)(nil)
