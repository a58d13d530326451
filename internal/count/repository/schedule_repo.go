package repository

import (
	"context"
	"errors"

	"github.com/cribware/stocktake/internal/count/entity"
	"gorm.io/gorm"
)

// ScheduleRepository persists recurring audit definitions.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *entity.Schedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*entity.Schedule, error) {
	var s entity.Schedule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindByName returns the schedule with the given name, active ones first.
func (r *ScheduleRepository) FindByName(ctx context.Context, name string) (*entity.Schedule, error) {
	var s entity.Schedule
	err := r.db.WithContext(ctx).Where("name = ?", name).Order("active DESC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepository) Update(ctx context.Context, s *entity.Schedule) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// List returns schedules in stable name order.
func (r *ScheduleRepository) List(ctx context.Context, activeOnly bool) ([]entity.Schedule, error) {
	var items []entity.Schedule
	q := r.db.WithContext(ctx).Order("name ASC, id ASC")
	if activeOnly {
		q = q.Where("active = true")
	}
	err := q.Find(&items).Error
	return items, err
}

// ActiveNameExists reports whether another active schedule already uses name.
func (r *ScheduleRepository) ActiveNameExists(ctx context.Context, name, excludeID string) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&entity.Schedule{}).
		Where("name = ? AND active = true", name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// Delete hard-deletes the schedule and nulls the reference on any batch
// that points at it, leaving the batches orphaned but intact.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Batch{}).
			Where("schedule_id = ?", id).
			Update("schedule_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entity.Schedule{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
