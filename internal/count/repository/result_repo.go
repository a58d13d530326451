package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cribware/stocktake/internal/count/entity"
	"gorm.io/gorm"
)

// ResultRepository persists count results. Results are append-only.
type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Create(ctx context.Context, res *entity.CountResult) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *ResultRepository) FindByID(ctx context.Context, id string) (*entity.CountResult, error) {
	var res entity.CountResult
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *ResultRepository) FindByItemID(ctx context.Context, itemID string) (*entity.CountResult, error) {
	var res entity.CountResult
	err := r.db.WithContext(ctx).Where("count_item_id = ?", itemID).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ListByBatch returns all results belonging to a batch's items.
func (r *ResultRepository) ListByBatch(ctx context.Context, batchID string) ([]entity.CountResult, error) {
	var results []entity.CountResult
	err := r.db.WithContext(ctx).
		Joins("JOIN count_items ci ON ci.id = count_results.count_item_id").
		Where("ci.batch_id = ?", batchID).
		Order("count_results.id ASC").
		Find(&results).Error
	return results, err
}

// ListInRange returns results counted within [from, to].
func (r *ResultRepository) ListInRange(ctx context.Context, from, to time.Time) ([]entity.CountResult, error) {
	var results []entity.CountResult
	err := r.db.WithContext(ctx).
		Where("counted_at >= ? AND counted_at <= ?", from, to).
		Order("counted_at ASC, id ASC").
		Find(&results).Error
	return results, err
}
