package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cribware/stocktake/internal/count/entity"
	"gorm.io/gorm"
)

// ItemRepository persists count items. Status transitions go through
// TransitionStatus so concurrent writers serialize per item.
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*entity.CountItem, error) {
	var item entity.CountItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListByBatch returns the batch's items, optionally filtered by status.
func (r *ItemRepository) ListByBatch(ctx context.Context, batchID, status string) ([]entity.CountItem, error) {
	var items []entity.CountItem
	q := r.db.WithContext(ctx).Where("batch_id = ?", batchID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("id ASC").Find(&items).Error
	return items, err
}

// TransitionStatus performs the per-item compare-and-set: the update only
// lands if the row is still in one of the from statuses. Two simultaneous
// submissions therefore yield exactly one winner.
func (r *ItemRepository) TransitionStatus(ctx context.Context, id string, from []string, to string, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&entity.CountItem{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// TransitionAndCreateResult atomically claims the counted transition and
// writes the result row. The unique index on count_results.count_item_id is
// a second line of defense behind the CAS.
func (r *ItemRepository) TransitionAndCreateResult(ctx context.Context, itemID string, from []string, result *entity.CountResult) (bool, error) {
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.CountItem{}).
			Where("id = ? AND status IN ?", itemID, from).
			Updates(map[string]interface{}{
				"status":     entity.ItemStatusCounted,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(result).Error; err != nil {
			return err
		}
		won = true
		return nil
	})
	return won, err
}

// ListCountedInRange returns counted items joined with their results for
// analytics over a date range.
type ItemWithResult struct {
	Item   entity.CountItem
	Result entity.CountResult
}

func (r *ItemRepository) ListCountedInRange(ctx context.Context, from, to time.Time) ([]ItemWithResult, error) {
	var items []entity.CountItem
	err := r.db.WithContext(ctx).
		Joins("JOIN count_results cr ON cr.count_item_id = count_items.id").
		Where("cr.counted_at >= ? AND cr.counted_at <= ?", from, to).
		Preload("Result").
		Order("count_items.id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	out := make([]ItemWithResult, 0, len(items))
	for _, it := range items {
		if it.Result == nil {
			continue
		}
		out = append(out, ItemWithResult{Item: it, Result: *it.Result})
	}
	return out, nil
}

// CountByTypeInRange returns total/counted item tallies per item type for
// items created in the range (the analytics coverage metric).
type TypeCoverage struct {
	ItemType string `json:"item_type"`
	Total    int64  `json:"total"`
	Counted  int64  `json:"counted"`
}

func (r *ItemRepository) CountByTypeInRange(ctx context.Context, from, to time.Time) ([]TypeCoverage, error) {
	var rows []TypeCoverage
	err := r.db.WithContext(ctx).Model(&entity.CountItem{}).
		Select("item_type, COUNT(*) AS total, COUNT(CASE WHEN status = 'counted' THEN 1 END) AS counted").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Group("item_type").
		Order("item_type").
		Scan(&rows).Error
	return rows, err
}
