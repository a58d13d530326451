package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cribware/stocktake/internal/count/entity"
	"gorm.io/gorm"
)

// BatchRepository persists count batches and their owned items.
type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// CreateWithItems materializes a batch and its count items atomically.
func (r *BatchRepository) CreateWithItems(ctx context.Context, b *entity.Batch, items []entity.CountItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(b).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BatchRepository) FindByID(ctx context.Context, id string) (*entity.Batch, error) {
	var b entity.Batch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BatchRepository) FindByIDWithItems(ctx context.Context, id string) (*entity.Batch, error) {
	var b entity.Batch
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("count_items.id ASC") }).
		Where("id = ?", id).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// BatchListParams filters List.
type BatchListParams struct {
	Status     string
	ScheduleID string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

func (r *BatchRepository) List(ctx context.Context, p BatchListParams) ([]entity.Batch, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.Batch{})
	if p.Status != "" {
		q = q.Where("status = ?", p.Status)
	}
	if p.ScheduleID != "" {
		q = q.Where("schedule_id = ?", p.ScheduleID)
	}
	if p.From != nil {
		q = q.Where("created_at >= ?", *p.From)
	}
	if p.To != nil {
		q = q.Where("created_at <= ?", *p.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if p.Page > 0 && p.PageSize > 0 {
		q = q.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
	}
	var batches []entity.Batch
	err := q.Order("created_at DESC, id ASC").Find(&batches).Error
	return batches, total, err
}

func (r *BatchRepository) Update(ctx context.Context, b *entity.Batch) error {
	return r.db.WithContext(ctx).Omit("Items").Save(b).Error
}

// TransitionStatus moves a batch from one of the expected statuses to the
// target status with a compare-and-set. It returns false when another writer
// got there first or the batch is not in an expected status.
func (r *BatchRepository) TransitionStatus(ctx context.Context, id string, from []string, to string, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&entity.Batch{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountedItemCount returns how many of the batch's items carry a result.
func (r *BatchRepository) CountedItemCount(ctx context.Context, batchID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.CountItem{}).
		Where("batch_id = ? AND status = ?", batchID, entity.ItemStatusCounted).
		Count(&n).Error
	return n, err
}

// StatusBreakdown returns item counts per status for a batch.
func (r *BatchRepository) StatusBreakdown(ctx context.Context, batchID string) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&entity.CountItem{}).
		Select("status, COUNT(*) AS n").
		Where("batch_id = ?", batchID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// Delete removes a batch with its items, results and adjustments.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var itemIDs []string
		if err := tx.Model(&entity.CountItem{}).
			Where("batch_id = ?", id).
			Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if len(itemIDs) > 0 {
			var resultIDs []string
			if err := tx.Model(&entity.CountResult{}).
				Where("count_item_id IN ?", itemIDs).
				Pluck("id", &resultIDs).Error; err != nil {
				return err
			}
			if len(resultIDs) > 0 {
				if err := tx.Where("count_result_id IN ?", resultIDs).
					Delete(&entity.Adjustment{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", resultIDs).
					Delete(&entity.CountResult{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("batch_id = ?", id).
				Delete(&entity.CountItem{}).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&entity.Batch{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreatedCompletedPerDay returns batch creation/completion counts per day in
// the range, for the analytics batch trend.
type BatchDayCount struct {
	Day       time.Time `json:"day"`
	Created   int64     `json:"created"`
	Completed int64     `json:"completed"`
}

func (r *BatchRepository) CreatedCompletedPerDay(ctx context.Context, from, to time.Time) ([]BatchDayCount, error) {
	var rows []BatchDayCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT d.day,
			COUNT(b_created.id) AS created,
			COUNT(b_done.id)    AS completed
		FROM generate_series(date_trunc('day', ?::timestamp), date_trunc('day', ?::timestamp), '1 day') AS d(day)
		LEFT JOIN count_batches b_created ON date_trunc('day', b_created.created_at) = d.day
		LEFT JOIN count_batches b_done ON date_trunc('day', b_done.end_date) = d.day AND b_done.status = 'completed'
		GROUP BY d.day
		ORDER BY d.day
	`, from, to).Scan(&rows).Error
	return rows, err
}
