package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cribware/stocktake/internal/count/entity"
	"gorm.io/gorm"
)

// AdjustmentRepository persists adjustments. The applied flag only moves
// false→true, and only through ClaimApplied's guarded transaction.
type AdjustmentRepository struct {
	db *gorm.DB
}

func NewAdjustmentRepository(db *gorm.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

func (r *AdjustmentRepository) Create(ctx context.Context, a *entity.Adjustment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AdjustmentRepository) FindByID(ctx context.Context, id string) (*entity.Adjustment, error) {
	var a entity.Adjustment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AdjustmentRepository) ListByResult(ctx context.Context, resultID string) ([]entity.Adjustment, error) {
	var items []entity.Adjustment
	err := r.db.WithContext(ctx).
		Where("count_result_id = ?", resultID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *AdjustmentRepository) List(ctx context.Context, appliedOnly bool) ([]entity.Adjustment, error) {
	var items []entity.Adjustment
	q := r.db.WithContext(ctx).Order("created_at DESC, id ASC")
	if appliedOnly {
		q = q.Where("applied = true")
	}
	err := q.Find(&items).Error
	return items, err
}

// HasAppliedForResult reports whether any adjustment has already been
// applied for the result (the at-most-once guard).
func (r *AdjustmentRepository) HasAppliedForResult(ctx context.Context, resultID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Adjustment{}).
		Where("count_result_id = ? AND applied = true", resultID).
		Count(&n).Error
	return n > 0, err
}

var errClaimLost = errors.New("applied claim lost")

// ClaimApplied flips applied inside a transaction, runs write, and commits
// only if write succeeds. The claim is single-writer per count result: the
// partial unique index on count_adjustments(count_result_id) WHERE applied
// blocks a concurrent sibling's update until this transaction resolves, so
// the loser sees a unique violation before it ever reaches its own write.
// Returns false when the claim was lost either way; an error from write
// rolls the claim back and leaves the adjustment unapplied.
func (r *AdjustmentRepository) ClaimApplied(ctx context.Context, id, approvedBy string, write func() error) (bool, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Adjustment{}).
			Where("id = ? AND applied = false", id).
			Updates(map[string]interface{}{
				"applied":     true,
				"approved_by": approvedBy,
				"approved_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errClaimLost
		}
		return write()
	})
	if errors.Is(err, errClaimLost) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
