package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories is the cycle-count store collection.
type Repositories struct {
	Schedule   *ScheduleRepository
	Batch      *BatchRepository
	Item       *ItemRepository
	Result     *ResultRepository
	Adjustment *AdjustmentRepository
}

// NewRepositories creates the cycle-count store collection.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Schedule:   NewScheduleRepository(db),
		Batch:      NewBatchRepository(db),
		Item:       NewItemRepository(db),
		Result:     NewResultRepository(db),
		Adjustment: NewAdjustmentRepository(db),
	}
}
