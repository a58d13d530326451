// Package service holds the business logic of the count engine: schedule
// definitions, batch generation and lifecycle, the count item state machine,
// discrepancy classification, adjustment approval, analytics, and file
// import/export.
package service

import (
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/cribware/stocktake/internal/inventory"
	"github.com/cribware/stocktake/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services bundles every service for handler wiring.
type Services struct {
	Schedule   *ScheduleService
	Batch      *BatchService
	Item       *ItemService
	Adjustment *AdjustmentService
	Analytics  *AnalyticsService
	Export     *ExportService
	Import     *ImportService
}

// NewServices wires the service layer. rdb and store may be nil; analytics
// then runs uncached and imports are not archived.
func NewServices(
	repos *repository.Repositories,
	source inventory.Source,
	rdb *redis.Client,
	store *storage.ObjectStore,
	analyticsOpts AnalyticsOptions,
	logger *zap.Logger,
) *Services {
	return &Services{
		Schedule:   NewScheduleService(repos.Schedule),
		Batch:      NewBatchService(repos.Batch, repos.Schedule, source),
		Item:       NewItemService(repos.Item, repos.Result, repos.Batch),
		Adjustment: NewAdjustmentService(repos.Adjustment, repos.Result, repos.Item, source),
		Analytics:  NewAnalyticsService(repos.Item, repos.Batch, rdb, analyticsOpts, logger),
		Export:     NewExportService(repos.Schedule, repos.Batch, repos.Result),
		Import:     NewImportService(repos.Schedule, repos.Batch, repos.Item, repos.Result, store, logger),
	}
}
