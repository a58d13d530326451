package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/cribware/stocktake/internal/count/selection"
	"github.com/cribware/stocktake/internal/inventory"
	"github.com/google/uuid"
)

// BatchService generates count batches from a catalog snapshot and drives
// the batch lifecycle.
type BatchService struct {
	batchRepo    *repository.BatchRepository
	scheduleRepo *repository.ScheduleRepository
	source       inventory.Source
}

func NewBatchService(batchRepo *repository.BatchRepository, scheduleRepo *repository.ScheduleRepository, source inventory.Source) *BatchService {
	return &BatchService{
		batchRepo:    batchRepo,
		scheduleRepo: scheduleRepo,
		source:       source,
	}
}

type CreateBatchReq struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	ScheduleID  *string          `json:"schedule_id"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
	Notes       string           `json:"notes"`
	Selection   selection.Params `json:"selection"`
}

// Create materializes a batch: the selection strategy picks items from the
// catalog snapshot, and each pick becomes a pending count item with its
// expected quantity/location frozen as the audit baseline.
func (s *BatchService) Create(ctx context.Context, req CreateBatchReq, createdBy string) (*entity.Batch, error) {
	if req.ScheduleID != nil {
		if _, err := s.scheduleRepo.FindByID(ctx, *req.ScheduleID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, errs.NotFound("schedule", *req.ScheduleID)
			}
			return nil, err
		}
	}

	if req.Selection.Seed == 0 {
		req.Selection.Seed = time.Now().UnixNano()
	}
	strategy, err := selection.New(req.Selection)
	if err != nil {
		return nil, err
	}

	catalog, err := s.source.Catalog(ctx)
	if err != nil {
		return nil, errs.Dependency("catalog", err)
	}
	picked, err := strategy.Select(catalog)
	if err != nil {
		return nil, err
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}

	batch := &entity.Batch{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		ScheduleID:  req.ScheduleID,
		Status:      entity.BatchStatusPending,
		StartDate:   startDate,
		EndDate:     req.EndDate,
		Notes:       req.Notes,
		Method:      strategy.Method(),
		ItemCount:   req.Selection.ItemCount,
		Category:    req.Selection.Category,
		Location:    req.Selection.Location,
		Seed:        req.Selection.Seed,
		CreatedBy:   createdBy,
	}

	items := make([]entity.CountItem, 0, len(picked))
	for _, it := range picked {
		items = append(items, entity.CountItem{
			ID:               uuid.New().String(),
			BatchID:          batch.ID,
			ItemType:         string(it.Type),
			ItemID:           it.ID,
			ItemName:         it.Name,
			ExpectedQuantity: it.Quantity,
			ExpectedLocation: it.Location,
			QuantityTracked:  it.QuantityTracked,
			Status:           entity.ItemStatusPending,
		})
	}

	if err := s.batchRepo.CreateWithItems(ctx, batch, items); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	batch.Items = items
	return batch, nil
}

type UpdateBatchReq struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Notes       *string    `json:"notes"`
}

// Update mutates batch metadata. Only pending batches are editable.
func (s *BatchService) Update(ctx context.Context, id string, req UpdateBatchReq) (*entity.Batch, error) {
	batch, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch.Status != entity.BatchStatusPending {
		return nil, errs.InvalidState("batch", id, batch.Status, nil)
	}

	if req.Name != nil {
		batch.Name = *req.Name
	}
	if req.Description != nil {
		batch.Description = *req.Description
	}
	if req.StartDate != nil {
		batch.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		batch.EndDate = req.EndDate
	}
	if req.Notes != nil {
		batch.Notes = *req.Notes
	}

	if err := s.batchRepo.Update(ctx, batch); err != nil {
		return nil, fmt.Errorf("update batch: %w", err)
	}
	return batch, nil
}

// Start moves pending → in_progress.
func (s *BatchService) Start(ctx context.Context, id string) (*entity.Batch, error) {
	return s.transition(ctx, id,
		[]string{entity.BatchStatusPending}, entity.BatchStatusInProgress, nil)
}

// BatchProgress summarizes how much of a batch got counted. Complete
// returns it so callers can warn on partial completion; completion with
// uncounted items remaining is accepted (counting is best-effort).
type BatchProgress struct {
	Total         int64   `json:"total"`
	Counted       int64   `json:"counted"`
	Skipped       int64   `json:"skipped"`
	Pending       int64   `json:"pending"`
	Assigned      int64   `json:"assigned"`
	CompletionPct float64 `json:"completion_pct"`
}

// Complete moves in_progress → completed and reports the final progress.
func (s *BatchService) Complete(ctx context.Context, id string) (*entity.Batch, *BatchProgress, error) {
	now := time.Now()
	batch, err := s.transition(ctx, id,
		[]string{entity.BatchStatusInProgress}, entity.BatchStatusCompleted,
		map[string]interface{}{"end_date": now})
	if err != nil {
		return nil, nil, err
	}
	progress, err := s.Progress(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return batch, progress, nil
}

// Cancel moves pending or in_progress → cancelled.
func (s *BatchService) Cancel(ctx context.Context, id string) (*entity.Batch, error) {
	return s.transition(ctx, id,
		[]string{entity.BatchStatusPending, entity.BatchStatusInProgress},
		entity.BatchStatusCancelled, nil)
}

func (s *BatchService) transition(ctx context.Context, id string, from []string, to string, extra map[string]interface{}) (*entity.Batch, error) {
	won, err := s.batchRepo.TransitionStatus(ctx, id, from, to, extra)
	if err != nil {
		return nil, fmt.Errorf("transition batch: %w", err)
	}
	if !won {
		batch, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, errs.InvalidState("batch", id, batch.Status, entity.ValidBatchTransitions[batch.Status])
	}
	return s.find(ctx, id)
}

// Delete removes a batch and everything it owns. A batch holding counted
// items is audit material: deleting it demands force=true.
func (s *BatchService) Delete(ctx context.Context, id string, force bool) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if !force {
		counted, err := s.batchRepo.CountedItemCount(ctx, id)
		if err != nil {
			return fmt.Errorf("count items: %w", err)
		}
		if counted > 0 {
			return errs.Conflict("batch %s has %d counted items; pass force=true to delete", id, counted)
		}
	}
	err := s.batchRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errs.NotFound("batch", id)
	}
	return err
}

func (s *BatchService) Get(ctx context.Context, id string, withItems bool) (*entity.Batch, error) {
	var (
		batch *entity.Batch
		err   error
	)
	if withItems {
		batch, err = s.batchRepo.FindByIDWithItems(ctx, id)
	} else {
		batch, err = s.batchRepo.FindByID(ctx, id)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("batch", id)
	}
	return batch, err
}

func (s *BatchService) List(ctx context.Context, p repository.BatchListParams) ([]entity.Batch, int64, error) {
	return s.batchRepo.List(ctx, p)
}

// Progress computes the per-status breakdown for a batch.
func (s *BatchService) Progress(ctx context.Context, id string) (*BatchProgress, error) {
	breakdown, err := s.batchRepo.StatusBreakdown(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	p := &BatchProgress{
		Counted:  breakdown[entity.ItemStatusCounted],
		Skipped:  breakdown[entity.ItemStatusSkipped],
		Pending:  breakdown[entity.ItemStatusPending],
		Assigned: breakdown[entity.ItemStatusAssigned],
	}
	p.Total = p.Counted + p.Skipped + p.Pending + p.Assigned
	if p.Total > 0 {
		p.CompletionPct = round1(float64(p.Counted+p.Skipped) / float64(p.Total) * 100)
	}
	return p, nil
}

func (s *BatchService) find(ctx context.Context, id string) (*entity.Batch, error) {
	batch, err := s.batchRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("batch", id)
	}
	return batch, err
}
