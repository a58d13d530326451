package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/google/uuid"
)

// ItemService drives the count item state machine:
// pending → assigned → counted | skipped, with assigned optional and the
// terminal states immutable. Every transition is a compare-and-set on the
// item's current status, so concurrent submissions serialize per item.
type ItemService struct {
	itemRepo   *repository.ItemRepository
	resultRepo *repository.ResultRepository
	batchRepo  *repository.BatchRepository
}

func NewItemService(itemRepo *repository.ItemRepository, resultRepo *repository.ResultRepository, batchRepo *repository.BatchRepository) *ItemService {
	return &ItemService{
		itemRepo:   itemRepo,
		resultRepo: resultRepo,
		batchRepo:  batchRepo,
	}
}

// Assign designates a counter for a pending item.
func (s *ItemService) Assign(ctx context.Context, itemID, userID string) (*entity.CountItem, error) {
	if userID == "" {
		return nil, errs.Validation("user_id", "required")
	}
	item, err := s.find(ctx, itemID)
	if err != nil {
		return nil, err
	}

	won, err := s.itemRepo.TransitionStatus(ctx, itemID,
		[]string{entity.ItemStatusPending}, entity.ItemStatusAssigned,
		map[string]interface{}{"assigned_to": userID})
	if err != nil {
		return nil, fmt.Errorf("assign item: %w", err)
	}
	if !won {
		return nil, s.stateError(ctx, item)
	}
	return s.find(ctx, itemID)
}

type SubmitCountReq struct {
	ActualQuantity *float64 `json:"actual_quantity"`
	ActualLocation string   `json:"actual_location"`
	Condition      string   `json:"condition" binding:"required"`
	Notes          string   `json:"notes"`
}

// SubmitCountResponse carries the immutable result plus its classification
// so the caller sees the discrepancy verdict immediately.
type SubmitCountResponse struct {
	Item           *entity.CountItem   `json:"item"`
	Result         *entity.CountResult `json:"result"`
	Discrepancies  []Discrepancy       `json:"discrepancies"`
	PrimaryVerdict Discrepancy         `json:"primary_verdict"`
}

// SubmitCount records what was observed and moves the item to counted.
// Re-submission against a counted or skipped item is rejected, never
// overwritten: the first result is the audit record.
func (s *ItemService) SubmitCount(ctx context.Context, itemID string, req SubmitCountReq, countedBy string) (*SubmitCountResponse, error) {
	item, err := s.find(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !entity.ValidCondition(req.Condition) {
		return nil, errs.Validation("condition", "unknown condition %q", req.Condition)
	}
	var actualQty float64
	if req.Condition == entity.ConditionMissing && req.ActualQuantity == nil {
		actualQty = 0
	} else {
		if item.QuantityTracked && req.ActualQuantity == nil {
			return nil, errs.Validation("actual_quantity", "required for a quantity-tracked item")
		}
		if req.ActualQuantity != nil {
			if *req.ActualQuantity < 0 {
				return nil, errs.Validation("actual_quantity", "must not be negative")
			}
			actualQty = *req.ActualQuantity
		}
	}
	if countedBy == "" {
		return nil, errs.Validation("counted_by", "required")
	}

	result := &entity.CountResult{
		ID:             uuid.New().String(),
		CountItemID:    itemID,
		ActualQuantity: actualQty,
		ActualLocation: req.ActualLocation,
		Condition:      req.Condition,
		Notes:          req.Notes,
		CountedBy:      countedBy,
		CountedAt:      time.Now(),
	}

	won, err := s.itemRepo.TransitionAndCreateResult(ctx, itemID,
		[]string{entity.ItemStatusPending, entity.ItemStatusAssigned}, result)
	if err != nil {
		return nil, fmt.Errorf("submit count: %w", err)
	}
	if !won {
		return nil, s.stateError(ctx, item)
	}

	item, err = s.find(ctx, itemID)
	if err != nil {
		return nil, err
	}
	ds := Classify(item, result)
	return &SubmitCountResponse{
		Item:           item,
		Result:         result,
		Discrepancies:  ds,
		PrimaryVerdict: MostSevere(ds),
	}, nil
}

// Skip excludes an item from the count with a structured reason.
func (s *ItemService) Skip(ctx context.Context, itemID, reason string) (*entity.CountItem, error) {
	if reason == "" {
		return nil, errs.Validation("reason", "required")
	}
	item, err := s.find(ctx, itemID)
	if err != nil {
		return nil, err
	}

	won, err := s.itemRepo.TransitionStatus(ctx, itemID,
		[]string{entity.ItemStatusPending, entity.ItemStatusAssigned},
		entity.ItemStatusSkipped,
		map[string]interface{}{"skip_reason": reason})
	if err != nil {
		return nil, fmt.Errorf("skip item: %w", err)
	}
	if !won {
		return nil, s.stateError(ctx, item)
	}
	return s.find(ctx, itemID)
}

func (s *ItemService) Get(ctx context.Context, itemID string) (*entity.CountItem, error) {
	return s.find(ctx, itemID)
}

func (s *ItemService) ListByBatch(ctx context.Context, batchID, status string) ([]entity.CountItem, error) {
	if _, err := s.batchRepo.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("batch", batchID)
		}
		return nil, err
	}
	return s.itemRepo.ListByBatch(ctx, batchID, status)
}

func (s *ItemService) GetResult(ctx context.Context, resultID string) (*entity.CountResult, error) {
	result, err := s.resultRepo.FindByID(ctx, resultID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("count result", resultID)
	}
	return result, err
}

func (s *ItemService) ListResultsByBatch(ctx context.Context, batchID string) ([]entity.CountResult, error) {
	return s.resultRepo.ListByBatch(ctx, batchID)
}

// stateError re-reads the item and reports its actual state after a lost
// compare-and-set.
func (s *ItemService) stateError(ctx context.Context, stale *entity.CountItem) error {
	current, err := s.find(ctx, stale.ID)
	if err != nil {
		return err
	}
	return errs.InvalidState("count item", current.ID, current.Status,
		entity.ValidItemTransitions[current.Status])
}

func (s *ItemService) find(ctx context.Context, itemID string) (*entity.CountItem, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("count item", itemID)
	}
	return item, err
}
