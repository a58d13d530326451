package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/cribware/stocktake/internal/inventory"
	"github.com/google/uuid"
)

// AdjustmentService proposes and approves corrections derived from count
// results. Approval is single-writer per count result: a partial unique
// index allows only one applied adjustment per result, the claim is taken
// before the adapter write and rolled back on failure, and the adapter
// write itself is idempotent under the count_result_id + adjustment_type
// key, so neither a retry nor a concurrent sibling can double-apply.
type AdjustmentService struct {
	adjustmentRepo *repository.AdjustmentRepository
	resultRepo     *repository.ResultRepository
	itemRepo       *repository.ItemRepository
	source         inventory.Source
}

func NewAdjustmentService(
	adjustmentRepo *repository.AdjustmentRepository,
	resultRepo *repository.ResultRepository,
	itemRepo *repository.ItemRepository,
	source inventory.Source,
) *AdjustmentService {
	return &AdjustmentService{
		adjustmentRepo: adjustmentRepo,
		resultRepo:     resultRepo,
		itemRepo:       itemRepo,
		source:         source,
	}
}

type ProposeAdjustmentReq struct {
	CountResultID string `json:"count_result_id" binding:"required"`
	Type          string `json:"adjustment_type" binding:"required"`
	NewValue      string `json:"new_value" binding:"required"`
	Notes         string `json:"notes"`
}

// Propose creates an unapplied adjustment for a count result.
func (s *AdjustmentService) Propose(ctx context.Context, req ProposeAdjustmentReq, proposedBy string) (*entity.Adjustment, error) {
	if !entity.ValidAdjustmentType(req.Type) {
		return nil, errs.Validation("adjustment_type", "unknown adjustment type %q", req.Type)
	}
	if req.Type == entity.AdjustmentQuantity {
		if _, err := strconv.ParseFloat(req.NewValue, 64); err != nil {
			return nil, errs.Validation("new_value", "quantity adjustment value %q is not numeric", req.NewValue)
		}
	}

	if _, err := s.resultRepo.FindByID(ctx, req.CountResultID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("count result", req.CountResultID)
		}
		return nil, err
	}

	applied, err := s.adjustmentRepo.HasAppliedForResult(ctx, req.CountResultID)
	if err != nil {
		return nil, fmt.Errorf("check applied adjustments: %w", err)
	}
	if applied {
		return nil, errs.Conflict("count result %s already has an applied adjustment", req.CountResultID)
	}

	adjustment := &entity.Adjustment{
		ID:            uuid.New().String(),
		CountResultID: req.CountResultID,
		Type:          req.Type,
		NewValue:      req.NewValue,
		Notes:         req.Notes,
		ProposedBy:    proposedBy,
	}
	if err := s.adjustmentRepo.Create(ctx, adjustment); err != nil {
		return nil, fmt.Errorf("create adjustment: %w", err)
	}
	return adjustment, nil
}

// Approve writes the correction to the inventory source, then marks the
// adjustment applied. Adapter failure leaves the adjustment unapplied and
// retriable; the engine never retries on its own.
func (s *AdjustmentService) Approve(ctx context.Context, adjustmentID, approvedBy string) (*entity.Adjustment, error) {
	if approvedBy == "" {
		return nil, errs.Validation("approved_by", "required")
	}
	adjustment, err := s.adjustmentRepo.FindByID(ctx, adjustmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("adjustment", adjustmentID)
		}
		return nil, err
	}
	if adjustment.Applied {
		return nil, errs.Conflict("adjustment %s is already applied", adjustmentID)
	}

	applied, err := s.adjustmentRepo.HasAppliedForResult(ctx, adjustment.CountResultID)
	if err != nil {
		return nil, fmt.Errorf("check applied adjustments: %w", err)
	}
	if applied {
		return nil, errs.Conflict("count result %s already has an applied adjustment", adjustment.CountResultID)
	}

	result, err := s.resultRepo.FindByID(ctx, adjustment.CountResultID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("count result", adjustment.CountResultID)
		}
		return nil, err
	}
	item, err := s.itemRepo.FindByID(ctx, result.CountItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("count item", result.CountItemID)
		}
		return nil, err
	}

	write := inventory.AdjustmentWrite{
		Key:       adjustment.IdempotencyKey(),
		ItemType:  inventory.ItemType(item.ItemType),
		ItemID:    item.ItemID,
		Field:     adjustment.Type,
		NewValue:  adjustment.NewValue,
		Notes:     adjustment.Notes,
		WrittenBy: approvedBy,
	}

	// The claim holds the per-result applied slot for the duration of the
	// adapter write; a concurrent approval of any adjustment on the same
	// result loses the claim and never reaches the adapter. Adapter failure
	// rolls the claim back, leaving the adjustment unapplied and retriable.
	won, err := s.adjustmentRepo.ClaimApplied(ctx, adjustmentID, approvedBy, func() error {
		if err := s.source.ApplyAdjustment(ctx, write); err != nil {
			return errs.Dependency("adjustment write", err)
		}
		return nil
	})
	if err != nil {
		var dep *errs.DependencyError
		if errors.As(err, &dep) {
			return nil, err
		}
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}
	if !won {
		return nil, errs.Conflict("count result %s already has an applied adjustment", adjustment.CountResultID)
	}

	return s.adjustmentRepo.FindByID(ctx, adjustmentID)
}

func (s *AdjustmentService) Get(ctx context.Context, id string) (*entity.Adjustment, error) {
	adjustment, err := s.adjustmentRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("adjustment", id)
	}
	return adjustment, err
}

func (s *AdjustmentService) List(ctx context.Context, appliedOnly bool) ([]entity.Adjustment, error) {
	return s.adjustmentRepo.List(ctx, appliedOnly)
}

func (s *AdjustmentService) ListByResult(ctx context.Context, resultID string) ([]entity.Adjustment, error) {
	return s.adjustmentRepo.ListByResult(ctx, resultID)
}
