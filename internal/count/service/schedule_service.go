package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduleService manages recurring audit definitions. Schedule firing
// (generating a batch on the recorded cadence) is external orchestration;
// this service only owns the definitions.
type ScheduleService struct {
	repo *repository.ScheduleRepository
}

func NewScheduleService(repo *repository.ScheduleRepository) *ScheduleService {
	return &ScheduleService{repo: repo}
}

type CreateScheduleReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Frequency   string `json:"frequency" binding:"required"`
	Method      string `json:"method" binding:"required"`
	Active      *bool  `json:"active"`
}

func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleReq) (*entity.Schedule, error) {
	if !entity.ValidFrequency(req.Frequency) {
		return nil, errs.Validation("frequency", "unknown frequency %q", req.Frequency)
	}
	if !entity.ValidMethod(req.Method) {
		return nil, errs.Validation("method", "unknown selection method %q", req.Method)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	if active {
		exists, err := s.repo.ActiveNameExists(ctx, req.Name, "")
		if err != nil {
			return nil, fmt.Errorf("check schedule name: %w", err)
		}
		if exists {
			return nil, errs.Validation("name", "an active schedule named %q already exists", req.Name)
		}
	}

	schedule := &entity.Schedule{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		Method:      req.Method,
		Active:      active,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		// The partial unique index catches a concurrent create that slips
		// past the name check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.Validation("name", "an active schedule named %q already exists", req.Name)
		}
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	return schedule, nil
}

type UpdateScheduleReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Frequency   *string `json:"frequency"`
	Method      *string `json:"method"`
	Active      *bool   `json:"active"`
}

func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleReq) (*entity.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("schedule", id)
		}
		return nil, err
	}

	if req.Frequency != nil {
		if !entity.ValidFrequency(*req.Frequency) {
			return nil, errs.Validation("frequency", "unknown frequency %q", *req.Frequency)
		}
		schedule.Frequency = *req.Frequency
	}
	if req.Method != nil {
		if !entity.ValidMethod(*req.Method) {
			return nil, errs.Validation("method", "unknown selection method %q", *req.Method)
		}
		schedule.Method = *req.Method
	}
	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.Description != nil {
		schedule.Description = *req.Description
	}
	if req.Active != nil {
		schedule.Active = *req.Active
	}

	// Re-check uniqueness when the schedule ends up active, whether the
	// name, the flag, or both changed.
	if schedule.Active {
		exists, err := s.repo.ActiveNameExists(ctx, schedule.Name, schedule.ID)
		if err != nil {
			return nil, fmt.Errorf("check schedule name: %w", err)
		}
		if exists {
			return nil, errs.Validation("name", "an active schedule named %q already exists", schedule.Name)
		}
	}

	if err := s.repo.Update(ctx, schedule); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.Validation("name", "an active schedule named %q already exists", schedule.Name)
		}
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return schedule, nil
}

// Delete hard-deletes the schedule. Batches that reference it are orphaned,
// never deleted.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errs.NotFound("schedule", id)
	}
	return err
}

func (s *ScheduleService) Get(ctx context.Context, id string) (*entity.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.NotFound("schedule", id)
	}
	return schedule, err
}

func (s *ScheduleService) List(ctx context.Context, activeOnly bool) ([]entity.Schedule, error) {
	return s.repo.List(ctx, activeOnly)
}
