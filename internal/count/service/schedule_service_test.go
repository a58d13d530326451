package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestActiveScheduleNameUniqueAtDatabase(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, repos, svcs := newTestServices(t, src)
	ctx := context.Background()

	if _, err := svcs.Schedule.Create(ctx, CreateScheduleReq{
		Name:      "Weekly Tools",
		Frequency: entity.FrequencyWeekly,
		Method:    entity.MethodAll,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A duplicate insert that skips the service-level name check still
	// fails on the partial unique index.
	dup := &entity.Schedule{
		ID:        uuid.New().String(),
		Name:      "Weekly Tools",
		Frequency: entity.FrequencyDaily,
		Method:    entity.MethodAll,
		Active:    true,
	}
	if err := repos.Schedule.Create(ctx, dup); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("Expected ErrDuplicatedKey, got %v", err)
	}

	// An inactive schedule may reuse the name.
	inactive := &entity.Schedule{
		ID:        uuid.New().String(),
		Name:      "Weekly Tools",
		Frequency: entity.FrequencyDaily,
		Method:    entity.MethodAll,
		Active:    false,
	}
	if err := repos.Schedule.Create(ctx, inactive); err != nil {
		t.Fatalf("Expected inactive duplicate to succeed, got %v", err)
	}
}

func TestScheduleReactivateIntoTakenName(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	if _, err := svcs.Schedule.Create(ctx, CreateScheduleReq{
		Name:      "Monthly Chems",
		Frequency: entity.FrequencyMonthly,
		Method:    entity.MethodAll,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	inactive := false
	dormant, err := svcs.Schedule.Create(ctx, CreateScheduleReq{
		Name:      "Monthly Chems",
		Frequency: entity.FrequencyMonthly,
		Method:    entity.MethodAll,
		Active:    &inactive,
	})
	if err != nil {
		t.Fatalf("create inactive: %v", err)
	}

	reactivate := true
	_, err = svcs.Schedule.Update(ctx, dormant.ID, UpdateScheduleReq{Active: &reactivate})
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError reactivating into a taken name, got %v", err)
	}
}
