package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/selection"
)

func TestBatchCreateSnapshotsItems(t *testing.T) {
	src := newFakeSource(fakeCatalog(5))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch, err := svcs.Batch.Create(ctx, CreateBatchReq{
		Name:      "Quarterly Audit",
		Selection: selection.Params{Method: entity.MethodAll},
	}, "user-1")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}

	if batch.Status != entity.BatchStatusPending {
		t.Errorf("Expected pending status, got %q", batch.Status)
	}
	if len(batch.Items) != 5 {
		t.Fatalf("Expected 5 items, got %d", len(batch.Items))
	}
	for _, item := range batch.Items {
		if item.Status != entity.ItemStatusPending {
			t.Errorf("Expected pending item, got %q", item.Status)
		}
		if item.ExpectedQuantity != 10 || item.ExpectedLocation != "A1" {
			t.Errorf("Baseline not snapshotted: %+v", item)
		}
	}
}

func TestBatchCreateRandomSampleSize(t *testing.T) {
	src := newFakeSource(fakeCatalog(20))
	_, _, svcs := newTestServices(t, src)

	batch, err := svcs.Batch.Create(context.Background(), CreateBatchReq{
		Name: "Spot Check",
		Selection: selection.Params{
			Method:    entity.MethodRandom,
			ItemCount: 6,
			Seed:      42,
		},
	}, "user-1")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if len(batch.Items) != 6 {
		t.Errorf("Expected 6 items, got %d", len(batch.Items))
	}
	if batch.Seed != 42 {
		t.Errorf("Expected the seed recorded on the batch, got %d", batch.Seed)
	}
}

func TestBatchCreateUnknownSchedule(t *testing.T) {
	src := newFakeSource(fakeCatalog(3))
	_, _, svcs := newTestServices(t, src)

	missing := "no-such-schedule"
	_, err := svcs.Batch.Create(context.Background(), CreateBatchReq{
		Name:       "Orphan",
		ScheduleID: &missing,
		Selection:  selection.Params{Method: entity.MethodAll},
	}, "user-1")
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestBatchCreateCatalogFailure(t *testing.T) {
	src := newFakeSource(fakeCatalog(3))
	src.catalogErr = errors.New("connection refused")
	_, _, svcs := newTestServices(t, src)

	_, err := svcs.Batch.Create(context.Background(), CreateBatchReq{
		Name:      "Doomed",
		Selection: selection.Params{Method: entity.MethodAll},
	}, "user-1")
	var dep *errs.DependencyError
	if !errors.As(err, &dep) {
		t.Fatalf("Expected DependencyError, got %v", err)
	}
}

func TestBatchLifecycle(t *testing.T) {
	src := newFakeSource(fakeCatalog(2))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch, err := svcs.Batch.Create(ctx, CreateBatchReq{
		Name:      "Lifecycle",
		Selection: selection.Params{Method: entity.MethodAll},
	}, "user-1")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}

	started, err := svcs.Batch.Start(ctx, batch.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != entity.BatchStatusInProgress {
		t.Errorf("Expected in_progress, got %q", started.Status)
	}

	// Starting again violates the state machine.
	_, err = svcs.Batch.Start(ctx, batch.ID)
	var is *errs.InvalidStateError
	if !errors.As(err, &is) {
		t.Fatalf("Expected InvalidStateError on double start, got %v", err)
	}

	completed, progress, err := svcs.Batch.Complete(ctx, batch.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != entity.BatchStatusCompleted {
		t.Errorf("Expected completed, got %q", completed.Status)
	}
	if completed.EndDate == nil {
		t.Error("Expected end_date stamped on completion")
	}
	// Nothing was counted; completion is still accepted.
	if progress.Total != 2 || progress.Counted != 0 || progress.CompletionPct != 0 {
		t.Errorf("Unexpected progress: %+v", progress)
	}

	// Completed is terminal.
	_, err = svcs.Batch.Cancel(ctx, batch.ID)
	if !errors.As(err, &is) {
		t.Fatalf("Expected InvalidStateError on cancel after complete, got %v", err)
	}
}

func TestBatchCancelFromPending(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch, _ := svcs.Batch.Create(ctx, CreateBatchReq{
		Name:      "To Cancel",
		Selection: selection.Params{Method: entity.MethodAll},
	}, "user-1")

	cancelled, err := svcs.Batch.Cancel(ctx, batch.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != entity.BatchStatusCancelled {
		t.Errorf("Expected cancelled, got %q", cancelled.Status)
	}
}

func TestBatchUpdateOnlyPending(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch, _ := svcs.Batch.Create(ctx, CreateBatchReq{
		Name:      "Editable",
		Selection: selection.Params{Method: entity.MethodAll},
	}, "user-1")

	newName := "Renamed"
	updated, err := svcs.Batch.Update(ctx, batch.ID, UpdateBatchReq{Name: &newName})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("Expected rename, got %q", updated.Name)
	}

	if _, err := svcs.Batch.Start(ctx, batch.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = svcs.Batch.Update(ctx, batch.ID, UpdateBatchReq{Name: &newName})
	var is *errs.InvalidStateError
	if !errors.As(err, &is) {
		t.Fatalf("Expected InvalidStateError for non-pending update, got %v", err)
	}
}

func TestBatchDeleteCountedRequiresForce(t *testing.T) {
	src := newFakeSource(fakeCatalog(3))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch := makeStartedBatch(t, svcs)
	submitNominal(t, svcs, batch.Items[0], "user-1")

	err := svcs.Batch.Delete(ctx, batch.ID, false)
	var conflict *errs.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError without force, got %v", err)
	}

	if err := svcs.Batch.Delete(ctx, batch.ID, true); err != nil {
		t.Fatalf("force delete: %v", err)
	}
	_, err = svcs.Batch.Get(ctx, batch.ID, false)
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError after delete, got %v", err)
	}
}

func TestScheduleDeleteOrphansBatches(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	schedule, err := svcs.Schedule.Create(ctx, CreateScheduleReq{
		Name:      "Monthly",
		Frequency: entity.FrequencyMonthly,
		Method:    entity.MethodAll,
	})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	batch, err := svcs.Batch.Create(ctx, CreateBatchReq{
		Name:       "From Schedule",
		ScheduleID: &schedule.ID,
		Selection:  selection.Params{Method: entity.MethodAll},
	}, "user-1")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}

	if err := svcs.Schedule.Delete(ctx, schedule.ID); err != nil {
		t.Fatalf("delete schedule: %v", err)
	}

	reloaded, err := svcs.Batch.Get(ctx, batch.ID, false)
	if err != nil {
		t.Fatalf("batch should survive schedule deletion: %v", err)
	}
	if reloaded.ScheduleID != nil {
		t.Errorf("Expected orphaned batch, got schedule_id %v", *reloaded.ScheduleID)
	}
}
