package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"go.uber.org/zap"
)

func TestAnalyticsAccuracy(t *testing.T) {
	src := newFakeSource(fakeCatalog(5))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch := makeStartedBatch(t, svcs)

	// Four exact matches and one quantity drift: 80% accuracy.
	for _, item := range batch.Items[:4] {
		submitNominal(t, svcs, item, "counter-1")
	}
	qty := 3.0
	if _, err := svcs.Item.SubmitCount(ctx, batch.Items[4].ID, SubmitCountReq{
		ActualQuantity: &qty,
		ActualLocation: "A1",
		Condition:      entity.ConditionGood,
	}, "counter-1"); err != nil {
		t.Fatalf("submit drift: %v", err)
	}

	from := time.Now().AddDate(0, 0, -1)
	to := time.Now().AddDate(0, 0, 1)
	report, err := svcs.Analytics.Compute(ctx, from, to)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if report.OverallAccuracy != 80.0 {
		t.Errorf("Expected 80.0 overall accuracy, got %v", report.OverallAccuracy)
	}
	if report.DiscrepancyTypes[DiscrepancyQuantity] != 1 {
		t.Errorf("Expected 1 quantity discrepancy, got %v", report.DiscrepancyTypes)
	}
	if len(report.UserPerformance) != 1 {
		t.Fatalf("Expected 1 user, got %d", len(report.UserPerformance))
	}
	user := report.UserPerformance[0]
	if user.UserID != "counter-1" || user.Total != 5 || user.Nominal != 4 || user.AccuracyRate != 80.0 {
		t.Errorf("Unexpected user performance: %+v", user)
	}
	if len(report.AccuracyTrends) != 1 {
		t.Fatalf("Expected 1 day bucket, got %d", len(report.AccuracyTrends))
	}
	if report.AccuracyTrends[0].AccuracyRate != 80.0 {
		t.Errorf("Expected 80.0 day accuracy, got %v", report.AccuracyTrends[0].AccuracyRate)
	}

	foundTool := false
	for _, c := range report.Coverage {
		if c.ItemType == "tool" {
			foundTool = true
			if c.Total != 5 || c.Counted != 5 || c.CoveragePct != 100.0 {
				t.Errorf("Unexpected tool coverage: %+v", c)
			}
		}
	}
	if !foundTool {
		t.Error("Expected tool coverage in the report")
	}
}

func TestAnalyticsIncludeUncountedDenominator(t *testing.T) {
	src := newFakeSource(fakeCatalog(4))
	_, repos, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch := makeStartedBatch(t, svcs)
	// Count two of four items, both nominal.
	submitNominal(t, svcs, batch.Items[0], "counter-1")
	submitNominal(t, svcs, batch.Items[1], "counter-1")

	from := time.Now().AddDate(0, 0, -1)
	to := time.Now().AddDate(0, 0, 1)

	// Default denominator: submitted results only.
	report, err := svcs.Analytics.Compute(ctx, from, to)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if report.OverallAccuracy != 100.0 {
		t.Errorf("Expected 100.0 over counted items, got %v", report.OverallAccuracy)
	}

	// Widened denominator: uncounted items count against accuracy.
	wide := NewAnalyticsService(repos.Item, repos.Batch, nil,
		AnalyticsOptions{IncludeUncounted: true}, zap.NewNop())
	report, err = wide.Compute(ctx, from, to)
	if err != nil {
		t.Fatalf("compute wide: %v", err)
	}
	if report.OverallAccuracy != 50.0 {
		t.Errorf("Expected 50.0 with uncounted in denominator, got %v", report.OverallAccuracy)
	}
}

func TestAnalyticsRejectsBadRange(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)

	now := time.Now()
	_, err := svcs.Analytics.Compute(context.Background(), now, now.AddDate(0, 0, -1))
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestAnalyticsBatchTrends(t *testing.T) {
	src := newFakeSource(fakeCatalog(2))
	db, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch := makeStartedBatch(t, svcs)
	if _, _, err := svcs.Batch.Complete(ctx, batch.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Completion day comes from end_date; later metadata writes that touch
	// updated_at must not move the batch between buckets.
	if err := db.Exec("UPDATE count_batches SET updated_at = updated_at + interval '10 days' WHERE id = ?", batch.ID).Error; err != nil {
		t.Fatalf("touch updated_at: %v", err)
	}

	from := time.Now().AddDate(0, 0, -1)
	to := time.Now().AddDate(0, 0, 1)
	report, err := svcs.Analytics.Compute(ctx, from, to)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	var created, completed int64
	for _, day := range report.BatchTrends {
		created += day.Created
		completed += day.Completed
	}
	if created != 1 || completed != 1 {
		t.Errorf("Expected 1 created and 1 completed in trends, got %d/%d", created, completed)
	}
}
