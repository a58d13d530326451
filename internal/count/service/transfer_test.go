package service

import (
	"context"
	"strings"
	"testing"

	"github.com/cribware/stocktake/internal/count/entity"
)

func TestScheduleExportImportRoundTrip(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	if _, err := svcs.Schedule.Create(ctx, CreateScheduleReq{
		Name:      "Weekly Tools",
		Frequency: entity.FrequencyWeekly,
		Method:    entity.MethodRandom,
	}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if _, err := svcs.Schedule.Create(ctx, CreateScheduleReq{
		Name:      "Annual Everything",
		Frequency: entity.FrequencyAnnual,
		Method:    entity.MethodAll,
	}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	data, filename, err := svcs.Export.ExportSchedules(ctx, false, FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasSuffix(filename, ".csv") {
		t.Errorf("Expected .csv filename, got %q", filename)
	}

	// Re-importing our own export must change nothing.
	summary, err := svcs.Import.Import(ctx, ScopeSchedules, filename, data, "importer-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 0 || summary.Updated != 0 || len(summary.Errors) != 0 {
		t.Errorf("Expected a no-op re-import, got %+v", summary)
	}

	schedules, err := svcs.Schedule.List(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(schedules) != 2 {
		t.Errorf("Expected 2 schedules after round trip, got %d", len(schedules))
	}
}

func TestScheduleExportImportRoundTripXLSX(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	if _, err := svcs.Schedule.Create(ctx, CreateScheduleReq{
		Name:      "Quarterly ABC",
		Frequency: entity.FrequencyQuarterly,
		Method:    entity.MethodABC,
	}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	data, filename, err := svcs.Export.ExportSchedules(ctx, false, FormatXLSX)
	if err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("Expected .xlsx filename, got %q", filename)
	}

	summary, err := svcs.Import.Import(ctx, ScopeSchedules, filename, data, "importer-1")
	if err != nil {
		t.Fatalf("import xlsx: %v", err)
	}
	if summary.Imported != 0 || summary.Updated != 0 || len(summary.Errors) != 0 {
		t.Errorf("Expected a no-op re-import, got %+v", summary)
	}
}

func TestImportSchedulesPartialFailure(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"id,name,description,frequency,method,active",
		",Daily Chems,,daily,all,Yes",
		",Broken Row,,fortnightly,all,Yes",
		",Monthly Hand Tools,,monthly,category,No",
	}, "\n")

	summary, err := svcs.Import.Import(ctx, ScopeSchedules, "schedules.csv", []byte(csvData), "importer-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 2 {
		t.Errorf("Expected 2 imported, got %d", summary.Imported)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("Expected 1 row error, got %+v", summary.Errors)
	}
	if summary.Errors[0].Row != 3 {
		t.Errorf("Expected the error on row 3, got row %d", summary.Errors[0].Row)
	}
	if !strings.Contains(summary.Errors[0].Message, "fortnightly") {
		t.Errorf("Expected the bad value named, got %q", summary.Errors[0].Message)
	}

	// The file as a whole succeeded around the bad row.
	schedules, _ := svcs.Schedule.List(ctx, false)
	if len(schedules) != 2 {
		t.Errorf("Expected 2 schedules, got %d", len(schedules))
	}
}

func TestImportSchedulesWindows1252Fallback(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	// 0xE9 is é in Windows-1252 and invalid as standalone UTF-8.
	raw := []byte("id,name,description,frequency,method,active\n,Caf\xe9 Stock,,daily,all,Yes\n")

	summary, err := svcs.Import.Import(ctx, ScopeSchedules, "legacy.csv", raw, "importer-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 1 || len(summary.Errors) != 0 {
		t.Fatalf("Expected 1 clean import, got %+v", summary)
	}

	schedules, _ := svcs.Schedule.List(ctx, false)
	if len(schedules) != 1 || schedules[0].Name != "Café Stock" {
		t.Errorf("Expected decoded name 'Café Stock', got %+v", schedules)
	}
}

func TestImportScheduleUpdateByID(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	schedule, err := svcs.Schedule.Create(ctx, CreateScheduleReq{
		Name:      "Before",
		Frequency: entity.FrequencyDaily,
		Method:    entity.MethodAll,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	csvData := "id,name,description,frequency,method,active\n" +
		schedule.ID + ",After,touched by import,weekly,all,Yes\n"
	summary, err := svcs.Import.Import(ctx, ScopeSchedules, "update.csv", []byte(csvData), "importer-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Updated != 1 || summary.Imported != 0 {
		t.Fatalf("Expected 1 update, got %+v", summary)
	}

	reloaded, _ := svcs.Schedule.Get(ctx, schedule.ID)
	if reloaded.Name != "After" || reloaded.Frequency != entity.FrequencyWeekly {
		t.Errorf("Update not applied: %+v", reloaded)
	}
}

func TestBatchExportImportRoundTrip(t *testing.T) {
	src := newFakeSource(fakeCatalog(2))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch := makeStartedBatch(t, svcs)

	data, _, err := svcs.Export.ExportBatches(ctx, batch.ID, "", FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	summary, err := svcs.Import.Import(ctx, ScopeBatches, "batches.csv", data, "importer-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 0 || summary.Updated != 0 || len(summary.Errors) != 0 {
		t.Errorf("Expected a no-op re-import, got %+v", summary)
	}
}

func TestImportBatchUnknownScheduleIsRowError(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"id,name,description,schedule_name,status,start_date,end_date,method,notes",
		",Ghost Batch,,No Such Schedule,pending,2026-08-01,,all,",
	}, "\n")

	summary, err := svcs.Import.Import(ctx, ScopeBatches, "batches.csv", []byte(csvData), "importer-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 0 || len(summary.Errors) != 1 {
		t.Fatalf("Expected 1 row error, got %+v", summary)
	}
	if !strings.Contains(summary.Errors[0].Message, "No Such Schedule") {
		t.Errorf("Expected the schedule named, got %q", summary.Errors[0].Message)
	}
}

func TestImportBatchDuplicateNameInFile(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"id,name,description,schedule_name,status,start_date,end_date,method,notes",
		",Twin,,,pending,2026-08-01,,all,",
		",Twin,,,pending,2026-08-02,,all,",
	}, "\n")

	summary, err := svcs.Import.Import(ctx, ScopeBatches, "batches.csv", []byte(csvData), "importer-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 1 {
		t.Errorf("Expected 1 imported, got %d", summary.Imported)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].Row != 3 {
		t.Fatalf("Expected a row error on row 3, got %+v", summary.Errors)
	}
}

func TestResultsExportImport(t *testing.T) {
	src := newFakeSource(fakeCatalog(3))
	_, _, svcs := newTestServices(t, src)
	ctx := context.Background()

	batch := makeStartedBatch(t, svcs)
	submitNominal(t, svcs, batch.Items[0], "counter-1")

	// Re-importing our own export is a no-op.
	data, _, err := svcs.Export.ExportResults(ctx, batch.ID, FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	summary, err := svcs.Import.Import(ctx, ScopeResults, "results.csv", data, "importer-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Imported != 0 || len(summary.Errors) != 0 {
		t.Errorf("Expected a no-op re-import, got %+v", summary)
	}

	// Importing a result for an uncounted item counts it.
	csvData := strings.Join([]string{
		"id,item_id,actual_quantity,actual_location,condition,notes,counted_by,counted_at",
		"," + batch.Items[1].ID + ",10,A1,good,,field-team,2026-08-20 09:30:00",
	}, "\n")
	summary, err = svcs.Import.Import(ctx, ScopeResults, "results.csv", []byte(csvData), "importer-1")
	if err != nil {
		t.Fatalf("import new result: %v", err)
	}
	if summary.Imported != 1 || len(summary.Errors) != 0 {
		t.Fatalf("Expected 1 import, got %+v", summary)
	}
	item, _ := svcs.Item.Get(ctx, batch.Items[1].ID)
	if item.Status != entity.ItemStatusCounted {
		t.Errorf("Expected counted after import, got %q", item.Status)
	}

	// A conflicting row against a counted item is a row error, and the
	// stored result stays intact.
	conflicting := strings.Join([]string{
		"id,item_id,actual_quantity,actual_location,condition,notes,counted_by,counted_at",
		"," + batch.Items[0].ID + ",999,Z9,damaged,,intruder,2026-08-21 10:00:00",
	}, "\n")
	summary, err = svcs.Import.Import(ctx, ScopeResults, "results.csv", []byte(conflicting), "importer-1")
	if err != nil {
		t.Fatalf("import conflicting: %v", err)
	}
	if summary.Imported != 0 || len(summary.Errors) != 1 {
		t.Fatalf("Expected 1 row error, got %+v", summary)
	}
}

func TestExportUnknownFormatRejected(t *testing.T) {
	src := newFakeSource(fakeCatalog(1))
	_, _, svcs := newTestServices(t, src)

	_, _, err := svcs.Export.ExportSchedules(context.Background(), false, "pdf")
	if err == nil {
		t.Fatal("Expected an error for an unknown format")
	}
}
