package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/xuri/excelize/v2"
)

// Export formats and scopes.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ScopeSchedules = "schedules"
	ScopeBatches   = "batches"
	ScopeResults   = "results"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// Column projections are stable: import consumes exactly these headers.
var (
	scheduleExportHeaders = []string{
		"id", "name", "description", "frequency", "method", "active",
	}
	batchExportHeaders = []string{
		"id", "name", "description", "schedule_name", "status",
		"start_date", "end_date", "method", "notes",
	}
	resultExportHeaders = []string{
		"id", "item_id", "actual_quantity", "actual_location",
		"condition", "notes", "counted_by", "counted_at",
	}
)

// ExportService serializes schedules, batches and results to CSV or xlsx
// with a stable column projection per scope.
type ExportService struct {
	scheduleRepo *repository.ScheduleRepository
	batchRepo    *repository.BatchRepository
	resultRepo   *repository.ResultRepository
}

func NewExportService(scheduleRepo *repository.ScheduleRepository, batchRepo *repository.BatchRepository, resultRepo *repository.ResultRepository) *ExportService {
	return &ExportService{
		scheduleRepo: scheduleRepo,
		batchRepo:    batchRepo,
		resultRepo:   resultRepo,
	}
}

// ExportSchedules renders all (or only active) schedules.
func (s *ExportService) ExportSchedules(ctx context.Context, activeOnly bool, format string) ([]byte, string, error) {
	schedules, err := s.scheduleRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, "", fmt.Errorf("list schedules: %w", err)
	}

	rows := make([][]string, 0, len(schedules))
	for _, sc := range schedules {
		active := "Yes"
		if !sc.Active {
			active = "No"
		}
		rows = append(rows, []string{
			sc.ID, sc.Name, sc.Description, sc.Frequency, sc.Method, active,
		})
	}

	name := fmt.Sprintf("%s_%s", ScopeSchedules, time.Now().Format("2006-01-02"))
	return s.render(format, "Schedules", scheduleExportHeaders, rows, name)
}

// ExportBatches renders batch metadata; batchID narrows to a single batch
// and names the file after it.
func (s *ExportService) ExportBatches(ctx context.Context, batchID, status, format string) ([]byte, string, error) {
	var batches []entity.Batch
	if batchID != "" {
		batch, err := s.batchRepo.FindByID(ctx, batchID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, "", errs.NotFound("batch", batchID)
			}
			return nil, "", err
		}
		batches = []entity.Batch{*batch}
	} else {
		var err error
		batches, _, err = s.batchRepo.List(ctx, repository.BatchListParams{Status: status})
		if err != nil {
			return nil, "", fmt.Errorf("list batches: %w", err)
		}
	}

	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		scheduleName := ""
		if b.ScheduleID != nil {
			if sc, err := s.scheduleRepo.FindByID(ctx, *b.ScheduleID); err == nil {
				scheduleName = sc.Name
			}
		}
		endDate := ""
		if b.EndDate != nil {
			endDate = b.EndDate.Format(exportTimeLayout)
		}
		rows = append(rows, []string{
			b.ID, b.Name, b.Description, scheduleName, b.Status,
			b.StartDate.Format(exportTimeLayout), endDate, b.Method, b.Notes,
		})
	}

	name := fmt.Sprintf("%s_%s", ScopeBatches, time.Now().Format("2006-01-02"))
	if batchID != "" {
		name = fmt.Sprintf("batch_%s", batchID)
	}
	return s.render(format, "Batches", batchExportHeaders, rows, name)
}

// ExportResults renders the count results of one batch.
func (s *ExportService) ExportResults(ctx context.Context, batchID, format string) ([]byte, string, error) {
	if _, err := s.batchRepo.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", errs.NotFound("batch", batchID)
		}
		return nil, "", err
	}
	results, err := s.resultRepo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, "", fmt.Errorf("list results: %w", err)
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.ID, r.CountItemID,
			strconv.FormatFloat(r.ActualQuantity, 'f', -1, 64),
			r.ActualLocation, r.Condition, r.Notes, r.CountedBy,
			r.CountedAt.Format(exportTimeLayout),
		})
	}

	name := fmt.Sprintf("%s_%s", ScopeResults, batchID)
	return s.render(format, "Results", resultExportHeaders, rows, name)
}

func (s *ExportService) render(format, sheet string, headers []string, rows [][]string, baseName string) ([]byte, string, error) {
	switch format {
	case FormatCSV, "":
		data, err := csvBytes(headers, rows)
		return data, baseName + ".csv", err
	case FormatXLSX:
		data, err := xlsxBytes(sheet, headers, rows)
		return data, baseName + ".xlsx", err
	default:
		return nil, "", errs.Validation("format", "unknown export format %q", format)
	}
}

func csvBytes(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxBytes(sheet string, headers []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
		f.SetColWidth(sheet, col, col, 18)
	}
	for rowIdx, row := range rows {
		for colIdx, v := range row {
			col, _ := excelize.ColumnNumberToName(colIdx + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, rowIdx+2), v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
