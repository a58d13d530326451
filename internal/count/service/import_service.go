package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/cribware/stocktake/internal/storage"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

var importDateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// RowError is one rejected import row. Row numbers are 1-based and include
// the header, so the first data row is row 2.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportSummary reports what a file import did. A failed row never aborts
// the rest of the file.
type ImportSummary struct {
	Imported int        `json:"imported_count"`
	Updated  int        `json:"updated_count"`
	Errors   []RowError `json:"errors"`
}

// ImportService ingests schedules, batches and count results from CSV or
// xlsx files. Re-importing a previously exported file is a no-op: rows whose
// id already exists with the same content are skipped. Uploads are archived
// to the object store when one is configured.
type ImportService struct {
	scheduleRepo *repository.ScheduleRepository
	batchRepo    *repository.BatchRepository
	itemRepo     *repository.ItemRepository
	resultRepo   *repository.ResultRepository
	store        *storage.ObjectStore
	logger       *zap.Logger
}

func NewImportService(
	scheduleRepo *repository.ScheduleRepository,
	batchRepo *repository.BatchRepository,
	itemRepo *repository.ItemRepository,
	resultRepo *repository.ResultRepository,
	store *storage.ObjectStore,
	logger *zap.Logger,
) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		scheduleRepo: scheduleRepo,
		batchRepo:    batchRepo,
		itemRepo:     itemRepo,
		resultRepo:   resultRepo,
		store:        store,
		logger:       logger,
	}
}

// Import parses the file and dispatches on scope.
func (s *ImportService) Import(ctx context.Context, scope, filename string, data []byte, importedBy string) (*ImportSummary, error) {
	rows, err := parseRows(filename, data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.Validation("file", "file has no header row")
	}

	s.archive(ctx, scope, filename, data)

	header := indexHeader(rows[0])
	switch scope {
	case ScopeSchedules:
		return s.importSchedules(ctx, header, rows[1:])
	case ScopeBatches:
		return s.importBatches(ctx, header, rows[1:], importedBy)
	case ScopeResults:
		return s.importResults(ctx, header, rows[1:], importedBy)
	default:
		return nil, errs.Validation("scope", "unknown import scope %q", scope)
	}
}

func (s *ImportService) importSchedules(ctx context.Context, header map[string]int, rows [][]string) (*ImportSummary, error) {
	if err := requireColumns(header, "name", "frequency", "method"); err != nil {
		return nil, err
	}

	summary := &ImportSummary{Errors: []RowError{}}
	for i, row := range rows {
		rowNum := i + 2
		get := cellReader(header, row)

		name := strings.TrimSpace(get("name"))
		frequency := get("frequency")
		method := get("method")
		if name == "" {
			summary.reject(rowNum, "name is required")
			continue
		}
		if !entity.ValidFrequency(frequency) {
			summary.reject(rowNum, fmt.Sprintf("unknown frequency %q", frequency))
			continue
		}
		if !entity.ValidMethod(method) {
			summary.reject(rowNum, fmt.Sprintf("unknown method %q", method))
			continue
		}
		active := true
		if raw := get("active"); raw != "" {
			parsed, ok := parseYesNo(raw)
			if !ok {
				summary.reject(rowNum, fmt.Sprintf("active must be Yes or No, got %q", raw))
				continue
			}
			active = parsed
		}

		incoming := entity.Schedule{
			ID:          get("id"),
			Name:        name,
			Description: get("description"),
			Frequency:   frequency,
			Method:      method,
			Active:      active,
		}

		if incoming.ID != "" {
			existing, err := s.scheduleRepo.FindByID(ctx, incoming.ID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("lookup schedule: %w", err)
			}
			if existing != nil {
				if sameSchedule(existing, &incoming) {
					continue
				}
				if incoming.Active {
					dup, err := s.scheduleRepo.ActiveNameExists(ctx, name, existing.ID)
					if err != nil {
						return nil, fmt.Errorf("check schedule name: %w", err)
					}
					if dup {
						summary.reject(rowNum, fmt.Sprintf("an active schedule named %q already exists", name))
						continue
					}
				}
				existing.Name = incoming.Name
				existing.Description = incoming.Description
				existing.Frequency = incoming.Frequency
				existing.Method = incoming.Method
				existing.Active = incoming.Active
				if err := s.scheduleRepo.Update(ctx, existing); err != nil {
					return nil, fmt.Errorf("update schedule: %w", err)
				}
				summary.Updated++
				continue
			}
		}

		if incoming.Active {
			dup, err := s.scheduleRepo.ActiveNameExists(ctx, name, "")
			if err != nil {
				return nil, fmt.Errorf("check schedule name: %w", err)
			}
			if dup {
				summary.reject(rowNum, fmt.Sprintf("an active schedule named %q already exists", name))
				continue
			}
		}
		if incoming.ID == "" {
			incoming.ID = uuid.New().String()
		}
		if err := s.scheduleRepo.Create(ctx, &incoming); err != nil {
			return nil, fmt.Errorf("create schedule: %w", err)
		}
		summary.Imported++
	}
	return summary, nil
}

func (s *ImportService) importBatches(ctx context.Context, header map[string]int, rows [][]string, importedBy string) (*ImportSummary, error) {
	if err := requireColumns(header, "name", "status", "start_date", "method"); err != nil {
		return nil, err
	}

	summary := &ImportSummary{Errors: []RowError{}}
	seenNames := make(map[string]int)
	for i, row := range rows {
		rowNum := i + 2
		get := cellReader(header, row)

		name := strings.TrimSpace(get("name"))
		if name == "" {
			summary.reject(rowNum, "name is required")
			continue
		}
		if firstRow, dup := seenNames[name]; dup {
			summary.reject(rowNum, fmt.Sprintf("batch name %q already used on row %d", name, firstRow))
			continue
		}
		seenNames[name] = rowNum
		status := get("status")
		if status != entity.BatchStatusPending && status != entity.BatchStatusInProgress &&
			status != entity.BatchStatusCompleted && status != entity.BatchStatusCancelled {
			summary.reject(rowNum, fmt.Sprintf("unknown status %q", status))
			continue
		}
		if !entity.ValidMethod(get("method")) {
			summary.reject(rowNum, fmt.Sprintf("unknown method %q", get("method")))
			continue
		}
		startDate, err := parseImportDate(get("start_date"))
		if err != nil {
			summary.reject(rowNum, fmt.Sprintf("bad start_date %q", get("start_date")))
			continue
		}
		var endDate *time.Time
		if raw := get("end_date"); raw != "" {
			t, err := parseImportDate(raw)
			if err != nil {
				summary.reject(rowNum, fmt.Sprintf("bad end_date %q", raw))
				continue
			}
			endDate = &t
		}

		var scheduleID *string
		if scheduleName := strings.TrimSpace(get("schedule_name")); scheduleName != "" {
			schedule, err := s.scheduleRepo.FindByName(ctx, scheduleName)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					summary.reject(rowNum, fmt.Sprintf("schedule %q not found", scheduleName))
					continue
				}
				return nil, fmt.Errorf("lookup schedule: %w", err)
			}
			scheduleID = &schedule.ID
		}

		incoming := entity.Batch{
			ID:          get("id"),
			Name:        name,
			Description: get("description"),
			ScheduleID:  scheduleID,
			Status:      status,
			StartDate:   startDate,
			EndDate:     endDate,
			Method:      get("method"),
			Notes:       get("notes"),
			CreatedBy:   importedBy,
		}

		if incoming.ID != "" {
			existing, err := s.batchRepo.FindByID(ctx, incoming.ID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("lookup batch: %w", err)
			}
			if existing != nil {
				if sameBatch(existing, &incoming) {
					continue
				}
				// Only pending batches take metadata from an import; a
				// running or finished batch is an audit record.
				if existing.Status != entity.BatchStatusPending {
					summary.reject(rowNum, fmt.Sprintf("batch %s is %s and cannot be updated by import", existing.ID, existing.Status))
					continue
				}
				if incoming.Status != entity.BatchStatusPending {
					summary.reject(rowNum, "import cannot change batch status; use the lifecycle endpoints")
					continue
				}
				existing.Name = incoming.Name
				existing.Description = incoming.Description
				existing.ScheduleID = incoming.ScheduleID
				existing.StartDate = incoming.StartDate
				existing.EndDate = incoming.EndDate
				existing.Notes = incoming.Notes
				if err := s.batchRepo.Update(ctx, existing); err != nil {
					return nil, fmt.Errorf("update batch: %w", err)
				}
				summary.Updated++
				continue
			}
		}

		if incoming.ID == "" {
			incoming.ID = uuid.New().String()
		}
		if err := s.batchRepo.CreateWithItems(ctx, &incoming, nil); err != nil {
			return nil, fmt.Errorf("create batch: %w", err)
		}
		summary.Imported++
	}
	return summary, nil
}

func (s *ImportService) importResults(ctx context.Context, header map[string]int, rows [][]string, importedBy string) (*ImportSummary, error) {
	if err := requireColumns(header, "item_id", "condition"); err != nil {
		return nil, err
	}

	summary := &ImportSummary{Errors: []RowError{}}
	for i, row := range rows {
		rowNum := i + 2
		get := cellReader(header, row)

		itemID := strings.TrimSpace(get("item_id"))
		if itemID == "" {
			summary.reject(rowNum, "item_id is required")
			continue
		}
		item, err := s.itemRepo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				summary.reject(rowNum, fmt.Sprintf("count item %s not found", itemID))
				continue
			}
			return nil, fmt.Errorf("lookup count item: %w", err)
		}

		condition := get("condition")
		if !entity.ValidCondition(condition) {
			summary.reject(rowNum, fmt.Sprintf("unknown condition %q", condition))
			continue
		}
		var quantity float64
		if raw := get("actual_quantity"); raw != "" {
			quantity, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				summary.reject(rowNum, fmt.Sprintf("bad actual_quantity %q", raw))
				continue
			}
			if quantity < 0 {
				summary.reject(rowNum, "actual_quantity must not be negative")
				continue
			}
		} else if item.QuantityTracked && condition != entity.ConditionMissing {
			summary.reject(rowNum, "actual_quantity is required for a quantity-tracked item")
			continue
		}
		countedAt := time.Now()
		if raw := get("counted_at"); raw != "" {
			countedAt, err = parseImportDate(raw)
			if err != nil {
				summary.reject(rowNum, fmt.Sprintf("bad counted_at %q", raw))
				continue
			}
		}
		countedBy := get("counted_by")
		if countedBy == "" {
			countedBy = importedBy
		}

		if item.Status == entity.ItemStatusCounted {
			existing, err := s.resultRepo.FindByItemID(ctx, itemID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("lookup result: %w", err)
			}
			if existing != nil && get("id") == existing.ID {
				// Re-import of our own export.
				continue
			}
			summary.reject(rowNum, fmt.Sprintf("count item %s is already counted; results are immutable", itemID))
			continue
		}

		result := &entity.CountResult{
			ID:             get("id"),
			CountItemID:    itemID,
			ActualQuantity: quantity,
			ActualLocation: get("actual_location"),
			Condition:      condition,
			Notes:          get("notes"),
			CountedBy:      countedBy,
			CountedAt:      countedAt,
		}
		if result.ID == "" {
			result.ID = uuid.New().String()
		}
		won, err := s.itemRepo.TransitionAndCreateResult(ctx, itemID,
			[]string{entity.ItemStatusPending, entity.ItemStatusAssigned}, result)
		if err != nil {
			return nil, fmt.Errorf("import result: %w", err)
		}
		if !won {
			summary.reject(rowNum, fmt.Sprintf("count item %s is %s and cannot take a result", itemID, item.Status))
			continue
		}
		summary.Imported++
	}
	return summary, nil
}

func (s *ImportService) archive(ctx context.Context, scope, filename string, data []byte) {
	if s.store == nil {
		return
	}
	name := fmt.Sprintf("imports/%s/%s_%s", scope, time.Now().Format("20060102T150405"), filename)
	contentType := "text/csv"
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err := s.store.Put(ctx, name, data, contentType); err != nil {
		s.logger.Warn("import archive failed",
			zap.String("object", name), zap.Error(err))
	}
}

func (summary *ImportSummary) reject(row int, message string) {
	summary.Errors = append(summary.Errors, RowError{Row: row, Message: message})
}

// parseRows decodes the upload into a uniform row grid. CSV that is not
// valid UTF-8 is assumed to be Windows-1252, which covers exports from
// older spreadsheet tools.
func parseRows(filename string, data []byte) ([][]string, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.Validation("file", "cannot read xlsx file: %v", err)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, errs.Validation("file", "cannot read xlsx sheet: %v", err)
		}
		return rows, nil
	case strings.HasSuffix(lower, ".csv"):
		data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
		if !utf8.Valid(data) {
			decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
			if err != nil {
				return nil, errs.Validation("file", "cannot decode file encoding")
			}
			data = decoded
		}
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil {
			return nil, errs.Validation("file", "cannot parse csv: %v", err)
		}
		return rows, nil
	default:
		return nil, errs.Validation("file", "unsupported file type; use .csv or .xlsx")
	}
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func requireColumns(header map[string]int, cols ...string) error {
	for _, c := range cols {
		if _, ok := header[c]; !ok {
			return errs.Validation("file", "missing required column %q", c)
		}
	}
	return nil
}

func cellReader(header map[string]int, row []string) func(string) string {
	return func(col string) string {
		i, ok := header[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
}

func parseYesNo(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "yes", "true", "1":
		return true, true
	case "no", "false", "0":
		return false, true
	}
	return false, false
}

func parseImportDate(raw string) (time.Time, error) {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func sameSchedule(a, b *entity.Schedule) bool {
	return a.Name == b.Name &&
		a.Description == b.Description &&
		a.Frequency == b.Frequency &&
		a.Method == b.Method &&
		a.Active == b.Active
}

// sameBatch compares at export precision: timestamps are matched on their
// rendered wall-clock form, since the file format carries neither zone nor
// sub-second digits.
func sameBatch(a, b *entity.Batch) bool {
	sameSchedule := (a.ScheduleID == nil && b.ScheduleID == nil) ||
		(a.ScheduleID != nil && b.ScheduleID != nil && *a.ScheduleID == *b.ScheduleID)
	sameEnd := (a.EndDate == nil && b.EndDate == nil) ||
		(a.EndDate != nil && b.EndDate != nil &&
			a.EndDate.Format(exportTimeLayout) == b.EndDate.Format(exportTimeLayout))
	return a.Name == b.Name &&
		a.Description == b.Description &&
		sameSchedule &&
		a.Status == b.Status &&
		a.StartDate.Format(exportTimeLayout) == b.StartDate.Format(exportTimeLayout) &&
		sameEnd &&
		a.Notes == b.Notes
}
