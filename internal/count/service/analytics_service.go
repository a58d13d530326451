package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AnalyticsOptions tunes report computation.
type AnalyticsOptions struct {
	// IncludeUncounted puts items without a result into the overall
	// accuracy denominator. The default (false) measures accuracy over
	// submitted results only. Per-day and per-user buckets always use the
	// narrow denominator: an uncounted item has no counted_at and no
	// counter, so it belongs to no bucket.
	IncludeUncounted bool
	// CacheTTL bounds how stale a cached report may be. Zero disables
	// caching.
	CacheTTL time.Duration
}

// AnalyticsService derives trend and accuracy metrics from count history.
// Computation is read-only and snapshot-tolerant: it never blocks writers,
// and a report served from cache may lag live data by up to CacheTTL.
type AnalyticsService struct {
	itemRepo  *repository.ItemRepository
	batchRepo *repository.BatchRepository
	rdb       *redis.Client
	opts      AnalyticsOptions
	logger    *zap.Logger
}

func NewAnalyticsService(itemRepo *repository.ItemRepository, batchRepo *repository.BatchRepository, rdb *redis.Client, opts AnalyticsOptions, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		itemRepo:  itemRepo,
		batchRepo: batchRepo,
		rdb:       rdb,
		opts:      opts,
		logger:    logger,
	}
}

// AccuracyPoint is the accuracy rate for one day bucket.
type AccuracyPoint struct {
	Day          string  `json:"day"`
	Total        int64   `json:"total"`
	Nominal      int64   `json:"nominal"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

// UserPerformance is one counter's accuracy over the range.
type UserPerformance struct {
	UserID       string  `json:"user_id"`
	Total        int64   `json:"total"`
	Nominal      int64   `json:"nominal"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

// Coverage is counted/total per item type over the range.
type Coverage struct {
	ItemType    string  `json:"item_type"`
	Total       int64   `json:"total"`
	Counted     int64   `json:"counted"`
	CoveragePct float64 `json:"coverage_pct"`
}

// Report is the full analytics rollup for a date range.
type Report struct {
	From             time.Time                  `json:"from"`
	To               time.Time                  `json:"to"`
	AccuracyTrends   []AccuracyPoint            `json:"accuracy_trends"`
	DiscrepancyTypes map[Discrepancy]int64      `json:"discrepancy_types"`
	UserPerformance  []UserPerformance          `json:"user_performance"`
	BatchTrends      []repository.BatchDayCount `json:"batch_trends"`
	Coverage         []Coverage                 `json:"coverage"`
	OverallAccuracy  float64                    `json:"overall_accuracy"`
}

// Compute derives the report for [from, to].
func (s *AnalyticsService) Compute(ctx context.Context, from, to time.Time) (*Report, error) {
	if !to.After(from) {
		return nil, errs.Validation("date_range", "end must be after start")
	}

	cacheKey := fmt.Sprintf("count:analytics:%d:%d:%t",
		from.Unix(), to.Unix(), s.opts.IncludeUncounted)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	counted, err := s.itemRepo.ListCountedInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load counted items: %w", err)
	}

	report := &Report{
		From:             from,
		To:               to,
		DiscrepancyTypes: map[Discrepancy]int64{},
	}

	type bucket struct {
		total   int64
		nominal int64
	}
	days := map[string]*bucket{}
	users := map[string]*bucket{}
	var overallTotal, overallNominal int64

	for i := range counted {
		item := counted[i].Item
		result := counted[i].Result

		ds := Classify(&item, &result)
		nominal := IsNominal(ds)
		for _, d := range ds {
			report.DiscrepancyTypes[d]++
		}

		day := result.CountedAt.Format("2006-01-02")
		if days[day] == nil {
			days[day] = &bucket{}
		}
		days[day].total++

		if users[result.CountedBy] == nil {
			users[result.CountedBy] = &bucket{}
		}
		users[result.CountedBy].total++

		overallTotal++
		if nominal {
			days[day].nominal++
			users[result.CountedBy].nominal++
			overallNominal++
		}
	}

	if s.opts.IncludeUncounted {
		coverage, err := s.itemRepo.CountByTypeInRange(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("load coverage: %w", err)
		}
		for _, c := range coverage {
			overallTotal += c.Total - c.Counted
		}
	}

	for day, b := range days {
		report.AccuracyTrends = append(report.AccuracyTrends, AccuracyPoint{
			Day:          day,
			Total:        b.total,
			Nominal:      b.nominal,
			AccuracyRate: rate(b.nominal, b.total),
		})
	}
	sort.Slice(report.AccuracyTrends, func(i, j int) bool {
		return report.AccuracyTrends[i].Day < report.AccuracyTrends[j].Day
	})

	for user, b := range users {
		report.UserPerformance = append(report.UserPerformance, UserPerformance{
			UserID:       user,
			Total:        b.total,
			Nominal:      b.nominal,
			AccuracyRate: rate(b.nominal, b.total),
		})
	}
	sort.Slice(report.UserPerformance, func(i, j int) bool {
		return report.UserPerformance[i].UserID < report.UserPerformance[j].UserID
	})

	report.OverallAccuracy = rate(overallNominal, overallTotal)

	trends, err := s.batchRepo.CreatedCompletedPerDay(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load batch trends: %w", err)
	}
	report.BatchTrends = trends

	typeCoverage, err := s.itemRepo.CountByTypeInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load coverage: %w", err)
	}
	for _, c := range typeCoverage {
		report.Coverage = append(report.Coverage, Coverage{
			ItemType:    c.ItemType,
			Total:       c.Total,
			Counted:     c.Counted,
			CoveragePct: rate(c.Counted, c.Total),
		})
	}

	s.toCache(ctx, cacheKey, report)
	return report, nil
}

func (s *AnalyticsService) fromCache(ctx context.Context, key string) *Report {
	if s.rdb == nil || s.opts.CacheTTL <= 0 {
		return nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil
	}
	return &report
}

func (s *AnalyticsService) toCache(ctx context.Context, key string, report *Report) {
	if s.rdb == nil || s.opts.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.opts.CacheTTL).Err(); err != nil {
		s.logger.Warn("analytics cache write failed", zap.Error(err))
	}
}

// rate is nominal/total as a percentage with the reporting granularity used
// across the system (one decimal place).
func rate(nominal, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(nominal) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
