package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"expensereport/internal/cache"
	"expensereport/internal/core"
	applog "expensereport/internal/log"
	"expensereport/internal/ports"
)

// ReportServiceConfig holds tunables for the report service
type ReportServiceConfig struct {
	// StoreTimeout bounds every call into the expense source and the report store (default: 5s)
	StoreTimeout time.Duration

	// RecentLimit is the number of reports returned when callers pass limit <= 0 (default: 3)
	RecentLimit int
}

// DefaultReportServiceConfig returns sensible defaults
func DefaultReportServiceConfig() ReportServiceConfig {
	return ReportServiceConfig{
		StoreTimeout: 5 * time.Second,
		RecentLimit:  core.DefaultRecentReports,
	}
}

// RecentReportsCache caches each user's default recent-reports list.
type RecentReportsCache = cache.LRU[string, []core.MonthlyReport]

// ReportService runs report generation and read-back for callers that have
// already resolved an authenticated user identity.
type ReportService struct {
	aggregator *Aggregator
	reconciler *Reconciler
	publisher  ports.ReportPublisher
	recent     *RecentReportsCache
	config     ReportServiceConfig
	flights    singleflight.Group
	now        func() time.Time

	// generations counts successful generations per user. A list read only
	// fills the cache if no generation for that user finished meanwhile.
	recentMu    sync.Mutex
	generations map[string]uint64
}

// NewReportService wires the service. publisher and recent may be nil.
func NewReportService(
	lookup ports.ExpenseLookup,
	store ports.ReportStore,
	publisher ports.ReportPublisher,
	recent *RecentReportsCache,
	config ReportServiceConfig,
) *ReportService {
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = DefaultReportServiceConfig().StoreTimeout
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = core.DefaultRecentReports
	}
	return &ReportService{
		aggregator:  NewAggregator(lookup),
		reconciler:  NewReconciler(store),
		publisher:   publisher,
		recent:      recent,
		config:      config,
		now:         time.Now,
		generations: make(map[string]uint64),
	}
}

// GenerateReport aggregates the current month for userID and stores it.
func (s *ReportService) GenerateReport(ctx context.Context, userID string) (core.MonthlyReport, error) {
	return s.GenerateReportAt(ctx, userID, s.now())
}

// GenerateReportAt is GenerateReport for the month containing ref.
// Concurrent calls for the same user and month share one execution.
func (s *ReportService) GenerateReportAt(ctx context.Context, userID string, ref time.Time) (core.MonthlyReport, error) {
	if err := core.ValidateIdentity(userID); err != nil {
		return core.MonthlyReport{}, err
	}
	if ref.IsZero() {
		ref = s.now()
	}

	key := userID + "|" + core.MonthKeyOf(ref)
	v, err, shared := s.flights.Do(key, func() (any, error) {
		return s.generate(ctx, userID, ref)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Monthly report generation failed", applog.NewFields().
			WithComponent(applog.ComponentReports).
			WithOperation(applog.OpGenerate).
			WithReport(userID, core.MonthKeyOf(ref), 0).
			WithError(err).
			ToSlice()...)
		return core.MonthlyReport{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Joined in-flight report generation", "key", key)
	}
	return v.(core.MonthlyReport), nil
}

func (s *ReportService) generate(ctx context.Context, userID string, ref time.Time) (core.MonthlyReport, error) {
	started := time.Now()

	aggCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	agg, err := s.aggregator.Aggregate(aggCtx, userID, ref)
	cancel()
	if err != nil {
		return core.MonthlyReport{}, classifyStoreError(fmt.Errorf("aggregate: %w", err))
	}

	recCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	result, err := s.reconciler.Reconcile(recCtx, userID, agg.MonthKey, agg.Totals)
	cancel()
	if err != nil {
		return core.MonthlyReport{}, classifyStoreError(fmt.Errorf("reconcile: %w", err))
	}

	s.invalidateRecent(userID)

	slog.InfoContext(ctx, "Monthly report generated", applog.NewFields().
		WithComponent(applog.ComponentReports).
		WithOperation(applog.OpGenerate).
		WithReport(userID, result.Report.Month, result.Report.ID).
		WithTotals(result.Report.TotalSpent.String(), result.Report.TopCategory).
		WithOutcome(result.Created, time.Since(started)).
		ToSlice()...)

	s.publishGenerated(ctx, result)

	return result.Report, nil
}

func (s *ReportService) publishGenerated(ctx context.Context, result ReconcileResult) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Report publisher not configured, skipping event")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.StoreTimeout)
	defer cancel()

	// The report is already stored; a lost event must not fail the request.
	if err := s.publisher.PublishReportGenerated(pubCtx, result.Report, result.Created); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report generated event", applog.NewFields().
			WithComponent(applog.ComponentReports).
			WithReport(result.Report.UserID, result.Report.Month, result.Report.ID).
			WithError(err).
			ToSlice()...)
	}
}

// CategoryUsage reports how much of each category limit userID spent in the
// month containing ref. It reads expenses only and stores nothing.
func (s *ReportService) CategoryUsage(ctx context.Context, userID string, ref time.Time, limits []core.CategoryLimit) ([]core.CategoryUsage, error) {
	if ref.IsZero() {
		ref = s.now()
	}
	usageCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	usage, err := s.aggregator.CategoryUsage(usageCtx, userID, ref, limits)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return usage, nil
}

// ListRecentReports returns up to limit reports for userID, newest first.
// limit <= 0 selects the configured default.
func (s *ReportService) ListRecentReports(ctx context.Context, userID string, limit int) ([]core.MonthlyReport, error) {
	if err := core.ValidateIdentity(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.config.RecentLimit
	}

	cacheable := s.recent != nil && limit == s.config.RecentLimit
	var generation uint64
	if cacheable {
		if reports, ok := s.recent.Get(userID); ok {
			return append([]core.MonthlyReport(nil), reports...), nil
		}
		generation = s.generation(userID)
	}

	listCtx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	reports, err := s.reconciler.Recent(listCtx, userID, limit)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	if cacheable {
		s.fillRecent(userID, generation, reports)
	}
	return reports, nil
}

func (s *ReportService) generation(userID string) uint64 {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	return s.generations[userID]
}

func (s *ReportService) invalidateRecent(userID string) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	s.generations[userID]++
	if s.recent != nil {
		s.recent.Delete(userID)
	}
}

// fillRecent caches reports unless a generation for userID completed after
// the list was read, in which case reports may already be stale.
func (s *ReportService) fillRecent(userID string, seen uint64, reports []core.MonthlyReport) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	if s.generations[userID] != seen {
		return
	}
	s.recent.Set(userID, append([]core.MonthlyReport(nil), reports...))
}

// classifyStoreError marks timeouts as store unavailability so callers can
// tell a failed generation apart from an empty month.
func classifyStoreError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, core.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return err
}
