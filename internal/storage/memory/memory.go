package memory

import (
	"context"
	"sort"
	"sync"

	"expensereport/internal/core"
)

type reportKey struct {
	userID string
	month  string
}

// ReportStore keeps monthly reports in process memory. IDs increase
// monotonically, mirroring an autoincrement primary key.
type ReportStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[reportKey]core.MonthlyReport
}

func NewReportStore() *ReportStore {
	return &ReportStore{rows: make(map[reportKey]core.MonthlyReport)}
}

// UpsertMonthlyReport implements ports.ReportStore
func (s *ReportStore) UpsertMonthlyReport(_ context.Context, r core.MonthlyReport) (core.MonthlyReport, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reportKey{userID: r.UserID, month: r.Month}
	if existing, ok := s.rows[key]; ok {
		updated := overwrite(existing, r)
		s.rows[key] = updated
		return updated, false, nil
	}

	s.nextID++
	r.ID = s.nextID
	s.rows[key] = r
	return r, true, nil
}

// UpdateMonthlyReport implements ports.ReportStore
func (s *ReportStore) UpdateMonthlyReport(_ context.Context, r core.MonthlyReport) (core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reportKey{userID: r.UserID, month: r.Month}
	existing, ok := s.rows[key]
	if !ok {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	updated := overwrite(existing, r)
	s.rows[key] = updated
	return updated, nil
}

// GetMonthlyReport implements ports.ReportStore
func (s *ReportStore) GetMonthlyReport(_ context.Context, userID, month string) (core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[reportKey{userID: userID, month: month}]
	if !ok {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	return r, nil
}

// ListRecentReports implements ports.ReportStore
func (s *ReportStore) ListRecentReports(_ context.Context, userID string, limit int) ([]core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.MonthlyReport
	for k, r := range s.rows {
		if k.userID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored rows.
func (s *ReportStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func overwrite(existing, r core.MonthlyReport) core.MonthlyReport {
	existing.TotalSpent = r.TotalSpent
	existing.TopCategory = r.TopCategory
	existing.OverbudgetCategories = r.OverbudgetCategories
	return existing
}
