package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"expensereport/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "reports.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func report(user, month, total, top string) core.MonthlyReport {
	return core.MonthlyReport{
		UserID:               user,
		Month:                month,
		TotalSpent:           decimal.RequireFromString(total),
		TopCategory:          top,
		OverbudgetCategories: core.OverbudgetPlaceholder,
	}
}

func TestUpsertCreatesThenUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, created, err := repo.UpsertMonthlyReport(ctx, report("alice", "2024-3", "150", "Food"))
	if err != nil {
		t.Fatal(err)
	}
	if !created || first.ID == 0 {
		t.Fatalf("expected a new row, got %+v created=%v", first, created)
	}

	second, created, err := repo.UpsertMonthlyReport(ctx, report("alice", "2024-3", "175.25", "Rent"))
	if err != nil {
		t.Fatal(err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected in-place update of row %d, got %+v created=%v", first.ID, second, created)
	}
	if !second.TotalSpent.Equal(decimal.RequireFromString("175.25")) || second.TopCategory != "Rent" {
		t.Fatalf("unexpected values: %+v", second)
	}

	reports, err := repo.ListRecentReports(ctx, "alice", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].OverbudgetCategories != core.OverbudgetPlaceholder {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestUpsertStoresAbsentTopCategoryAsNull(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, _, err := repo.UpsertMonthlyReport(ctx, report("carol", "2024-3", "0", "")); err != nil {
		t.Fatal(err)
	}

	var isNull bool
	err := repo.db.QueryRowContext(ctx,
		`SELECT topCategory IS NULL FROM monthly_reports WHERE userId = ?`, "carol").Scan(&isNull)
	if err != nil {
		t.Fatal(err)
	}
	if !isNull {
		t.Fatal("absent top category must be stored as NULL")
	}

	got, err := repo.GetMonthlyReport(ctx, "carol", "2024-3")
	if err != nil {
		t.Fatal(err)
	}
	if got.TopCategory != "" || !got.TotalSpent.IsZero() {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestListRecentReportsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, m := range []string{"2024-1", "2024-2", "2024-3", "2024-4"} {
		if _, _, err := repo.UpsertMonthlyReport(ctx, report("alice", m, "1", "A")); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := repo.UpsertMonthlyReport(ctx, report("bob", "2024-5", "1", "A")); err != nil {
		t.Fatal(err)
	}
	// Regenerating an old month keeps its position: order follows the id.
	if _, _, err := repo.UpsertMonthlyReport(ctx, report("alice", "2024-1", "9", "B")); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListRecentReports(ctx, "alice", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-4", "2024-3", "2024-2"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Month != want[i] || got[i].UserID != "alice" {
			t.Fatalf("position %d: %+v", i, got[i])
		}
	}
}

func TestGetAndUpdateMissing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetMonthlyReport(ctx, "alice", "2024-3"); !errors.Is(err, core.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if _, err := repo.UpdateMonthlyReport(ctx, report("alice", "2024-3", "1", "A")); !errors.Is(err, core.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestUniqueConstraintMapsToDuplicateKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, _, err := repo.UpsertMonthlyReport(ctx, report("alice", "2024-3", "1", "A")); err != nil {
		t.Fatal(err)
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO monthly_reports (userId, month, totalSpent) VALUES (?, ?, ?)`,
		"alice", "2024-3", 2)
	if err == nil {
		t.Fatal("schema must reject a second row for the same user and month")
	}
	if !errors.Is(mapError(err), core.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", mapError(err))
	}
}

func TestConcurrentUpsertsKeepOneRow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := repo.UpsertMonthlyReport(ctx, report("alice", "2024-3", decimal.NewFromInt(int64(i)).String(), "A"))
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	var count int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM monthly_reports`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := repo.UpsertMonthlyReport(ctx, report("alice", "2024-3", "150", "Food")); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen with migrations already applied: %v", err)
	}
	defer repo.Close()

	got, err := repo.GetMonthlyReport(ctx, "alice", "2024-3")
	if err != nil || !got.TotalSpent.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected row after reopen: %+v %v", got, err)
	}
}
