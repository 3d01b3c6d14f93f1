package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"expensereport/internal/core"
)

func report(user, month string, total int64, top string) core.MonthlyReport {
	return core.MonthlyReport{
		UserID:               user,
		Month:                month,
		TotalSpent:           decimal.NewFromInt(total),
		TopCategory:          top,
		OverbudgetCategories: core.OverbudgetPlaceholder,
	}
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewReportStore()

	first, created, err := s.UpsertMonthlyReport(ctx, report("alice", "2024-3", 150, "Food"))
	if err != nil || !created || first.ID != 1 {
		t.Fatalf("unexpected first upsert: %+v created=%v err=%v", first, created, err)
	}

	second, created, err := s.UpsertMonthlyReport(ctx, report("alice", "2024-3", 175, "Rent"))
	if err != nil || created {
		t.Fatalf("second upsert should update: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.TopCategory != "Rent" || !second.TotalSpent.Equal(decimal.NewFromInt(175)) {
		t.Fatalf("unexpected second row: %+v", second)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one row, got %d", s.Len())
	}
}

func TestUpdateMissing(t *testing.T) {
	_, err := NewReportStore().UpdateMonthlyReport(context.Background(), report("bob", "2024-1", 1, "X"))
	if !errors.Is(err, core.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestListRecentReports(t *testing.T) {
	ctx := context.Background()
	s := NewReportStore()
	for _, m := range []string{"2024-1", "2024-2", "2024-3", "2024-4"} {
		if _, _, err := s.UpsertMonthlyReport(ctx, report("alice", m, 1, "X")); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := s.UpsertMonthlyReport(ctx, report("bob", "2024-4", 1, "X")); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListRecentReports(ctx, "alice", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-4", "2024-3", "2024-2"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i, r := range got {
		if r.Month != want[i] || r.UserID != "alice" {
			t.Fatalf("row %d: %+v", i, r)
		}
	}

	if _, err := s.GetMonthlyReport(ctx, "bob", "2024-4"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := s.GetMonthlyReport(ctx, "bob", "2024-1"); !errors.Is(err, core.ErrReportNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
