package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"expensereport/internal/core"
)

func limit(category, amount string) core.CategoryLimit {
	return core.CategoryLimit{Category: category, Limit: decimal.RequireFromString(amount)}
}

func TestUsageOf(t *testing.T) {
	window := core.MonthWindowOf(march2024)
	expenses := []core.Expense{
		expense("alice", "50", "Food", 2024, 3, 2),
		expense("alice", "35", "Food", 2024, 3, 9),
		expense("alice", "120", "Rent", 2024, 3, 1),
		expense("alice", "10", "Fun", 2024, 3, 3),
		expense("alice", "500", "Fun", 2024, 2, 27),
		expense("bob", "999", "Fun", 2024, 3, 3),
	}

	tests := []struct {
		name    string
		limit   core.CategoryLimit
		spent   string
		percent string
		status  core.UsageStatus
	}{
		{"nearing", limit("Food", "100"), "85", "85", core.UsageNearing},
		{"capped at 100", limit("Rent", "100"), "120", "100", core.UsageExceeded},
		{"under", limit("Fun", "100"), "10", "10", core.UsageOK},
		{"exactly at limit", limit("Food", "85"), "85", "100", core.UsageExceeded},
		{"exactly 80 percent", limit("Fun", "12.5"), "10", "80", core.UsageNearing},
		{"nothing spent", limit("Travel", "300"), "0", "0", core.UsageOK},
		{"zero limit with spending", limit("Fun", "0"), "10", "100", core.UsageExceeded},
		{"zero limit without spending", limit("Travel", "0"), "0", "0", core.UsageOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UsageOf("alice", window, expenses, []core.CategoryLimit{tt.limit})
			if len(got) != 1 {
				t.Fatalf("got %d rows, want 1", len(got))
			}
			u := got[0]
			if u.Category != tt.limit.Category || !u.Limit.Equal(tt.limit.Limit) {
				t.Errorf("limit echoed as %s=%s", u.Category, u.Limit)
			}
			if !u.Spent.Equal(decimal.RequireFromString(tt.spent)) {
				t.Errorf("spent = %s, want %s", u.Spent, tt.spent)
			}
			if !u.Percentage.Equal(decimal.RequireFromString(tt.percent)) {
				t.Errorf("percentage = %s, want %s", u.Percentage, tt.percent)
			}
			if u.Status != tt.status {
				t.Errorf("status = %s, want %s", u.Status, tt.status)
			}
		})
	}
}

func TestUsageOfKeepsLimitOrder(t *testing.T) {
	window := core.MonthWindowOf(march2024)
	expenses := []core.Expense{
		expense("alice", "10", "Food", 2024, 3, 2),
		expense("alice", "30", "Rent", 2024, 3, 2),
	}
	got := UsageOf("alice", window, expenses, []core.CategoryLimit{limit("Rent", "90"), limit("Food", "30")})
	if len(got) != 2 || got[0].Category != "Rent" || got[1].Category != "Food" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[0].Percentage.Equal(decimal.RequireFromString("33.33")) {
		t.Errorf("percentage = %s, want 33.33", got[0].Percentage)
	}
}

func TestAggregatorCategoryUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the month window", func(t *testing.T) {
		lookup := &fakeLookup{expenses: []core.Expense{
			expense("alice", "90", "Food", 2024, 3, 5),
			expense("alice", "90", "Food", 2024, 4, 1),
		}}
		got, err := NewAggregator(lookup).CategoryUsage(ctx, "alice", march2024, []core.CategoryLimit{limit("Food", "100")})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Status != core.UsageNearing {
			t.Fatalf("unexpected usage: %+v", got)
		}
		w := core.MonthWindowOf(march2024)
		if lookup.owner != "alice" || !lookup.start.Equal(w.Start) || !lookup.end.Equal(w.End) {
			t.Fatalf("lookup called with %s %v %v", lookup.owner, lookup.start, lookup.end)
		}
	})

	t.Run("rejects invalid input before lookup", func(t *testing.T) {
		lookup := &fakeLookup{}
		agg := NewAggregator(lookup)
		if _, err := agg.CategoryUsage(ctx, " ", march2024, nil); !errors.Is(err, core.ErrInvalidIdentity) {
			t.Fatalf("blank owner: got %v", err)
		}
		if _, err := agg.CategoryUsage(ctx, "alice", march2024, []core.CategoryLimit{limit("Food", "-1")}); !errors.Is(err, core.ErrInvalidLimit) {
			t.Fatalf("negative limit: got %v", err)
		}
		if lookup.calls != 0 {
			t.Fatalf("lookup called %d times", lookup.calls)
		}
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		lookup := &fakeLookup{err: core.ErrStoreUnavailable}
		if _, err := NewAggregator(lookup).CategoryUsage(ctx, "alice", march2024, nil); !errors.Is(err, core.ErrStoreUnavailable) {
			t.Fatalf("got %v", err)
		}
	})
}
