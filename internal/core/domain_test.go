package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Owner:      "alice@example.com",
		Amount:     decimal.NewFromInt(100),
		Category:   "Food",
		OccurredAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be valid, got %v", err)
	}

	bads := []struct {
		name string
		mod  func(e *Expense)
		want error
	}{
		{"blank owner", func(e *Expense) { e.Owner = "  " }, ErrInvalidIdentity},
		{"negative amount", func(e *Expense) { e.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"empty category", func(e *Expense) { e.Category = "" }, ErrEmptyCategory},
		{"zero date", func(e *Expense) { e.OccurredAt = time.Time{} }, ErrZeroDate},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			tc.mod(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateIdentity(t *testing.T) {
	if err := ValidateIdentity("bob"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, id := range []string{"", " ", "\t"} {
		if err := ValidateIdentity(id); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("%q: expected ErrInvalidIdentity, got %v", id, err)
		}
	}
}

func TestMonthlyReportTotals(t *testing.T) {
	r := MonthlyReport{TotalSpent: decimal.NewFromInt(150), TopCategory: "Food"}
	got := r.Totals()
	if !got.TotalSpent.Equal(decimal.NewFromInt(150)) || got.TopCategory != "Food" || !got.HasTopCategory() {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if (Totals{}).HasTopCategory() {
		t.Fatal("empty totals should have no top category")
	}
}

func TestCategoryLimitValidate(t *testing.T) {
	cases := map[string]struct {
		limit CategoryLimit
		ok    bool
	}{
		"positive":       {CategoryLimit{Category: "Food", Limit: decimal.NewFromInt(100)}, true},
		"zero":           {CategoryLimit{Category: "Food", Limit: decimal.Zero}, true},
		"negative":       {CategoryLimit{Category: "Food", Limit: decimal.NewFromInt(-1)}, false},
		"blank category": {CategoryLimit{Category: "  ", Limit: decimal.NewFromInt(1)}, false},
	}
	for name, tc := range cases {
		err := tc.limit.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("%s: expected ErrInvalidLimit, got %v", name, err)
		}
	}
}
