package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"expensereport/internal/core"
	"expensereport/internal/ports"
)

// Aggregator reduces one user's expenses for a calendar month into totals.
// It has no side effects and does not log.
type Aggregator struct {
	lookup ports.ExpenseLookup
	now    func() time.Time
}

func NewAggregator(lookup ports.ExpenseLookup) *Aggregator {
	return &Aggregator{lookup: lookup, now: time.Now}
}

// Aggregate computes the month window around ref, fetches the owner's
// expenses inside it and sums them. A zero ref means now.
func (a *Aggregator) Aggregate(ctx context.Context, owner string, ref time.Time) (core.Aggregate, error) {
	if err := core.ValidateIdentity(owner); err != nil {
		return core.Aggregate{}, err
	}
	if ref.IsZero() {
		ref = a.now()
	}

	window := core.MonthWindowOf(ref)
	expenses, err := a.lookup.FindExpensesByOwnerAndWindow(ctx, owner, window.Start, window.End)
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("find expenses for %s: %w", core.MonthKeyOf(ref), err)
	}

	return core.Aggregate{
		MonthKey: core.MonthKeyOf(ref),
		Totals:   Reduce(owner, window, expenses),
	}, nil
}

// Reduce sums the expenses that belong to owner and fall inside window.
// The top category is the one with the largest sum; on a tie the category
// seen first in input order wins.
func Reduce(owner string, window core.MonthWindow, expenses []core.Expense) core.Totals {
	total, byCategory, order := categorySums(owner, window, expenses)

	var top string
	best := decimal.Zero
	for i, category := range order {
		if i == 0 || byCategory[category].GreaterThan(best) {
			top, best = category, byCategory[category]
		}
	}

	return core.Totals{TotalSpent: total, TopCategory: top}
}

// categorySums returns the grand total and the per-category sums of owner's
// expenses inside window. order lists categories as first seen.
func categorySums(owner string, window core.MonthWindow, expenses []core.Expense) (total decimal.Decimal, byCategory map[string]decimal.Decimal, order []string) {
	total = decimal.Zero
	byCategory = make(map[string]decimal.Decimal)

	for _, e := range expenses {
		if e.Owner != owner || !window.Contains(e.OccurredAt) {
			continue
		}
		total = total.Add(e.Amount)
		sum, seen := byCategory[e.Category]
		if !seen {
			order = append(order, e.Category)
		}
		byCategory[e.Category] = sum.Add(e.Amount)
	}
	return total, byCategory, order
}
