package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"expensereport/internal/core"
)

var (
	hundred          = decimal.NewFromInt(100)
	nearingThreshold = decimal.NewFromInt(80)
)

// CategoryUsage fetches the owner's expenses for the month around ref and
// compares each category's spending with its limit. A zero ref means now.
// Results follow the order of limits.
func (a *Aggregator) CategoryUsage(ctx context.Context, owner string, ref time.Time, limits []core.CategoryLimit) ([]core.CategoryUsage, error) {
	if err := core.ValidateIdentity(owner); err != nil {
		return nil, err
	}
	for _, l := range limits {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %q", err, l.Category)
		}
	}
	if ref.IsZero() {
		ref = a.now()
	}

	window := core.MonthWindowOf(ref)
	expenses, err := a.lookup.FindExpensesByOwnerAndWindow(ctx, owner, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("find expenses for %s: %w", core.MonthKeyOf(ref), err)
	}
	return UsageOf(owner, window, expenses, limits), nil
}

// UsageOf computes spending per limited category. Categories without a limit
// are ignored. A zero limit counts as exceeded as soon as anything is spent.
func UsageOf(owner string, window core.MonthWindow, expenses []core.Expense, limits []core.CategoryLimit) []core.CategoryUsage {
	_, byCategory, _ := categorySums(owner, window, expenses)

	usage := make([]core.CategoryUsage, 0, len(limits))
	for _, l := range limits {
		spent, ok := byCategory[l.Category]
		if !ok {
			spent = decimal.Zero
		}
		pct := percentOf(spent, l.Limit)
		usage = append(usage, core.CategoryUsage{
			Category:   l.Category,
			Limit:      l.Limit,
			Spent:      spent,
			Percentage: pct,
			Status:     statusOf(pct),
		})
	}
	return usage
}

func percentOf(spent, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		if spent.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	pct := spent.Mul(hundred).Div(limit)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct.Round(2)
}

func statusOf(pct decimal.Decimal) core.UsageStatus {
	switch {
	case pct.GreaterThanOrEqual(hundred):
		return core.UsageExceeded
	case pct.GreaterThanOrEqual(nearingThreshold):
		return core.UsageNearing
	default:
		return core.UsageOK
	}
}
