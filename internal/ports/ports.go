package ports

import (
	"context"
	"time"

	"expensereport/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseLookup is the read side of the primary expense store.
	ExpenseLookup interface {
		// FindExpensesByOwnerAndWindow returns the owner's expenses with
		// start <= OccurredAt <= end, in the store's natural order.
		FindExpensesByOwnerAndWindow(ctx context.Context, owner string, start, end time.Time) ([]core.Expense, error)
	}

	// ReportStore persists monthly summary rows, unique per (UserID, Month).
	ReportStore interface {
		// UpsertMonthlyReport inserts the report or overwrites the totals of
		// the existing row in one indivisible operation. created is true when
		// a new row was inserted.
		UpsertMonthlyReport(ctx context.Context, r core.MonthlyReport) (stored core.MonthlyReport, created bool, err error)

		// UpdateMonthlyReport overwrites the totals of an existing row.
		UpdateMonthlyReport(ctx context.Context, r core.MonthlyReport) (core.MonthlyReport, error)

		// GetMonthlyReport returns core.ErrReportNotFound when absent.
		GetMonthlyReport(ctx context.Context, userID, month string) (core.MonthlyReport, error)

		// ListRecentReports returns at most limit rows, newest ID first.
		ListRecentReports(ctx context.Context, userID string, limit int) ([]core.MonthlyReport, error)
	}

	// ReportPublisher announces generated reports to other services.
	ReportPublisher interface {
		PublishReportGenerated(ctx context.Context, r core.MonthlyReport, created bool) error
	}
)
