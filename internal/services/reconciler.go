package services

import (
	"context"
	"errors"
	"fmt"

	"expensereport/internal/core"
	"expensereport/internal/ports"
)

// ReconcileResult is the stored row plus whether it was newly created.
type ReconcileResult struct {
	Report  core.MonthlyReport
	Created bool
}

// Reconciler keeps exactly one summary row per user and month.
type Reconciler struct {
	store ports.ReportStore
}

func NewReconciler(store ports.ReportStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile upserts the totals for (userID, monthKey). Existing rows keep
// their ID; only the totals and the overbudget field are overwritten.
func (r *Reconciler) Reconcile(ctx context.Context, userID, monthKey string, totals core.Totals) (ReconcileResult, error) {
	if err := core.ValidateIdentity(userID); err != nil {
		return ReconcileResult{}, err
	}
	month, err := core.CanonicalMonthKey(monthKey)
	if err != nil {
		return ReconcileResult{}, err
	}

	report := core.MonthlyReport{
		UserID:               userID,
		Month:                month,
		TotalSpent:           totals.TotalSpent,
		TopCategory:          totals.TopCategory,
		OverbudgetCategories: core.OverbudgetPlaceholder,
	}

	stored, created, err := r.store.UpsertMonthlyReport(ctx, report)
	if errors.Is(err, core.ErrDuplicateKey) {
		// Lost an insert race: the row exists now, so overwrite it once.
		stored, err = r.store.UpdateMonthlyReport(ctx, report)
		created = false
	}
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("upsert monthly report %s/%s: %w", userID, month, err)
	}

	return ReconcileResult{Report: stored, Created: created}, nil
}

// Recent returns the newest reports for userID, most recent first.
func (r *Reconciler) Recent(ctx context.Context, userID string, limit int) ([]core.MonthlyReport, error) {
	if err := core.ValidateIdentity(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = core.DefaultRecentReports
	}
	reports, err := r.store.ListRecentReports(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent reports: %w", err)
	}
	return reports, nil
}
