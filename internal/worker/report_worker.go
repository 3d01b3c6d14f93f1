package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensereport/internal/amqp"
	"expensereport/internal/core"
	applog "expensereport/internal/log"
)

// ReportGenerator is the slice of the report service the worker drives.
type ReportGenerator interface {
	GenerateReportAt(ctx context.Context, userID string, ref time.Time) (core.MonthlyReport, error)
}

// ReportWorker turns queued report requests into stored monthly reports.
type ReportWorker struct {
	reports ReportGenerator
	now     func() time.Time
}

func NewReportWorker(reports ReportGenerator) *ReportWorker {
	return &ReportWorker{reports: reports, now: time.Now}
}

// HandleReportRequest processes a single report request message from AMQP.
// A request without a reference time targets the month current at
// processing time, not at publish time.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	if err := core.ValidateIdentity(msg.UserID); err != nil {
		return fmt.Errorf("report request: %w", err)
	}

	ref := msg.ReferenceTime
	if ref.IsZero() {
		ref = w.now()
	}

	slog.InfoContext(ctx, "Processing report request",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldUserID, msg.UserID,
		applog.FieldMonth, core.MonthKeyOf(ref),
		"queued_for", w.now().Sub(msg.Timestamp).Round(time.Millisecond))

	report, err := w.reports.GenerateReportAt(ctx, msg.UserID, ref)
	if err != nil {
		return fmt.Errorf("generate report for %s: %w", core.MonthKeyOf(ref), err)
	}

	slog.InfoContext(ctx, "Report request completed", applog.NewFields().
		WithComponent(applog.ComponentWorker).
		WithReport(report.UserID, report.Month, report.ID).
		ToSlice()...)
	return nil
}
