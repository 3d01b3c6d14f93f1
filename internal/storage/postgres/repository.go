package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"expensereport/internal/core"
	applog "expensereport/internal/log"
)

const uniqueViolation = "23505"

// Repository stores monthly reports in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository migrates the schema and opens a connection pool.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", mapError(err))
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

const upsertMonthlyReport = `
INSERT INTO monthly_reports (user_id, month, total_spent, top_category, overbudget_categories)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, month) DO UPDATE
SET total_spent = EXCLUDED.total_spent,
    top_category = EXCLUDED.top_category,
    overbudget_categories = EXCLUDED.overbudget_categories
RETURNING id, user_id, month, total_spent, top_category, overbudget_categories, (xmax = 0) AS created`

// UpsertMonthlyReport implements ports.ReportStore
func (r *Repository) UpsertMonthlyReport(ctx context.Context, report core.MonthlyReport) (core.MonthlyReport, bool, error) {
	row := r.pool.QueryRow(ctx, upsertMonthlyReport,
		report.UserID, report.Month, report.TotalSpent.String(), nullable(report.TopCategory), report.OverbudgetCategories)
	stored, created, err := scanReport(row, true)
	if err != nil {
		return core.MonthlyReport{}, false, fmt.Errorf("upsert monthly report: %w", mapError(err))
	}

	slog.DebugContext(ctx, "Monthly report saved to PostgreSQL",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldReportID, stored.ID,
		applog.FieldUserID, stored.UserID,
		applog.FieldMonth, stored.Month,
		applog.FieldCreated, created)
	return stored, created, nil
}

const updateMonthlyReport = `
UPDATE monthly_reports
SET total_spent = $3, top_category = $4, overbudget_categories = $5
WHERE user_id = $1 AND month = $2
RETURNING id, user_id, month, total_spent, top_category, overbudget_categories`

// UpdateMonthlyReport implements ports.ReportStore
func (r *Repository) UpdateMonthlyReport(ctx context.Context, report core.MonthlyReport) (core.MonthlyReport, error) {
	row := r.pool.QueryRow(ctx, updateMonthlyReport,
		report.UserID, report.Month, report.TotalSpent.String(), nullable(report.TopCategory), report.OverbudgetCategories)
	stored, _, err := scanReport(row, false)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("update monthly report: %w", mapError(err))
	}
	return stored, nil
}

const getMonthlyReport = `
SELECT id, user_id, month, total_spent, top_category, overbudget_categories
FROM monthly_reports
WHERE user_id = $1 AND month = $2`

// GetMonthlyReport implements ports.ReportStore
func (r *Repository) GetMonthlyReport(ctx context.Context, userID, month string) (core.MonthlyReport, error) {
	stored, _, err := scanReport(r.pool.QueryRow(ctx, getMonthlyReport, userID, month), false)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("get monthly report: %w", mapError(err))
	}
	return stored, nil
}

const listRecentMonthlyReports = `
SELECT id, user_id, month, total_spent, top_category, overbudget_categories
FROM monthly_reports
WHERE user_id = $1
ORDER BY id DESC
LIMIT $2`

// ListRecentReports implements ports.ReportStore
func (r *Repository) ListRecentReports(ctx context.Context, userID string, limit int) ([]core.MonthlyReport, error) {
	rows, err := r.pool.Query(ctx, listRecentMonthlyReports, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent monthly reports: %w", mapError(err))
	}
	defer rows.Close()

	var reports []core.MonthlyReport
	for rows.Next() {
		stored, _, err := scanReport(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan monthly report: %w", err)
		}
		reports = append(reports, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recent monthly reports: %w", mapError(err))
	}
	return reports, nil
}

func scanReport(row pgx.Row, withCreated bool) (core.MonthlyReport, bool, error) {
	var (
		r          core.MonthlyReport
		total      string
		top        *string
		overbudget *string
		created    bool
	)
	dest := []any{&r.ID, &r.UserID, &r.Month, &total, &top, &overbudget}
	if withCreated {
		dest = append(dest, &created)
	}
	if err := row.Scan(dest...); err != nil {
		return core.MonthlyReport{}, false, err
	}

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return core.MonthlyReport{}, false, fmt.Errorf("parse total_spent %q: %w", total, err)
	}
	r.TotalSpent = amount
	if top != nil {
		r.TopCategory = *top
	}
	if overbudget != nil {
		r.OverbudgetCategories = *overbudget
	}
	return r, created, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapError classifies driver errors into core errors.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %w", core.ErrDuplicateKey, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || errors.As(err, &netErr) || isConnectError(err) {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return err
}

func isConnectError(err error) bool {
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
