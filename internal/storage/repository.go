package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensereport/internal/core"
	applog "expensereport/internal/log"
)

// SQLiteRepository is the durable monthly report store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so the schema is in place
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// IMMEDIATE transactions take the write lock up front, so the upsert
	// never has to upgrade a read lock while another writer holds it.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// UpsertMonthlyReport implements ports.ReportStore
func (r *SQLiteRepository) UpsertMonthlyReport(ctx context.Context, report core.MonthlyReport) (core.MonthlyReport, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.MonthlyReport{}, false, fmt.Errorf("begin upsert: %w", mapError(err))
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	params := toParams(report)

	created := true
	row, err := q.InsertMonthlyReportIfAbsent(ctx, params)
	if errors.Is(err, sql.ErrNoRows) {
		created = false
		row, err = q.UpdateMonthlyReport(ctx, params)
	}
	if err != nil {
		return core.MonthlyReport{}, false, fmt.Errorf("upsert monthly report: %w", mapError(err))
	}

	if err := tx.Commit(); err != nil {
		return core.MonthlyReport{}, false, fmt.Errorf("commit upsert: %w", mapError(err))
	}

	slog.DebugContext(ctx, "Monthly report saved to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldReportID, row.ID,
		applog.FieldUserID, row.UserID,
		applog.FieldMonth, row.Month,
		applog.FieldCreated, created)

	return fromRow(row), created, nil
}

// UpdateMonthlyReport implements ports.ReportStore
func (r *SQLiteRepository) UpdateMonthlyReport(ctx context.Context, report core.MonthlyReport) (core.MonthlyReport, error) {
	row, err := r.queries.UpdateMonthlyReport(ctx, toParams(report))
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("update monthly report: %w", mapError(err))
	}
	return fromRow(row), nil
}

// GetMonthlyReport implements ports.ReportStore
func (r *SQLiteRepository) GetMonthlyReport(ctx context.Context, userID, month string) (core.MonthlyReport, error) {
	row, err := r.queries.GetMonthlyReport(ctx, userID, month)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyReport{}, core.ErrReportNotFound
	}
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("get monthly report: %w", mapError(err))
	}
	return fromRow(row), nil
}

// ListRecentReports implements ports.ReportStore
func (r *SQLiteRepository) ListRecentReports(ctx context.Context, userID string, limit int) ([]core.MonthlyReport, error) {
	rows, err := r.queries.ListRecentMonthlyReports(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent monthly reports: %w", mapError(err))
	}

	reports := make([]core.MonthlyReport, len(rows))
	for i, row := range rows {
		reports[i] = fromRow(row)
	}
	return reports, nil
}

func toParams(r core.MonthlyReport) UpsertMonthlyReportParams {
	return UpsertMonthlyReportParams{
		UserID:               r.UserID,
		Month:                r.Month,
		TotalSpent:           r.TotalSpent,
		TopCategory:          sql.NullString{String: r.TopCategory, Valid: r.TopCategory != ""},
		OverbudgetCategories: sql.NullString{String: r.OverbudgetCategories, Valid: true},
	}
}

func fromRow(row MonthlyReport) core.MonthlyReport {
	return core.MonthlyReport{
		ID:                   row.ID,
		UserID:               row.UserID,
		Month:                row.Month,
		TotalSpent:           row.TotalSpent,
		TopCategory:          row.TopCategory.String,
		OverbudgetCategories: row.OverbudgetCategories.String,
	}
}

// mapError translates SQLite result codes into core errors.
func mapError(err error) error {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch code := sqliteErr.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", core.ErrDuplicateKey, err)
	case code&0xff == sqlite3.SQLITE_BUSY || code&0xff == sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return err
}
