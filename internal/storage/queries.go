package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL for the monthly_reports table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// MonthlyReport mirrors a monthly_reports row.
type MonthlyReport struct {
	ID                   int64
	UserID               string
	Month                string
	TotalSpent           decimal.Decimal
	TopCategory          sql.NullString
	OverbudgetCategories sql.NullString
}

const reportColumns = `id, userId, month, totalSpent, topCategory, overbudgetCategories`

func scanMonthlyReport(row interface{ Scan(...any) error }) (MonthlyReport, error) {
	var i MonthlyReport
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Month,
		&i.TotalSpent,
		&i.TopCategory,
		&i.OverbudgetCategories,
	)
	return i, err
}

type UpsertMonthlyReportParams struct {
	UserID               string
	Month                string
	TotalSpent           decimal.Decimal
	TopCategory          sql.NullString
	OverbudgetCategories sql.NullString
}

const insertMonthlyReportIfAbsent = `
INSERT INTO monthly_reports (userId, month, totalSpent, topCategory, overbudgetCategories)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (userId, month) DO NOTHING
RETURNING ` + reportColumns

// InsertMonthlyReportIfAbsent returns sql.ErrNoRows when the row already exists.
func (q *Queries) InsertMonthlyReportIfAbsent(ctx context.Context, arg UpsertMonthlyReportParams) (MonthlyReport, error) {
	row := q.db.QueryRowContext(ctx, insertMonthlyReportIfAbsent,
		arg.UserID,
		arg.Month,
		arg.TotalSpent,
		arg.TopCategory,
		arg.OverbudgetCategories,
	)
	return scanMonthlyReport(row)
}

const updateMonthlyReport = `
UPDATE monthly_reports
SET totalSpent = ?, topCategory = ?, overbudgetCategories = ?
WHERE userId = ? AND month = ?
RETURNING ` + reportColumns

// UpdateMonthlyReport returns sql.ErrNoRows when no row matches.
func (q *Queries) UpdateMonthlyReport(ctx context.Context, arg UpsertMonthlyReportParams) (MonthlyReport, error) {
	row := q.db.QueryRowContext(ctx, updateMonthlyReport,
		arg.TotalSpent,
		arg.TopCategory,
		arg.OverbudgetCategories,
		arg.UserID,
		arg.Month,
	)
	return scanMonthlyReport(row)
}

const getMonthlyReport = `
SELECT ` + reportColumns + `
FROM monthly_reports
WHERE userId = ? AND month = ?`

func (q *Queries) GetMonthlyReport(ctx context.Context, userID, month string) (MonthlyReport, error) {
	return scanMonthlyReport(q.db.QueryRowContext(ctx, getMonthlyReport, userID, month))
}

const listRecentMonthlyReports = `
SELECT ` + reportColumns + `
FROM monthly_reports
WHERE userId = ?
ORDER BY id DESC
LIMIT ?`

func (q *Queries) ListRecentMonthlyReports(ctx context.Context, userID string, limit int64) ([]MonthlyReport, error) {
	rows, err := q.db.QueryContext(ctx, listRecentMonthlyReports, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MonthlyReport
	for rows.Next() {
		i, err := scanMonthlyReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
