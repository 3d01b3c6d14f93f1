package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OverbudgetPlaceholder is written to every monthly report until per-category
// limit detection exists.
const OverbudgetPlaceholder = "N/A"

// DefaultRecentReports is how many reports the reports view shows.
const DefaultRecentReports = 3

type (
	// Expense is a single spending record owned by the primary store.
	Expense struct {
		ID         string
		Owner      string // user identity, partition key for every lookup
		Title      string
		Amount     decimal.Decimal
		Category   string
		OccurredAt time.Time
	}

	// Totals is the reduction of one month of expenses.
	Totals struct {
		TotalSpent  decimal.Decimal
		TopCategory string // empty when no expense matched
	}

	// Aggregate is the Aggregator output for a single user and month.
	Aggregate struct {
		MonthKey string
		Totals
	}

	// CategoryLimit is a user's spending cap for one category.
	CategoryLimit struct {
		Category string
		Limit    decimal.Decimal
	}

	// CategoryUsage compares one month of spending in a category with its
	// limit. Percentage is capped at 100.
	CategoryUsage struct {
		Category   string
		Limit      decimal.Decimal
		Spent      decimal.Decimal
		Percentage decimal.Decimal
		Status     UsageStatus
	}

	// MonthlyReport is the persisted per-user-per-month summary row.
	MonthlyReport struct {
		ID                   int64
		UserID               string
		Month                string
		TotalSpent           decimal.Decimal
		TopCategory          string
		OverbudgetCategories string
	}
)

// UsageStatus classifies spending against a category limit.
type UsageStatus string

const (
	UsageOK       UsageStatus = "ok"
	UsageNearing  UsageStatus = "nearing"  // at least 80% of the limit
	UsageExceeded UsageStatus = "exceeded" // limit reached or passed
)

var (
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrDuplicateKey     = errors.New("duplicate key conflict")
	ErrReportNotFound   = errors.New("monthly report not found")
	ErrInvalidMonthKey  = errors.New("invalid month key")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrInvalidLimit     = errors.New("invalid category limit")
)

// ValidateIdentity rejects blank user identities.
func ValidateIdentity(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidIdentity
	}
	return nil
}

func (e Expense) Validate() error {
	if err := ValidateIdentity(e.Owner); err != nil {
		return err
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.OccurredAt.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// HasTopCategory reports whether any expense contributed to the totals.
func (t Totals) HasTopCategory() bool {
	return t.TopCategory != ""
}

// Totals returns the aggregate values stored on the report.
func (r MonthlyReport) Totals() Totals {
	return Totals{TotalSpent: r.TotalSpent, TopCategory: r.TopCategory}
}

// Validate rejects limits without a category or with a negative amount.
func (l CategoryLimit) Validate() error {
	if strings.TrimSpace(l.Category) == "" || l.Limit.IsNegative() {
		return ErrInvalidLimit
	}
	return nil
}
