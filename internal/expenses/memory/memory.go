package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"expensereport/internal/core"
)

// Store is an in-process expense source. Lookups return insertion order.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

func New(expenses ...core.Expense) (*Store, error) {
	s := &Store{}
	for _, e := range expenses {
		if _, err := s.Add(context.Background(), e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewFromFile seeds the store from a ';' separated file with lines of the
// form owner;YYYY-MM-DD;category;amount[;title]. Blank lines and lines
// starting with '#' are skipped. A missing file yields an empty store.
// Dates are read as midnight in the local time zone.
func NewFromFile(path string) (*Store, error) {
	return NewFromFileIn(path, time.Local)
}

// NewFromFileIn is NewFromFile with dates read in loc, which must match the
// location of the reference dates used to build month windows.
func NewFromFileIn(path string, loc *time.Location) (*Store, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Store{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	s := &Store{}
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseLine(line, loc)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if _, err := s.Add(context.Background(), e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return s, nil
}

func parseLine(line string, loc *time.Location) (core.Expense, error) {
	parts := strings.Split(line, ";")
	if len(parts) < 4 || len(parts) > 5 {
		return core.Expense{}, fmt.Errorf("expected 4 or 5 fields, got %d", len(parts))
	}
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[1]), loc)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse date: %w", err)
	}
	amount, err := core.ParseAmount(parts[3])
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse amount %q: %w", parts[3], err)
	}
	e := core.Expense{
		Owner:      strings.TrimSpace(parts[0]),
		OccurredAt: date,
		Category:   strings.TrimSpace(parts[2]),
		Amount:     amount,
	}
	if len(parts) == 5 {
		e.Title = strings.TrimSpace(parts[4])
	}
	return e, nil
}

// Add validates and stores the expense, returning its synthetic ID.
func (s *Store) Add(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = fmt.Sprintf("mem:%d", len(s.items)+1)
	s.items = append(s.items, e)
	return e.ID, nil
}

// FindExpensesByOwnerAndWindow implements ports.ExpenseLookup
func (s *Store) FindExpensesByOwnerAndWindow(ctx context.Context, owner string, start, end time.Time) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Expense
	for _, e := range s.items {
		if e.Owner != owner || e.OccurredAt.Before(start) || e.OccurredAt.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
