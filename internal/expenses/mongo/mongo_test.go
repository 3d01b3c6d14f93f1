package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"expensereport/internal/core"
)

func TestWindowFilter(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC)

	filter := windowFilter("a@x.io", start, end)
	if len(filter) != 2 || filter[0].Key != "userEmail" || filter[0].Value != "a@x.io" {
		t.Fatalf("unexpected owner clause: %v", filter)
	}
	rng, ok := filter[1].Value.(bson.D)
	if !ok || filter[1].Key != "date" || len(rng) != 2 {
		t.Fatalf("unexpected date clause: %v", filter[1])
	}
	if rng[0].Key != "$gte" || !rng[0].Value.(time.Time).Equal(start) {
		t.Errorf("lower bound = %v", rng[0])
	}
	if rng[1].Key != "$lte" || !rng[1].Value.(time.Time).Equal(end) {
		t.Errorf("upper bound = %v", rng[1])
	}
}

func TestToExpense(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	id := primitive.NewObjectID()
	doc := expenseDocument{
		ID:        id,
		Title:     " Groceries ",
		Amount:    19.99,
		Category:  "Food ",
		Date:      time.Date(2024, 3, 31, 22, 30, 0, 0, time.UTC),
		UserEmail: "a@x.io",
	}

	got := toExpense(doc, rome)
	if got.ID != id.Hex() || got.Owner != "a@x.io" || got.Title != "Groceries" || got.Category != "Food" {
		t.Fatalf("unexpected expense: %+v", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("amount = %s", got.Amount)
	}
	doc.Amount = 0.125
	if got := toExpense(doc, nil); !got.Amount.Equal(decimal.RequireFromString("0.125")) {
		t.Errorf("sub-cent amount = %s", got.Amount)
	}
	// 22:30 UTC on March 31st is already April 1st in Rome.
	if got.OccurredAt.Location() != rome || got.OccurredAt.Month() != time.April {
		t.Errorf("occurredAt = %v", got.OccurredAt)
	}
}

func TestMapError(t *testing.T) {
	if err := mapError(context.DeadlineExceeded); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("deadline should be unavailable, got %v", err)
	}
	plain := errors.New("boom")
	if err := mapError(plain); errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("plain error misclassified: %v", err)
	}
}

// Runs against a real server when MONGO_TEST_URI is set, e.g.
//
//	MONGO_TEST_URI=mongodb://localhost:27017 go test ./internal/expenses/mongo/
func TestIntegrationFindExpenses(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set, skipping MongoDB integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lookup, err := Connect(ctx, Config{URI: uri, Database: "expensereport_test", Collection: "expenses_" + uuid.NewString()[:8]})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = lookup.collection.Drop(context.Background())
		_ = lookup.Close(context.Background())
	})

	docs := []any{
		expenseDocument{Title: "rent", Amount: 100, Category: "Rent", Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), UserEmail: "a@x.io"},
		expenseDocument{Title: "food", Amount: 50.5, Category: "Food", Date: time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC), UserEmail: "a@x.io"},
		expenseDocument{Title: "april", Amount: 7, Category: "Food", Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), UserEmail: "a@x.io"},
		expenseDocument{Title: "other", Amount: 9, Category: "Food", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), UserEmail: "b@x.io"},
	}
	if _, err := lookup.collection.InsertMany(ctx, docs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	window := core.MonthWindowOf(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	got, err := lookup.FindExpensesByOwnerAndWindow(ctx, "a@x.io", window.Start, window.End)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Title != "rent" || got[1].Title != "food" {
		t.Fatalf("unexpected expenses: %+v", got)
	}
}
