// Package mongo reads expenses from the MongoDB collection written by the
// expense tracker front end.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"expensereport/internal/core"
)

// expenseDocument mirrors the documents stored in the expenses collection.
// userEmail is the owner identity.
type expenseDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Title         string             `bson:"title"`
	Amount        float64            `bson:"amount"`
	Category      string             `bson:"category"`
	Date          time.Time          `bson:"date"`
	PaymentMethod string             `bson:"paymentMethod,omitempty"`
	Notes         string             `bson:"notes,omitempty"`
	UserEmail     string             `bson:"userEmail"`
}

// Config holds connection settings for the expense source.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Lookup implements ports.ExpenseLookup on top of a MongoDB collection.
type Lookup struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, cfg Config) (*Lookup, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", mapError(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", mapError(err))
	}

	slog.InfoContext(ctx, "Connected to MongoDB expense source",
		"database", cfg.Database,
		"collection", cfg.Collection)

	return &Lookup{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Close disconnects the underlying client.
func (l *Lookup) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}

// FindExpensesByOwnerAndWindow returns the owner's expenses dated inside
// [start, end], oldest document first.
func (l *Lookup) FindExpensesByOwnerAndWindow(ctx context.Context, owner string, start, end time.Time) ([]core.Expense, error) {
	cursor, err := l.collection.Find(ctx, windowFilter(owner, start, end),
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", mapError(err))
	}
	defer cursor.Close(ctx)

	var expenses []core.Expense
	for cursor.Next(ctx) {
		var doc expenseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode expense: %w", err)
		}
		expenses = append(expenses, toExpense(doc, start.Location()))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", mapError(err))
	}
	return expenses, nil
}

func windowFilter(owner string, start, end time.Time) bson.D {
	return bson.D{
		{Key: "userEmail", Value: owner},
		{Key: "date", Value: bson.D{
			{Key: "$gte", Value: start},
			{Key: "$lte", Value: end},
		}},
	}
}

// toExpense converts a stored document. BSON dates come back in UTC; they
// are moved into loc so month arithmetic matches the caller's window.
func toExpense(doc expenseDocument, loc *time.Location) core.Expense {
	occurred := doc.Date
	if loc != nil {
		occurred = occurred.In(loc)
	}
	return core.Expense{
		ID:         doc.ID.Hex(),
		Owner:      doc.UserEmail,
		Title:      strings.TrimSpace(doc.Title),
		Amount:     decimal.NewFromFloat(doc.Amount),
		Category:   strings.TrimSpace(doc.Category),
		OccurredAt: occurred,
	}
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return err
}
