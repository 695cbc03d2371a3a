package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/marco-pos/pkg/db/models"
	"github.com/angelmondragon/marco-pos/pkg/enums"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestSQLState(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "transactions_pkey"}
	if got := SQLState(fmt.Errorf("wrapped: %w", pgErr)); got != "23505" {
		t.Fatalf("expected SQLSTATE 23505, got %q", got)
	}
	if got := SQLState(errors.New("plain")); got != "" {
		t.Fatalf("expected empty SQLSTATE, got %q", got)
	}
	if got := SQLState(nil); got != "" {
		t.Fatalf("expected empty SQLSTATE for nil, got %q", got)
	}
}

func TestTransactionModelRoundTrip(t *testing.T) {
	conn := newTestDB(t)
	if err := conn.AutoMigrate(&models.Transaction{}); err != nil {
		t.Fatalf("migrate transactions: %v", err)
	}

	row := models.Transaction{
		ID:              uuid.New(),
		TerminalID:      "till-1",
		Location:        "Ela Beach Market",
		CashierEmail:    "demo@marco-pos.app",
		PaymentMethod:   enums.PaymentMethodCash,
		Status:          enums.TransactionStatusRecorded,
		Items:           []models.TransactionItem{{SKU: "SKU-001", Name: "Coconut", Quantity: 3, UnitPrice: decimal.NewFromInt(6), LineTotal: decimal.NewFromInt(15), BundleApplied: true}},
		Subtotal:        decimal.NewFromInt(15),
		Tax:             decimal.RequireFromString("1.5"),
		DiscountPercent: decimal.Zero,
		DiscountAmount:  decimal.Zero,
		Total:           decimal.RequireFromString("16.5"),
		SoldAt:          time.Now().UTC(),
	}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var got models.Transaction
	if err := conn.First(&got, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].SKU != "SKU-001" || !got.Items[0].BundleApplied {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
	if !got.Total.Equal(row.Total) {
		t.Fatalf("expected total %s, got %s", row.Total, got.Total)
	}
}
