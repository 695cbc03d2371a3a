package sink

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/marco-pos/internal/cart"
	"github.com/angelmondragon/marco-pos/internal/transactions"
	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/db"
	"github.com/angelmondragon/marco-pos/pkg/db/models"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Transaction{}))
	return conn
}

func samplePayload(t *testing.T) transactions.Payload {
	t.Helper()
	c := cart.New()
	necklace := cart.Product{ID: "SKU-002", Name: "Pearl Layered Necklace", Price: decimal.NewFromInt(10), Stock: 30,
		Bundle: &cart.BundleRule{Quantity: 2, Price: decimal.NewFromInt(18)}}
	for i := 0; i < 2; i++ {
		_, err := c.AddItem(necklace)
		require.NoError(t, err)
	}
	payload, err := transactions.Build(transactions.BuildParams{
		Totals:        c.Totals(decimal.RequireFromString("0.1")),
		CashierEmail:  "demo@marco-pos.app",
		TerminalID:    "till-1",
		Location:      "Ela Beach Market",
		PaymentMethod: enums.PaymentMethodCard,
		Now:           time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return payload
}

func TestPostgresSinkWritesRow(t *testing.T) {
	conn := newTestDB(t)
	s := NewPostgresSink(conn, time.Second, nil)
	payload := samplePayload(t)

	require.NoError(t, s.Write(context.Background(), payload))

	var row models.Transaction
	require.NoError(t, conn.First(&row, "id = ?", payload.ID).Error)
	assert.Equal(t, "till-1", row.TerminalID)
	assert.Equal(t, enums.PaymentMethodCard, row.PaymentMethod)
	assert.Equal(t, enums.TransactionStatusRecorded, row.Status)
	require.Len(t, row.Items, 1)
	assert.True(t, row.Items[0].BundleApplied)
	assert.True(t, row.Total.Equal(payload.Total), "total %s != %s", row.Total, payload.Total)
	assert.Equal(t, "postgres", s.Name())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestPostgresSinkIgnoresDuplicateWrites(t *testing.T) {
	conn := newTestDB(t)
	s := NewPostgresSink(conn, time.Second, nil)
	payload := samplePayload(t)

	require.NoError(t, s.Write(context.Background(), payload))
	require.NoError(t, s.Write(context.Background(), payload.WithStatus(enums.TransactionStatusPending)))

	var count int64
	require.NoError(t, conn.Model(&models.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPostgresSinkRejectsInvalidPayload(t *testing.T) {
	s := NewPostgresSink(newTestDB(t), time.Second, nil)
	payload := samplePayload(t)
	payload.Items = nil

	err := s.Write(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRejected, pkgerrors.As(err).Code())
	assert.False(t, pkgerrors.IsRetryable(err))
}

func TestPostgresSinkTransientFailureIsRetryable(t *testing.T) {
	conn := newTestDB(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = NewPostgresSink(conn, time.Second, nil).Write(context.Background(), samplePayload(t))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestClassifySQL(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want pkgerrors.Code
	}{
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: pkgerrors.CodeRejected},
		{name: "numeric overflow", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "22003"}), want: pkgerrors.CodeRejected},
		{name: "permission denied", err: &pgconn.PgError{Code: "42501"}, want: pkgerrors.CodeRejected},
		{name: "undefined table", err: &pgconn.PgError{Code: "42P01"}, want: pkgerrors.CodeDependency},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, want: pkgerrors.CodeDependency},
		{name: "deadline", err: context.DeadlineExceeded, want: pkgerrors.CodeDependency},
		{name: "network", err: errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"), want: pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pkgerrors.As(classifySQL(tc.err))
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.Code())
		})
	}
}

func TestToModelCopiesEveryField(t *testing.T) {
	payload := samplePayload(t)
	row := ToModel(payload)
	assert.Equal(t, payload.ID, row.ID)
	assert.Equal(t, payload.CreatedAt, row.SoldAt)
	assert.Equal(t, payload.CashierEmail, row.CashierEmail)
	assert.Equal(t, payload.Location, row.Location)
	assert.True(t, row.DiscountPercent.Equal(payload.DiscountPercent))
	assert.Len(t, row.Items, len(payload.Items))
}

func TestNewSelectsDriver(t *testing.T) {
	conn := newTestDB(t)
	s, err := New(config.SinkConfig{Driver: config.SinkPostgres}, db.NewFromGorm(conn), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", s.Name())

	_, err = New(config.SinkConfig{Driver: config.SinkPubSub}, nil, nil, nil)
	assert.Error(t, err)
	_, err = New(config.SinkConfig{Driver: config.SinkPostgres}, nil, nil, nil)
	assert.Error(t, err)
	_, err = New(config.SinkConfig{Driver: "kafka"}, nil, nil, nil)
	assert.Error(t, err)
}
