package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marco-pos/pkg/enums"
)

// TransactionItem is the line snapshot stored alongside a recorded sale.
type TransactionItem struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	BundleApplied bool            `json:"bundle_applied"`
}

// Transaction is a sale as persisted by the remote store. The id is generated on the
// terminal so retried writes land on the same row.
type Transaction struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TerminalID      string                  `gorm:"column:terminal_id;not null"`
	Location        string                  `gorm:"column:location;not null"`
	CashierEmail    string                  `gorm:"column:cashier_email;not null"`
	PaymentMethod   enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	Status          enums.TransactionStatus `gorm:"column:status;not null"`
	Items           []TransactionItem       `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Subtotal        decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax             decimal.Decimal         `gorm:"column:tax;type:numeric(12,2);not null"`
	DiscountPercent decimal.Decimal         `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	DiscountAmount  decimal.Decimal         `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	Total           decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	SoldAt          time.Time               `gorm:"column:sold_at;not null"`
	ReceivedAt      time.Time               `gorm:"column:received_at;autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
