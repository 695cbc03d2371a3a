package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marco-pos/internal/cart"
	"github.com/angelmondragon/marco-pos/internal/checkout"
	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	"github.com/angelmondragon/marco-pos/internal/transactions"
)

const moneyPlaces = 2

type bundleResponse struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type productResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    string          `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
	Bundle   *bundleResponse `json:"bundle,omitempty"`
}

func newProductResponse(p cart.Product) productResponse {
	out := productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.StringFixed(moneyPlaces),
		Stock:    p.Stock,
		Category: p.Category,
	}
	if p.Bundle != nil {
		out.Bundle = &bundleResponse{Quantity: p.Bundle.Quantity, Price: p.Bundle.Price.StringFixed(moneyPlaces)}
	}
	return out
}

type catalogResponse struct {
	Products   []productResponse `json:"products"`
	Categories []string          `json:"categories"`
}

type cartLineResponse struct {
	Product       productResponse `json:"product"`
	Quantity      int             `json:"quantity"`
	BundleCount   int             `json:"bundle_count"`
	BundleApplied bool            `json:"bundle_applied"`
	Total         string          `json:"total"`
}

type cartResponse struct {
	Lines           []cartLineResponse `json:"lines"`
	ItemCount       int                `json:"item_count"`
	Subtotal        string             `json:"subtotal"`
	TaxRate         string             `json:"tax_rate"`
	Tax             string             `json:"tax"`
	DiscountPercent string             `json:"discount_percent"`
	DiscountAmount  string             `json:"discount_amount"`
	Total           string             `json:"total"`
}

func newCartResponse(t cart.Totals) cartResponse {
	out := cartResponse{
		Lines:           make([]cartLineResponse, 0, len(t.Lines)),
		ItemCount:       t.ItemCount,
		Subtotal:        t.Subtotal.StringFixed(moneyPlaces),
		TaxRate:         t.TaxRate.String(),
		Tax:             t.Tax.StringFixed(moneyPlaces),
		DiscountPercent: t.DiscountPercent.String(),
		DiscountAmount:  t.DiscountAmount.StringFixed(moneyPlaces),
		Total:           t.Total.StringFixed(moneyPlaces),
	}
	for _, line := range t.Lines {
		out.Lines = append(out.Lines, cartLineResponse{
			Product:       newProductResponse(line.Product),
			Quantity:      line.Quantity,
			BundleCount:   line.BundleCount,
			BundleApplied: line.BundleApplied,
			Total:         line.Total.StringFixed(moneyPlaces),
		})
	}
	return out
}

type itemResponse struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	UnitPrice     string `json:"unit_price"`
	LineTotal     string `json:"line_total"`
	BundleApplied bool   `json:"bundle_applied"`
}

type transactionResponse struct {
	ID              uuid.UUID      `json:"id"`
	Items           []itemResponse `json:"items"`
	Subtotal        string         `json:"subtotal"`
	Tax             string         `json:"tax"`
	DiscountPercent string         `json:"discount_percent"`
	DiscountAmount  string         `json:"discount_amount"`
	Total           string         `json:"total"`
	Status          string         `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	CashierEmail    string         `json:"cashier_email"`
	TerminalID      string         `json:"terminal_id"`
	Location        string         `json:"location"`
	PaymentMethod   string         `json:"payment_method"`
}

func newTransactionResponse(p transactions.Payload) transactionResponse {
	out := transactionResponse{
		ID:              p.ID,
		Items:           make([]itemResponse, 0, len(p.Items)),
		Subtotal:        p.Subtotal.StringFixed(moneyPlaces),
		Tax:             p.Tax.StringFixed(moneyPlaces),
		DiscountPercent: p.DiscountPercent.String(),
		DiscountAmount:  p.DiscountAmount.StringFixed(moneyPlaces),
		Total:           p.Total.StringFixed(moneyPlaces),
		Status:          string(p.Status),
		CreatedAt:       p.CreatedAt,
		CashierEmail:    p.CashierEmail,
		TerminalID:      p.TerminalID,
		Location:        p.Location,
		PaymentMethod:   string(p.PaymentMethod),
	}
	for _, item := range p.Items {
		out.Items = append(out.Items, itemResponse{
			SKU:           item.SKU,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice.StringFixed(moneyPlaces),
			LineTotal:     item.LineTotal.StringFixed(moneyPlaces),
			BundleApplied: item.BundleApplied,
		})
	}
	return out
}

type checkoutResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Queued      bool                `json:"queued"`
	WriteError  string              `json:"write_error,omitempty"`
}

func newCheckoutResponse(res checkout.Result) checkoutResponse {
	out := checkoutResponse{
		Transaction: newTransactionResponse(res.Payload),
		Queued:      res.Queued,
	}
	if res.WriteError != nil {
		out.WriteError = res.WriteError.Error()
	}
	return out
}

type drainResponse struct {
	Delivered    int    `json:"delivered"`
	DeadLettered int    `json:"dead_lettered"`
	Remaining    int    `json:"remaining"`
	Emptied      bool   `json:"emptied"`
	Halted       bool   `json:"halted"`
	Skipped      bool   `json:"skipped"`
	LastError    string `json:"last_error,omitempty"`
}

func newDrainResponse(res offlinequeue.DrainResult) drainResponse {
	out := drainResponse{
		Delivered:    res.Delivered,
		DeadLettered: res.DeadLettered,
		Remaining:    res.Remaining,
		Emptied:      res.Emptied,
		Halted:       res.Halted,
		Skipped:      res.Skipped,
	}
	if res.LastError != nil {
		out.LastError = res.LastError.Error()
	}
	return out
}

type syncStatusResponse struct {
	Online      bool           `json:"online"`
	Syncing     bool           `json:"syncing"`
	Pending     int            `json:"pending"`
	DeadLetters int            `json:"dead_letters"`
	LastSyncAt  *time.Time     `json:"last_sync_at,omitempty"`
	LastSync    *drainResponse `json:"last_sync,omitempty"`
}

func newSyncStatusResponse(st checkout.Status) syncStatusResponse {
	out := syncStatusResponse{
		Online:      st.Online,
		Syncing:     st.Syncing,
		Pending:     st.Pending,
		DeadLetters: st.DeadLetters,
		LastSyncAt:  st.LastSyncAt,
	}
	if st.LastSync != nil {
		last := newDrainResponse(*st.LastSync)
		out.LastSync = &last
	}
	return out
}

type deadLetterResponse struct {
	Transaction  transactionResponse `json:"transaction"`
	Attempts     int                 `json:"attempts"`
	Reason       string              `json:"reason"`
	ErrorMessage string              `json:"error_message"`
	EnqueuedAt   time.Time           `json:"enqueued_at"`
	FailedAt     time.Time           `json:"failed_at"`
}

func newDeadLetterResponse(dl offlinequeue.DeadLetter) deadLetterResponse {
	return deadLetterResponse{
		Transaction:  newTransactionResponse(dl.Payload),
		Attempts:     dl.Attempts,
		Reason:       string(dl.Reason),
		ErrorMessage: dl.ErrorMessage,
		EnqueuedAt:   dl.EnqueuedAt,
		FailedAt:     dl.FailedAt,
	}
}
