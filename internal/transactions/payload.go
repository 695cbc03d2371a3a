// Package transactions defines the unit of durability: a finalized sale as it is
// written to the remote store or held in the offline queue.
package transactions

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
)

// Item is the line snapshot taken at checkout. Prices are copied so later catalogue
// changes cannot alter a recorded sale.
type Item struct {
	SKU           string          `json:"sku" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Quantity      int             `json:"quantity" validate:"min=1"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	BundleApplied bool            `json:"bundle_applied"`
}

// Payload is immutable once built; the queue only ever changes Status.
type Payload struct {
	ID              uuid.UUID               `json:"id"`
	Items           []Item                  `json:"items" validate:"required,min=1,dive"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	Tax             decimal.Decimal         `json:"tax"`
	DiscountPercent decimal.Decimal         `json:"discount_percent"`
	DiscountAmount  decimal.Decimal         `json:"discount_amount"`
	Total           decimal.Decimal         `json:"total"`
	Status          enums.TransactionStatus `json:"status" validate:"required"`
	CreatedAt       time.Time               `json:"created_at" validate:"required"`
	CashierEmail    string                  `json:"cashier_email" validate:"required,email"`
	TerminalID      string                  `json:"terminal_id" validate:"required"`
	Location        string                  `json:"location" validate:"required"`
	PaymentMethod   enums.PaymentMethod     `json:"payment_method" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

var hundred = decimal.NewFromInt(100)

// Validate rejects malformed payloads before they can reach the queue or the remote store.
func (p Payload) Validate() error {
	details := map[string]string{}
	if err := validate.Struct(p); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				details[fieldPath(fe)] = validationMessage(fe)
			}
		} else {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction payload")
		}
	}
	if p.ID == uuid.Nil {
		details["id"] = "is required"
	}
	if p.Status != "" && !p.Status.IsValid() {
		details["status"] = "is invalid"
	}
	if p.PaymentMethod != "" && !p.PaymentMethod.IsValid() {
		details["payment_method"] = "is invalid"
	}
	for name, v := range map[string]decimal.Decimal{
		"subtotal":        p.Subtotal,
		"tax":             p.Tax,
		"discount_amount": p.DiscountAmount,
		"total":           p.Total,
	} {
		if v.IsNegative() {
			details[name] = "must not be negative"
		}
	}
	if p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred) {
		details["discount_percent"] = "must be between 0 and 100"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction payload").WithDetails(details)
	}
	return verifyTotals(p)
}

func verifyTotals(p Payload) error {
	sum := decimal.Zero
	for _, item := range p.Items {
		if item.UnitPrice.IsNegative() || item.LineTotal.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item amounts must not be negative").
				WithDetails(map[string]any{"sku": item.SKU})
		}
		sum = sum.Add(item.LineTotal)
	}
	if !sum.Equal(p.Subtotal) {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction subtotal mismatch").
			WithDetails(map[string]any{"subtotal": p.Subtotal.String(), "line_sum": sum.String()})
	}
	if p.DiscountAmount.GreaterThan(p.Subtotal) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds subtotal")
	}
	if !p.Subtotal.Add(p.Tax).Sub(p.DiscountAmount).Equal(p.Total) {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction total mismatch").
			WithDetails(map[string]any{"total": p.Total.String()})
	}
	return nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}

// WithStatus returns a copy of the payload carrying the given status.
func (p Payload) WithStatus(status enums.TransactionStatus) Payload {
	p.Items = append([]Item(nil), p.Items...)
	p.Status = status
	return p
}
