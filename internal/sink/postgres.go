package sink

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marco-pos/internal/transactions"
	"github.com/angelmondragon/marco-pos/pkg/db"
	"github.com/angelmondragon/marco-pos/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

const defaultWriteTimeout = 10 * time.Second

// PostgresSink inserts sales into the transactions table. Inserts are keyed on the
// client-generated id and ignore conflicts, so resending a sale is harmless.
type PostgresSink struct {
	db      *gorm.DB
	timeout time.Duration
	logg    *logger.Logger
}

func NewPostgresSink(conn *gorm.DB, timeout time.Duration, logg *logger.Logger) *PostgresSink {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &PostgresSink{db: conn, timeout: timeout, logg: logg}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, payload transactions.Payload) error {
	if err := rejectInvalid(payload); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := ToModel(payload)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return classifySQL(res.Error)
	}
	if res.RowsAffected == 0 {
		logCtx := s.logg.WithTransactionID(ctx, payload.ID.String())
		s.logg.Info(logCtx, "sale already stored, duplicate write ignored")
	}
	return nil
}

func (s *PostgresSink) Ping(ctx context.Context) error {
	return db.NewFromGorm(s.db).Ping(ctx)
}

// ToModel maps a payload onto its table row.
func ToModel(p transactions.Payload) models.Transaction {
	items := make([]models.TransactionItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, models.TransactionItem{
			SKU:           item.SKU,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.LineTotal,
			BundleApplied: item.BundleApplied,
		})
	}
	return models.Transaction{
		ID:              p.ID,
		TerminalID:      p.TerminalID,
		Location:        p.Location,
		CashierEmail:    p.CashierEmail,
		PaymentMethod:   p.PaymentMethod,
		Status:          p.Status,
		Items:           items,
		Subtotal:        p.Subtotal,
		Tax:             p.Tax,
		DiscountPercent: p.DiscountPercent,
		DiscountAmount:  p.DiscountAmount,
		Total:           p.Total,
		SoldAt:          p.CreatedAt,
	}
}

// classifySQL splits database failures into permanent rejections (bad data, integrity
// and permission errors) and transient ones (everything else, including timeouts).
func classifySQL(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remote write timed out")
	}
	state := db.SQLState(err)
	switch {
	case strings.HasPrefix(state, "22"), strings.HasPrefix(state, "23"), state == "42501":
		return pkgerrors.Wrap(pkgerrors.CodeRejected, err, "remote store rejected sale").
			WithDetails(map[string]any{"sqlstate": state})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remote write failed")
	}
}
