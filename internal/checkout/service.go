// Package checkout turns the active cart into a recorded sale, writing it straight to
// the remote store when online and parking it in the offline queue otherwise.
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marco-pos/internal/cart"
	"github.com/angelmondragon/marco-pos/internal/connectivity"
	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	"github.com/angelmondragon/marco-pos/internal/transactions"
	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
	"github.com/angelmondragon/marco-pos/pkg/metrics"
)

const defaultWriteTimeout = 10 * time.Second

type connectivityMonitor interface {
	Online() bool
	Subscribe(connectivity.Handler) func()
}

type queue interface {
	Enqueue(ctx context.Context, payload transactions.Payload) error
	Drain(ctx context.Context, w offlinequeue.Writer) offlinequeue.DrainResult
	Size() int
	DeadLetterCount() int
	IsSyncing() bool
}

type Request struct {
	Cashier       string
	PaymentMethod enums.PaymentMethod
}

// Result reports what happened to the sale. Queued is set when it is waiting in the
// offline queue; WriteError carries the direct-write failure that caused it, if any.
type Result struct {
	Payload    transactions.Payload
	Queued     bool
	WriteError error
}

type Status struct {
	Online      bool
	Syncing     bool
	Pending     int
	DeadLetters int
	LastSyncAt  *time.Time
	LastSync    *offlinequeue.DrainResult
}

type ServiceParams struct {
	Cart     *cart.Cart
	Queue    queue
	Sink     offlinequeue.Writer
	Monitor  connectivityMonitor
	Terminal config.TerminalConfig
	Metrics  *metrics.QueueMetrics
	Logger   *logger.Logger
	Now      func() time.Time
	// WriteTimeout bounds the direct remote write. Zero uses the default.
	WriteTimeout time.Duration
}

type Service struct {
	cart     *cart.Cart
	queue    queue
	sink     offlinequeue.Writer
	monitor  connectivityMonitor
	terminal config.TerminalConfig
	taxRate  decimal.Decimal
	metrics  *metrics.QueueMetrics
	logg     *logger.Logger
	now      func() time.Time

	writeTimeout time.Duration

	unsubscribe func()
	bgCtx       context.Context
	bgCancel    context.CancelFunc
	bgMu        sync.Mutex
	bg          sync.WaitGroup
	closed      bool

	mu         sync.Mutex
	lastSync   *offlinequeue.DrainResult
	lastSyncAt *time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Cart == nil {
		return nil, errors.New("cart is required")
	}
	if params.Queue == nil {
		return nil, errors.New("offline queue is required")
	}
	if params.Sink == nil {
		return nil, errors.New("sink is required")
	}
	if params.Monitor == nil {
		return nil, errors.New("connectivity monitor is required")
	}
	if strings.TrimSpace(params.Terminal.ID) == "" {
		return nil, errors.New("terminal id is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.WriteTimeout <= 0 {
		params.WriteTimeout = defaultWriteTimeout
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cart:     params.Cart,
		queue:    params.Queue,
		sink:     params.Sink,
		monitor:  params.Monitor,
		terminal: params.Terminal,
		taxRate:  decimal.NewFromFloat(params.Terminal.TaxRate),
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      params.Now,
		bgCtx:    bgCtx,
		bgCancel: cancel,

		writeTimeout: params.WriteTimeout,
	}
	s.unsubscribe = s.monitor.Subscribe(s.onConnectivity)
	return s, nil
}

func (s *Service) TaxRate() decimal.Decimal {
	return s.taxRate
}

// Checkout finalizes the current cart. The cart is cleared once the sale is either
// stored remotely or safely queued; if queueing fails the cart is left intact and the
// error is returned. Once the payload is built the caller's cancellation no longer
// applies: the sale is written or queued even if the client goes away.
func (s *Service) Checkout(ctx context.Context, req Request) (Result, error) {
	snap := s.cart.Snapshot()
	if len(snap.Lines) == 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !req.PaymentMethod.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]string{"payment_method": "must be one of cash, card, mobile_money"})
	}
	cashier := strings.TrimSpace(req.Cashier)
	if cashier == "" {
		cashier = s.terminal.DefaultCashier
	}

	payload, err := transactions.Build(transactions.BuildParams{
		Totals:        cart.ComputeTotals(snap.Lines, s.taxRate, snap.DiscountPercent),
		CashierEmail:  cashier,
		TerminalID:    s.terminal.ID,
		Location:      s.terminal.Location,
		PaymentMethod: req.PaymentMethod,
		Now:           s.now(),
	})
	if err != nil {
		return Result{}, err
	}
	ctx = s.logg.WithTransactionID(context.WithoutCancel(ctx), payload.ID.String())
	ctx = s.logg.WithCashier(ctx, cashier)

	var writeErr error
	if s.monitor.Online() {
		writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
		started := time.Now()
		writeErr = s.sink.Write(writeCtx, payload)
		cancel()
		s.metrics.ObserveWrite(time.Since(started), writeErr)
		if writeErr == nil {
			s.metrics.AddDelivered(metrics.PathDirect, 1)
			s.clearCart(ctx, snap.Version)
			s.logg.Info(s.logg.WithField(ctx, "total", payload.Total.String()), "sale recorded")
			if s.queue.Size() > 0 {
				s.kickDrain("backlog after direct write")
			}
			return Result{Payload: payload}, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", writeErr.Error()), "direct write failed, queueing sale")
	}

	if err := s.queue.Enqueue(ctx, payload); err != nil {
		s.logg.Error(ctx, "failed to queue sale", err)
		return Result{}, err
	}
	s.clearCart(ctx, snap.Version)
	return Result{
		Payload:    payload.WithStatus(enums.TransactionStatusPending),
		Queued:     true,
		WriteError: writeErr,
	}, nil
}

// Sync drains the offline queue now. It refuses while offline so attempts are not
// burned against an unreachable store.
func (s *Service) Sync(ctx context.Context) (offlinequeue.DrainResult, error) {
	if !s.monitor.Online() {
		return offlinequeue.DrainResult{Remaining: s.queue.Size()},
			pkgerrors.New(pkgerrors.CodeStateConflict, "terminal is offline")
	}
	return s.drain(ctx), nil
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Online:      s.monitor.Online(),
		Syncing:     s.queue.IsSyncing(),
		Pending:     s.queue.Size(),
		DeadLetters: s.queue.DeadLetterCount(),
	}
	if s.lastSync != nil {
		last := *s.lastSync
		at := *s.lastSyncAt
		st.LastSync = &last
		st.LastSyncAt = &at
	}
	return st
}

// Close stops reacting to connectivity changes and waits for background drains.
func (s *Service) Close() {
	s.unsubscribe()
	s.bgMu.Lock()
	s.closed = true
	s.bgMu.Unlock()
	s.bgCancel()
	s.bg.Wait()
}

func (s *Service) onConnectivity(event connectivity.Event) {
	if event != connectivity.EventWentOnline {
		return
	}
	s.kickDrain(event.String())
}

// kickDrain runs a drain off the caller's goroutine. Drain is single-flight, so
// overlapping kicks collapse into the one already running.
func (s *Service) kickDrain(trigger string) {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.closed {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx := s.logg.WithField(s.bgCtx, "trigger", trigger)
		s.drain(ctx)
	}()
}

func (s *Service) drain(ctx context.Context) offlinequeue.DrainResult {
	result := s.queue.Drain(ctx, s.sink)
	if result.Skipped {
		return result
	}
	at := s.now().UTC()
	s.mu.Lock()
	s.lastSync = &result
	s.lastSyncAt = &at
	s.mu.Unlock()
	return result
}

func (s *Service) clearCart(ctx context.Context, version uint64) {
	if !s.cart.ClearIfUnchanged(version) {
		s.logg.Warn(ctx, "cart changed during checkout, leaving it for the cashier")
	}
}
