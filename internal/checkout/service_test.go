package checkout

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marco-pos/internal/cart"
	"github.com/angelmondragon/marco-pos/internal/connectivity"
	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	"github.com/angelmondragon/marco-pos/internal/transactions"
	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/localstore"
)

var terminal = config.TerminalConfig{
	ID:             "till-1",
	Location:       "Ela Beach Market",
	DefaultCashier: "demo@marco-pos.app",
	TaxRate:        0.10,
}

var hoops = cart.Product{
	ID: "SKU-001", Name: "Gold Wire Hoops", Price: decimal.NewFromInt(6), Stock: 42,
	Bundle: &cart.BundleRule{Quantity: 3, Price: decimal.NewFromInt(15)},
}

type recordingSink struct {
	mu       sync.Mutex
	err      error
	payloads []transactions.Payload
}

func (s *recordingSink) Write(_ context.Context, p transactions.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, p)
	return nil
}

func (s *recordingSink) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *recordingSink) written() []transactions.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transactions.Payload(nil), s.payloads...)
}

type failingStore struct {
	localstore.Store
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("read-only filesystem")
}

type harness struct {
	svc    *Service
	cart   *cart.Cart
	queue  *offlinequeue.Queue
	sink   *recordingSink
	source *connectivity.ManualSource
}

func newHarness(t *testing.T, online bool, store localstore.Store) *harness {
	t.Helper()
	if store == nil {
		store = localstore.NewMemoryStore()
	}
	q, err := offlinequeue.New(offlinequeue.Params{Store: store, MaxAttempts: 5})
	require.NoError(t, err)

	source := connectivity.NewManualSource(online)
	monitor := connectivity.NewMonitor(context.Background(), source, nil)
	t.Cleanup(monitor.Close)

	h := &harness{cart: cart.New(), queue: q, sink: &recordingSink{}, source: source}
	h.svc, err = NewService(ServiceParams{
		Cart:     h.cart,
		Queue:    q,
		Sink:     h.sink,
		Monitor:  monitor,
		Terminal: terminal,
	})
	require.NoError(t, err)
	t.Cleanup(h.svc.Close)
	return h
}

func (h *harness) fillCart(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := h.cart.AddItem(hoops)
		require.NoError(t, err)
	}
}

func TestCheckoutRejectsEmptyCartAndBadPaymentMethod(t *testing.T) {
	h := newHarness(t, true, nil)

	_, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	h.fillCart(t, 1)
	_, err = h.svc.Checkout(context.Background(), Request{PaymentMethod: "cheque"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.False(t, h.cart.IsEmpty(), "failed checkout keeps the cart")
}

func TestCheckoutOnlineWritesDirectly(t *testing.T) {
	h := newHarness(t, true, nil)
	h.fillCart(t, 4)

	res, err := h.svc.Checkout(context.Background(), Request{Cashier: "mere@marco-pos.app", PaymentMethod: enums.PaymentMethodCard})
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Equal(t, enums.TransactionStatusRecorded, res.Payload.Status)
	assert.Equal(t, "mere@marco-pos.app", res.Payload.CashierEmail)
	assert.Equal(t, "till-1", res.Payload.TerminalID)
	// 3 for 15 plus one at 6 = 21; tax 2.10
	assert.True(t, res.Payload.Total.Equal(decimal.RequireFromString("23.1")), "got %s", res.Payload.Total)

	assert.True(t, h.cart.IsEmpty())
	require.Len(t, h.sink.written(), 1)
	assert.Zero(t, h.queue.Size())
}

func TestCheckoutOfflineQueuesSale(t *testing.T) {
	h := newHarness(t, false, nil)
	h.fillCart(t, 2)

	res, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.NoError(t, res.WriteError)
	assert.Equal(t, enums.TransactionStatusPending, res.Payload.Status)
	assert.Equal(t, terminal.DefaultCashier, res.Payload.CashierEmail)
	assert.True(t, h.cart.IsEmpty())
	assert.Equal(t, 1, h.queue.Size())
	assert.Empty(t, h.sink.written())
}

func TestCheckoutFallsBackToQueueOnWriteFailure(t *testing.T) {
	h := newHarness(t, true, nil)
	h.sink.setErr(pkgerrors.New(pkgerrors.CodeDependency, "remote down"))
	h.fillCart(t, 1)

	res, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodMobileMoney})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Error(t, res.WriteError)
	assert.Equal(t, 1, h.queue.Size())
	assert.True(t, h.cart.IsEmpty())
}

func TestCheckoutKeepsCartWhenQueueFails(t *testing.T) {
	h := newHarness(t, false, failingStore{Store: localstore.NewMemoryStore()})
	h.fillCart(t, 1)

	_, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.False(t, h.cart.IsEmpty())
	assert.Zero(t, h.queue.Size())
}

// hangupSink cancels the caller's request context while the write is in flight, as a
// cashier client disconnecting mid-checkout would.
type hangupSink struct {
	hangup func()
	err    error
	seen   error
}

func (s *hangupSink) Write(ctx context.Context, _ transactions.Payload) error {
	s.hangup()
	s.seen = ctx.Err()
	return s.err
}

func openBolt(t *testing.T) *localstore.BoltStore {
	t.Helper()
	store, err := localstore.OpenBolt(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCheckoutQueuesWhenClientHangsUpDuringFailedWrite(t *testing.T) {
	store := openBolt(t)
	h := newHarness(t, true, store)
	h.fillCart(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &hangupSink{hangup: cancel, err: pkgerrors.New(pkgerrors.CodeDependency, "connection reset")}
	h.svc.sink = sink

	res, err := h.svc.Checkout(ctx, Request{PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Error(t, res.WriteError)
	assert.NoError(t, sink.seen, "the remote write must not see the request cancellation")
	assert.True(t, h.cart.IsEmpty())
	assert.Equal(t, 1, h.queue.Size())

	restored, err := offlinequeue.New(offlinequeue.Params{Store: store})
	require.NoError(t, err)
	require.NoError(t, restored.Restore(context.Background()))
	require.Len(t, restored.Entries(), 1)
	assert.Equal(t, res.Payload.ID, restored.Entries()[0].Payload.ID)
}

func TestCheckoutRecordsSaleWhenClientHangsUpDuringWrite(t *testing.T) {
	h := newHarness(t, true, openBolt(t))
	h.fillCart(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.svc.sink = &hangupSink{hangup: cancel}

	res, err := h.svc.Checkout(ctx, Request{PaymentMethod: enums.PaymentMethodCard})
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Equal(t, enums.TransactionStatusRecorded, res.Payload.Status)
	assert.True(t, h.cart.IsEmpty())
	assert.Zero(t, h.queue.Size())
}

func TestCheckoutBoundsDirectWrite(t *testing.T) {
	h := newHarness(t, true, nil)
	h.svc.writeTimeout = 20 * time.Millisecond
	h.svc.sink = offlinequeue.WriterFunc(func(ctx context.Context, _ transactions.Payload) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.fillCart(t, 1)

	res, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.ErrorIs(t, res.WriteError, context.DeadlineExceeded)
	assert.Equal(t, 1, h.queue.Size())
}

func TestWentOnlineDrainsQueueInOrder(t *testing.T) {
	h := newHarness(t, false, nil)
	var ids []string
	for i := 0; i < 3; i++ {
		h.fillCart(t, 1)
		res, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
		require.NoError(t, err)
		ids = append(ids, res.Payload.ID.String())
	}
	require.Equal(t, 3, h.queue.Size())

	h.source.Set(true)

	require.Eventually(t, func() bool {
		return h.queue.Size() == 0 && !h.queue.IsSyncing()
	}, 2*time.Second, 10*time.Millisecond)

	written := h.sink.written()
	require.Len(t, written, 3)
	for i, p := range written {
		assert.Equal(t, ids[i], p.ID.String())
		assert.Equal(t, enums.TransactionStatusPending, p.Status)
	}

	require.Eventually(t, func() bool { return h.svc.Status().LastSync != nil }, 2*time.Second, 10*time.Millisecond)
	status := h.svc.Status()
	assert.True(t, status.Online)
	assert.Equal(t, 3, status.LastSync.Delivered)
}

func TestDirectWriteKicksBacklogDrain(t *testing.T) {
	h := newHarness(t, true, nil)
	h.fillCart(t, 1)
	backlog, err := transactions.Build(transactions.BuildParams{
		Totals:        h.cart.Totals(decimal.RequireFromString("0.1")),
		CashierEmail:  "demo@marco-pos.app",
		TerminalID:    "till-1",
		Location:      "Ela Beach Market",
		PaymentMethod: enums.PaymentMethodCash,
	})
	require.NoError(t, err)
	require.NoError(t, h.queue.Enqueue(context.Background(), backlog))

	_, err = h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.queue.Size() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, h.sink.written(), 2)
}

func TestSyncRefusesWhileOffline(t *testing.T) {
	h := newHarness(t, false, nil)
	h.fillCart(t, 1)
	_, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)

	res, err := h.svc.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, 0, h.queue.Entries()[0].Attempts)
}

func TestSyncDrainsWhenOnline(t *testing.T) {
	h := newHarness(t, true, nil)
	h.sink.setErr(errors.New("flaky link"))
	h.fillCart(t, 1)
	_, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)
	require.Equal(t, 1, h.queue.Size())

	h.sink.setErr(nil)
	res, err := h.svc.Sync(context.Background())
	require.NoError(t, err)
	if !res.Skipped {
		assert.True(t, res.Emptied)
	}
	require.Eventually(t, func() bool { return h.queue.Size() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStatusReportsQueueState(t *testing.T) {
	h := newHarness(t, false, nil)
	status := h.svc.Status()
	assert.False(t, status.Online)
	assert.Zero(t, status.Pending)
	assert.Nil(t, status.LastSync)

	h.fillCart(t, 1)
	_, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)
	assert.Equal(t, 1, h.svc.Status().Pending)
}

func TestCloseStopsReactingToConnectivity(t *testing.T) {
	h := newHarness(t, false, nil)
	h.fillCart(t, 1)
	_, err := h.svc.Checkout(context.Background(), Request{PaymentMethod: enums.PaymentMethodCash})
	require.NoError(t, err)

	h.svc.Close()
	h.source.Set(true)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.queue.Size())
	assert.Empty(t, h.sink.written())
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	q, err := offlinequeue.New(offlinequeue.Params{Store: localstore.NewMemoryStore()})
	require.NoError(t, err)
	monitor := connectivity.NewMonitor(context.Background(), connectivity.NewManualSource(true), nil)
	defer monitor.Close()
	_, err = NewService(ServiceParams{Cart: cart.New(), Queue: q, Sink: &recordingSink{}, Monitor: monitor})
	require.Error(t, err, "terminal id is required")
}
