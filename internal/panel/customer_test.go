package panel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"masapp/internal/billing"
	"masapp/internal/cart"
	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/notification"
	"masapp/internal/order/repository"
	"masapp/internal/order/usecase"
	"masapp/internal/payment"
	"masapp/internal/pricing"
	"masapp/internal/servicecall"
	"masapp/internal/signalbus"
)

type mockOrderCoordinator struct {
	PrepareFunc           func(ctx context.Context, table int, items []domain.CartItem) (*usecase.PrepareResult, error)
	OpenOrderForTableFunc func(ctx context.Context, table int) (*domain.Order, error)
}

func (m *mockOrderCoordinator) Prepare(ctx context.Context, table int, items []domain.CartItem) (*usecase.PrepareResult, error) {
	return m.PrepareFunc(ctx, table, items)
}

func (m *mockOrderCoordinator) OpenOrderForTable(ctx context.Context, table int) (*domain.Order, error) {
	return m.OpenOrderForTableFunc(ctx, table)
}

type restaurant struct {
	bus         *signalbus.Bus
	coordinator *usecase.Coordinator
	ledger      *payment.Ledger
	bills       *billing.Workflow
	channel     *notification.Channel
	panels      *Registry
}

func newRestaurant(t *testing.T) *restaurant {
	t.Helper()
	bus := signalbus.New(signalbus.NewMemoryStore(), zap.NewNop(), signalbus.WithBackoff(0))
	channel := notification.NewChannel(bus, zap.NewNop())
	coordinator := usecase.NewCoordinator(repository.NewBusOrderRepository(bus), channel, zap.NewNop())
	bills := billing.NewWorkflow(bus, channel, servicecall.NewService(bus, zap.NewNop()), zap.NewNop())
	panels := NewRegistry(context.Background(), cart.NewRegistry(pricing.NewCalculator(nil)),
		coordinator, bills, channel, bus, 10*time.Millisecond, zap.NewNop())
	t.Cleanup(panels.Close)

	return &restaurant{
		bus:         bus,
		coordinator: coordinator,
		ledger:      payment.NewLedger(bus, coordinator, channel, zap.NewNop()),
		bills:       bills,
		channel:     channel,
		panels:      panels,
	}
}

func add(t *testing.T, c *Customer, id, name string, price float64, qty int) {
	t.Helper()
	require.NoError(t, c.Cart().AddItem(domain.CartItem{ItemID: id, Name: name, UnitPrice: price, Quantity: qty}))
}

func TestPrepareOrder_TwoBatchesOneOrder(t *testing.T) {
	ctx := context.Background()
	r := newRestaurant(t)
	c := r.panels.ForTable(5)

	add(t, c, "kofte", "Köfte", 120, 1)
	first, err := c.PrepareOrder(ctx)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Empty(t, c.Cart().Items())
	assert.Len(t, c.Cart().Preparing(), 1)

	add(t, c, "ayran", "Ayran", 15, 2)
	second, err := c.PrepareOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, 150.0, second.Order.TotalAmount)
	assert.Len(t, c.Cart().Preparing(), 2)
}

func TestPrepareOrder_EmptyCart(t *testing.T) {
	r := newRestaurant(t)

	_, err := r.panels.ForTable(1).PrepareOrder(context.Background())

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestPrepareOrder_FailureLeavesCartUntouched(t *testing.T) {
	bus := signalbus.New(signalbus.NewMemoryStore(), zap.NewNop())
	store := cart.NewStore(3, pricing.NewCalculator(nil))
	require.NoError(t, store.AddItem(domain.CartItem{ItemID: "a", Name: "Ayran", UnitPrice: 15, Quantity: 1}))
	boom := errors.New("bus down")
	orders := &mockOrderCoordinator{
		PrepareFunc: func(ctx context.Context, table int, items []domain.CartItem) (*usecase.PrepareResult, error) {
			return nil, boom
		},
	}
	c := NewCustomer(store, orders, nil, nil, bus, zap.NewNop())

	_, err := c.PrepareOrder(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Len(t, store.Items(), 1)
	assert.Empty(t, store.Preparing())
}

func TestPrepareOrder_ItemsChangedWhileSendingStayInCart(t *testing.T) {
	bus := signalbus.New(signalbus.NewMemoryStore(), zap.NewNop())
	store := cart.NewStore(3, pricing.NewCalculator(nil))
	require.NoError(t, store.AddItem(domain.CartItem{ItemID: "kofte", Name: "Köfte", UnitPrice: 120, Quantity: 1}))

	var sent []domain.CartItem
	orders := &mockOrderCoordinator{
		PrepareFunc: func(ctx context.Context, table int, items []domain.CartItem) (*usecase.PrepareResult, error) {
			sent = items
			// the guest keeps editing while the order is written
			require.NoError(t, store.AddItem(domain.CartItem{ItemID: "ayran", Name: "Ayran", UnitPrice: 15, Quantity: 2}))
			require.NoError(t, store.AddItem(domain.CartItem{ItemID: "kofte", Name: "Köfte", UnitPrice: 120, Quantity: 1}))
			return &usecase.PrepareResult{Order: domain.Order{ID: "o1", TableNumber: table}, Created: true}, nil
		},
	}
	c := NewCustomer(store, orders, nil, nil, bus, zap.NewNop())

	_, err := c.PrepareOrder(context.Background())
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.Equal(t, 1, sent[0].Quantity)

	preparing := store.Preparing()
	require.Len(t, preparing, 1)
	assert.Equal(t, "kofte", preparing[0].ItemID)
	assert.Equal(t, 1, preparing[0].Quantity)

	active := store.Items()
	require.Len(t, active, 2)
	assert.Equal(t, "kofte", active[0].ItemID)
	assert.Equal(t, 1, active[0].Quantity)
	assert.Equal(t, "ayran", active[1].ItemID)
	assert.Equal(t, 2, active[1].Quantity)
}

func TestRequestBill_UnsentCartIsNotBilled(t *testing.T) {
	ctx := context.Background()
	r := newRestaurant(t)
	c := r.panels.ForTable(2)
	add(t, c, "pide", "Pide", 100, 1)

	_, err := c.RequestBill(ctx, domain.RequestedByCustomer)

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok, "expected ValidationError, got %v", err)
	assert.Equal(t, billing.EmptyBillMessage, ve.Message)

	pending, err := r.bills.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRequestBill_EmptyTable(t *testing.T) {
	ctx := context.Background()
	r := newRestaurant(t)

	_, err := r.panels.ForTable(4).RequestBill(ctx, domain.RequestedByCustomer)

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, billing.EmptyBillMessage, ve.Message)

	pending, err := r.bills.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRequestBill_UsesOpenOrder(t *testing.T) {
	ctx := context.Background()
	r := newRestaurant(t)
	c := r.panels.ForTable(4)
	add(t, c, "kofte", "Köfte", 120, 1)
	res, err := c.PrepareOrder(ctx)
	require.NoError(t, err)

	req, err := c.RequestBill(ctx, domain.RequestedByCustomer)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, req.OrderID)
	assert.Equal(t, 120.0, req.RequestedTotal)
}

func TestWatch_PaymentCompleteResetsCart(t *testing.T) {
	ctx := context.Background()
	r := newRestaurant(t)
	c := r.panels.ForTable(7)
	add(t, c, "kofte", "Köfte", 120, 1)
	_, err := c.PrepareOrder(ctx)
	require.NoError(t, err)
	add(t, c, "ayran", "Ayran", 15, 1)

	_, err = r.ledger.RecordPayment(ctx, payment.PaymentRequest{TableNumber: 7, Amount: 120, Method: domain.PaymentMethodCard})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return c.Cart().ItemCount() == 0 && !c.watching()
	}, 2*time.Second, 5*time.Millisecond)

	// consumed once, so nothing is left to apply again
	left, err := r.channel.List(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestWatch_CancelledOrderClearsPreparing(t *testing.T) {
	ctx := context.Background()
	r := newRestaurant(t)
	c := r.panels.ForTable(8)
	add(t, c, "kofte", "Köfte", 120, 1)
	res, err := c.PrepareOrder(ctx)
	require.NoError(t, err)
	add(t, c, "ayran", "Ayran", 15, 1)

	_, err = r.coordinator.Cancel(ctx, res.Order.ID)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(c.Cart().Preparing()) == 0 && !c.watching()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, c.Cart().Items(), 1)
}

func TestWatch_OtherTablesAreIgnored(t *testing.T) {
	ctx := context.Background()
	r := newRestaurant(t)
	c := r.panels.ForTable(1)
	add(t, c, "ayran", "Ayran", 15, 1)
	_, err := c.PrepareOrder(ctx)
	require.NoError(t, err)
	add(t, c, "cay", "Çay", 10, 1)

	_, err = r.channel.Publish(ctx, domain.Notification{Type: domain.NotificationPaymentComplete, TableNumber: 2})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 2, c.Cart().ItemCount())
	assert.True(t, c.watching())
	pending, err := r.channel.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRegistry_WatchesOnlyTablesWithAnOrder(t *testing.T) {
	ctx := context.Background()
	r := newRestaurant(t)

	for table := 100; table < 150; table++ {
		snap := r.panels.Snapshot(table)
		assert.Empty(t, snap.Items)
		_, ok := r.panels.Lookup(table)
		assert.False(t, ok)
	}
	assert.Equal(t, 0, r.panels.watching())

	c := r.panels.ForTable(3)
	add(t, c, "kofte", "Köfte", 120, 1)
	assert.Equal(t, 0, r.panels.watching())

	_, err := c.PrepareOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.panels.watching())

	add(t, c, "ayran", "Ayran", 15, 1)
	_, err = c.PrepareOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.panels.watching())

	_, err = r.ledger.RecordPayment(ctx, payment.PaymentRequest{TableNumber: 3, Amount: 135, Method: domain.PaymentMethodCash})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return r.panels.watching() == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.Cart().ItemCount())
}

func TestRegistry_ReusesPanel(t *testing.T) {
	r := newRestaurant(t)

	assert.Same(t, r.panels.ForTable(3), r.panels.ForTable(3))
	assert.NotSame(t, r.panels.ForTable(3), r.panels.ForTable(4))
}
