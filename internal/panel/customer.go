package panel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"masapp/internal/billing"
	"masapp/internal/cart"
	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/order/usecase"
	"masapp/internal/signalbus"
)

type OrderCoordinator interface {
	Prepare(ctx context.Context, table int, items []domain.CartItem) (*usecase.PrepareResult, error)
	OpenOrderForTable(ctx context.Context, table int) (*domain.Order, error)
}

type BillRequester interface {
	RequestBill(ctx context.Context, orderID string, table int, total float64, by domain.Requester, itemCount int) (*domain.BillRequest, error)
}

type NotificationConsumer interface {
	Consume(ctx context.Context, table int, t domain.NotificationType) ([]domain.Notification, error)
}

// Customer is the table-side panel: it owns the table's cart and reacts to
// what staff do to the table's order.
type Customer struct {
	mu     sync.Mutex
	table  int
	cart   *cart.Store
	orders OrderCoordinator
	bills  BillRequester
	inbox  NotificationConsumer
	bus    *signalbus.Bus
	logger *zap.Logger

	// watch is started while the table has an order in the kitchen.
	watchMu       sync.Mutex
	watchCtx      context.Context
	watchInterval time.Duration
	watch         *signalbus.Subscription
}

func NewCustomer(store *cart.Store, orders OrderCoordinator, bills BillRequester, inbox NotificationConsumer, bus *signalbus.Bus, logger *zap.Logger) *Customer {
	return &Customer{
		table:  store.TableNumber(),
		cart:   store,
		orders: orders,
		bills:  bills,
		inbox:  inbox,
		bus:    bus,
		logger: logger.With(zap.Int("tableNumber", store.TableNumber())),
	}
}

func (c *Customer) Cart() *cart.Store {
	return c.cart
}

// PrepareOrder sends the active cart items to the kitchen. The cart only
// moves them to its preparing partition once the order write succeeded, so
// a failed attempt can simply be retried. Only the items sent are moved;
// cart changes made meanwhile wait for the next batch.
func (c *Customer) PrepareOrder(ctx context.Context) (*usecase.PrepareResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.cart.Items()
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("your cart is empty",
			apperrors.ValidationDetail{Field: "items", Message: "add at least one item before ordering"})
	}

	res, err := c.orders.Prepare(ctx, c.table, items)
	if err != nil {
		return nil, err
	}

	c.cart.CommitToPreparing(items)
	c.startWatch()
	return res, nil
}

// RequestBill asks staff for the bill on the table's open order. Items
// still in the cart have not been ordered, so a table without an open order
// has nothing to bill.
func (c *Customer) RequestBill(ctx context.Context, by domain.Requester) (*domain.BillRequest, error) {
	order, err := c.orders.OpenOrderForTable(ctx, c.table)
	if isNotFound(err) {
		return nil, apperrors.NewValidationError(billing.EmptyBillMessage,
			apperrors.ValidationDetail{Field: "order", Message: "send your cart to the kitchen before asking for the bill"})
	}
	if err != nil {
		return nil, err
	}

	count := c.cart.ItemCount()
	if units := orderUnits(order); units > count {
		count = units
	}
	return c.bills.RequestBill(ctx, order.ID, c.table, order.TotalAmount, by, count)
}

// Watch follows the notifications collection. A payment_complete for this
// table resets the cart; a table_changed that leaves the table without an
// open order drops the preparing partition.
func (c *Customer) Watch(ctx context.Context, interval time.Duration) *signalbus.Subscription {
	return c.bus.Subscribe(ctx, signalbus.CollectionNotifications, interval, func(signalbus.Snapshot) {
		c.handleNotifications(ctx)
	})
}

// autoWatch makes PrepareOrder start a watch under ctx and stop it once the
// table has no order left in the kitchen.
func (c *Customer) autoWatch(ctx context.Context, interval time.Duration) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	c.watchCtx = ctx
	c.watchInterval = interval
}

func (c *Customer) startWatch() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watchCtx == nil || c.watch != nil {
		return
	}
	c.watch = c.Watch(c.watchCtx, c.watchInterval)
	c.logger.Debug("table watch started")
}

// stopWatch runs on the polling goroutine, so it must not wait for it.
func (c *Customer) stopWatch() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watch == nil {
		return
	}
	c.watch.Stop()
	c.watch = nil
	c.logger.Debug("table watch stopped")
}

// closeWatch stops the watch and waits for its goroutine.
func (c *Customer) closeWatch() {
	c.watchMu.Lock()
	sub := c.watch
	c.watch = nil
	c.watchMu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (c *Customer) watching() bool {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	return c.watch != nil
}

func (c *Customer) handleNotifications(ctx context.Context) {
	paid, err := c.inbox.Consume(ctx, c.table, domain.NotificationPaymentComplete)
	if err != nil {
		c.logger.Warn("consuming payment_complete failed", zap.Error(err))
	} else if len(paid) > 0 {
		c.cart.Reset()
		c.logger.Info("order paid, cart reset", zap.String("orderId", paid[len(paid)-1].OrderID))
	}

	changed, err := c.inbox.Consume(ctx, c.table, domain.NotificationTableChanged)
	if err != nil {
		c.logger.Warn("consuming table_changed failed", zap.Error(err))
	}
	if len(paid) == 0 && len(changed) == 0 {
		return
	}

	// held so a batch being sent cannot land between the check and the stop
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.orders.OpenOrderForTable(ctx, c.table)
	if !isNotFound(err) {
		return
	}
	if len(changed) > 0 {
		c.cart.ClearPreparing()
		c.logger.Info("table has no open order, preparing items cleared")
	}
	c.stopWatch()
}

func orderUnits(o *domain.Order) int {
	units := 0
	for _, item := range o.Items {
		units += item.Quantity
	}
	return units
}

func isNotFound(err error) bool {
	_, ok := apperrors.IsNotFoundError(err)
	return ok
}
