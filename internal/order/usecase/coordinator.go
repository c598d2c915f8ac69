package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/signalbus"
)

type OrderRepository interface {
	List(ctx context.Context) ([]domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, fn func(orders []domain.Order) ([]domain.Order, error)) error
}

type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

// Coordinator turns carts into orders and drives the order state machine.
// It keeps at most one open order per table.
type Coordinator struct {
	orders   OrderRepository
	notifier NotificationPublisher
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewCoordinator(orders OrderRepository, notifier NotificationPublisher, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		orders:   orders,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// PrepareResult tells the caller whether a new order was opened.
type PrepareResult struct {
	Order   domain.Order
	Created bool
}

// Prepare commits cart items to the table's open order, creating one when the
// table has none. A table with more than one open order is rejected with a
// ConsistencyError and nothing is written; see Reconcile.
func (c *Coordinator) Prepare(ctx context.Context, table int, items []domain.CartItem) (*PrepareResult, error) {
	if err := validatePrepare(table, items); err != nil {
		return nil, err
	}

	c.logger.Info("prepare order started", zap.Int("tableNumber", table), zap.Int("itemCount", len(items)))

	snapshot := domain.SnapshotItems(items)
	var result PrepareResult

	err := c.orders.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		now := c.now().UTC()
		open := openOrderIndexes(orders, table)

		switch len(open) {
		case 0:
			order := domain.Order{
				ID:          c.newID(),
				TableNumber: table,
				Status:      domain.OrderStatusPreparing,
				CreatedAt:   now,
			}
			order.AppendItems(snapshot, now)
			result = PrepareResult{Order: order, Created: true}
			return append(orders, order), nil
		case 1:
			order := &orders[open[0]]
			// a ready order goes back to the kitchen with the new batch
			order.Status = domain.OrderStatusPreparing
			order.AppendItems(snapshot, now)
			result = PrepareResult{Order: cloneOrder(*order), Created: false}
			return orders, nil
		default:
			return nil, apperrors.NewConsistencyError(
				fmt.Sprintf("%d open orders for one table", len(open)), table)
		}
	})
	if err != nil {
		c.logFailure("prepare order failed", table, err)
		return nil, err
	}

	c.logger.Info("prepare order committed",
		zap.String("orderId", result.Order.ID),
		zap.Int("tableNumber", table),
		zap.Bool("created", result.Created),
		zap.Int("orderItems", len(result.Order.Items)),
		zap.Float64("totalAmount", result.Order.TotalAmount),
	)
	return &result, nil
}

func (c *Coordinator) MarkReady(ctx context.Context, orderID string) (*domain.Order, error) {
	return c.transition(ctx, orderID, domain.OrderStatusReady)
}

// MarkPaidIfSettled closes the order only if paid covers its total as read
// inside the same write, so a batch appended after the caller computed the
// balance keeps the order open. The returned order is always the current
// one; settled reports whether this call moved it to paid.
func (c *Coordinator) MarkPaidIfSettled(ctx context.Context, orderID string, paid float64) (order *domain.Order, settled bool, err error) {
	var current domain.Order

	err = c.orders.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		settled = false
		idx := indexOf(orders, orderID)
		if idx < 0 {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", orderID))
		}

		o := &orders[idx]
		current = cloneOrder(*o)
		if o.Status == domain.OrderStatusPaid {
			return nil, signalbus.ErrNoChange
		}
		if !o.Status.CanTransitionTo(domain.OrderStatusPaid) {
			return nil, apperrors.NewConflictError(
				fmt.Sprintf("order %s cannot move from %s to %s", orderID, o.Status, domain.OrderStatusPaid))
		}
		if domain.RoundCents(o.TotalAmount-paid) > 0 {
			return nil, signalbus.ErrNoChange
		}

		o.Status = domain.OrderStatusPaid
		o.OrderTime = c.now().UTC()
		current = cloneOrder(*o)
		settled = true
		return orders, nil
	})
	if err != nil {
		return nil, false, err
	}

	if settled {
		c.logger.Info("order status changed",
			zap.String("orderId", orderID),
			zap.Int("tableNumber", current.TableNumber),
			zap.String("status", string(domain.OrderStatusPaid)),
			zap.Float64("paid", paid),
		)
	} else if current.Status != domain.OrderStatusPaid {
		c.logger.Info("order not settled, balance still owed",
			zap.String("orderId", orderID),
			zap.Int("tableNumber", current.TableNumber),
			zap.Float64("totalAmount", current.TotalAmount),
			zap.Float64("paid", paid),
		)
	}
	return &current, settled, nil
}

// Cancel closes the order and tells the table's panels their order changed.
func (c *Coordinator) Cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := c.transition(ctx, orderID, domain.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}
	c.notifyTableChanged(ctx, order.TableNumber, order.ID)
	return order, nil
}

func (c *Coordinator) transition(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	var updated domain.Order

	err := c.orders.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		idx := indexOf(orders, orderID)
		if idx < 0 {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", orderID))
		}

		order := &orders[idx]
		if !order.Status.CanTransitionTo(next) {
			return nil, apperrors.NewConflictError(
				fmt.Sprintf("order %s cannot move from %s to %s", orderID, order.Status, next))
		}
		order.Status = next
		order.OrderTime = c.now().UTC()
		updated = cloneOrder(*order)
		return orders, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("order status changed",
		zap.String("orderId", orderID),
		zap.Int("tableNumber", updated.TableNumber),
		zap.String("status", string(next)),
	)
	return &updated, nil
}

// SetItemStatus updates the status of one embedded item, the only change an
// item accepts once it belongs to an order.
func (c *Coordinator) SetItemStatus(ctx context.Context, orderID string, index int, status domain.ItemStatus) (*domain.Order, error) {
	switch status {
	case domain.ItemStatusPreparing, domain.ItemStatusReady, domain.ItemStatusServed:
	default:
		return nil, apperrors.NewValidationError("unknown item status",
			apperrors.ValidationDetail{Field: "status", Message: "must be preparing, ready or served"})
	}

	var updated domain.Order
	err := c.orders.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		idx := indexOf(orders, orderID)
		if idx < 0 {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", orderID))
		}
		order := &orders[idx]
		if !order.Status.IsOpen() {
			return nil, apperrors.NewConflictError(fmt.Sprintf("order %s is %s", orderID, order.Status))
		}
		if index < 0 || index >= len(order.Items) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s has no item %d", orderID, index))
		}
		if order.Items[index].Status == status {
			updated = cloneOrder(*order)
			return nil, signalbus.ErrNoChange
		}
		order.Items[index].Status = status
		updated = cloneOrder(*order)
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Reconcile repairs a table that ended up with several open orders: items of
// the newer orders are folded into the oldest one and the newer orders are
// cancelled. It returns the surviving order, or nil if the table has no open
// order.
func (c *Coordinator) Reconcile(ctx context.Context, table int) (*domain.Order, error) {
	var survivor *domain.Order
	merged := 0

	err := c.orders.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		survivor = nil
		merged = 0

		open := openOrderIndexes(orders, table)
		if len(open) == 0 {
			return nil, signalbus.ErrNoChange
		}
		sort.SliceStable(open, func(i, j int) bool {
			return orders[open[i]].CreatedAt.Before(orders[open[j]].CreatedAt)
		})

		now := c.now().UTC()
		oldest := &orders[open[0]]
		for _, idx := range open[1:] {
			dup := &orders[idx]
			oldest.AppendItems(dup.Items, now)
			dup.Status = domain.OrderStatusCancelled
			dup.OrderTime = now
			merged++
		}
		s := cloneOrder(*oldest)
		survivor = &s

		if merged == 0 {
			return nil, signalbus.ErrNoChange
		}
		return orders, nil
	})
	if err != nil {
		return nil, err
	}

	if merged > 0 {
		c.logger.Warn("duplicate open orders reconciled",
			zap.Int("tableNumber", table),
			zap.String("survivorId", survivor.ID),
			zap.Int("merged", merged),
			zap.Float64("totalAmount", survivor.TotalAmount),
		)
		c.notifyTableChanged(ctx, table, survivor.ID)
	}
	return survivor, nil
}

// OpenOrderForTable returns the table's single open order. A missing order is
// a NotFoundError; more than one is a ConsistencyError.
func (c *Coordinator) OpenOrderForTable(ctx context.Context, table int) (*domain.Order, error) {
	orders, err := c.orders.List(ctx)
	if err != nil {
		return nil, err
	}

	open := openOrderIndexes(orders, table)
	switch len(open) {
	case 0:
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no open order for table %d", table))
	case 1:
		order := cloneOrder(orders[open[0]])
		return &order, nil
	default:
		err := apperrors.NewConsistencyError(fmt.Sprintf("%d open orders for one table", len(open)), table)
		c.logFailure("open order lookup failed", table, err)
		return nil, err
	}
}

// LatestOrderForTable prefers the open order and otherwise returns the most
// recently created one, whatever its status.
func (c *Coordinator) LatestOrderForTable(ctx context.Context, table int) (*domain.Order, error) {
	order, err := c.OpenOrderForTable(ctx, table)
	if err == nil {
		return order, nil
	}
	if _, ok := apperrors.IsNotFoundError(err); !ok {
		return nil, err
	}

	orders, err := c.orders.List(ctx)
	if err != nil {
		return nil, err
	}

	var latest *domain.Order
	for i := range orders {
		if orders[i].TableNumber != table {
			continue
		}
		if latest == nil || orders[i].CreatedAt.After(latest.CreatedAt) {
			latest = &orders[i]
		}
	}
	if latest == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no order for table %d", table))
	}
	latestOrder := cloneOrder(*latest)
	return &latestOrder, nil
}

func (c *Coordinator) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return c.orders.FindByID(ctx, orderID)
}

// List returns orders filtered by status; an empty status returns all.
func (c *Coordinator) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	orders, err := c.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return orders, nil
	}

	filtered := []domain.Order{}
	for _, o := range orders {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (c *Coordinator) notifyTableChanged(ctx context.Context, table int, orderID string) {
	if c.notifier == nil {
		return
	}
	_, err := c.notifier.Publish(ctx, domain.Notification{
		Type:        domain.NotificationTableChanged,
		TableNumber: table,
		OrderID:     orderID,
	})
	if err != nil {
		c.logger.Warn("table_changed notification failed", zap.Int("tableNumber", table), zap.Error(err))
	}
}

func (c *Coordinator) logFailure(msg string, table int, err error) {
	if _, ok := apperrors.IsConsistencyError(err); ok {
		c.logger.Error(msg+": consistency violation", zap.Int("tableNumber", table), zap.Error(err))
		return
	}
	if _, ok := apperrors.IsValidationError(err); ok {
		return
	}
	c.logger.Warn(msg, zap.Int("tableNumber", table), zap.Error(err))
}

func validatePrepare(table int, items []domain.CartItem) error {
	var details []apperrors.ValidationDetail

	if table <= 0 {
		details = append(details, apperrors.ValidationDetail{Field: "tableNumber", Message: "tableNumber must be a positive integer"})
	}
	if len(items) == 0 {
		details = append(details, apperrors.ValidationDetail{Field: "items", Message: "cart is empty"})
	}
	for i, item := range items {
		if item.Quantity < 1 {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be at least 1",
			})
		}
		if item.UnitPrice < 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].unitPrice", i),
				Message: "unitPrice must be non-negative",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("cannot prepare order", details...)
	}
	return nil
}

func openOrderIndexes(orders []domain.Order, table int) []int {
	var idx []int
	for i, o := range orders {
		if o.TableNumber == table && o.Status.IsOpen() {
			idx = append(idx, i)
		}
	}
	return idx
}

func indexOf(orders []domain.Order, id string) int {
	for i, o := range orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}
