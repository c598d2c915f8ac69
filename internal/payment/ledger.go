package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/signalbus"
)

// balanceEpsilon absorbs float noise when comparing cent amounts.
const balanceEpsilon = 0.005

type OrderCoordinator interface {
	OpenOrderForTable(ctx context.Context, table int) (*domain.Order, error)
	LatestOrderForTable(ctx context.Context, table int) (*domain.Order, error)
	MarkPaidIfSettled(ctx context.Context, orderID string, paid float64) (*domain.Order, bool, error)
}

type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

type PaymentRequest struct {
	TableNumber int                  `json:"tableNumber"`
	Amount      float64              `json:"amount"`
	Method      domain.PaymentMethod `json:"method"`
	PayerName   string               `json:"payerName,omitempty"`
	Items       []domain.OrderItem   `json:"items,omitempty"`
	IsPartial   bool                 `json:"isPartial"`
}

// Receipt is the outcome of a recorded payment.
type Receipt struct {
	Payment   domain.Payment `json:"payment"`
	Remaining float64        `json:"remaining"`
	OrderPaid bool           `json:"orderPaid"`
}

// Balance summarizes what a table owes on its current order.
type Balance struct {
	TableNumber int     `json:"tableNumber"`
	OrderID     string  `json:"orderId"`
	Total       float64 `json:"total"`
	Paid        float64 `json:"paid"`
	Remaining   float64 `json:"remaining"`
}

// Ledger is the append-only payments log. Payments are never edited or
// removed once written.
type Ledger struct {
	payments *signalbus.Collection[domain.Payment]
	orders   OrderCoordinator
	notifier NotificationPublisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewLedger(bus *signalbus.Bus, orders OrderCoordinator, notifier NotificationPublisher, logger *zap.Logger) *Ledger {
	return &Ledger{
		payments: signalbus.NewCollection[domain.Payment](bus, signalbus.CollectionPayments),
		orders:   orders,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordPayment appends a payment against the table's open order. The
// balance and item checks run inside the conditional write, so two
// concurrent payments cannot both spend the same remainder. When the
// remainder reaches zero the order is settled and the table is told.
//
// A request against an open order that is already covered appends nothing:
// it settles the order, as a retry after a failed settlement would need,
// and reports the conflict.
func (l *Ledger) RecordPayment(ctx context.Context, req PaymentRequest) (*Receipt, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	order, err := l.orders.OpenOrderForTable(ctx, req.TableNumber)
	if err != nil {
		return nil, err
	}

	amount := domain.RoundCents(req.Amount)
	p := domain.Payment{
		ID:          uuid.New().String(),
		TableNumber: req.TableNumber,
		OrderID:     order.ID,
		Amount:      amount,
		Method:      req.Method,
		PayerName:   req.PayerName,
		Items:       req.Items,
		IsPartial:   req.IsPartial,
		Timestamp:   l.now().UTC(),
	}

	var (
		remaining float64
		paidAfter float64
		covered   bool
	)
	_, err = l.payments.Mutate(ctx, func(records []domain.Payment) ([]domain.Payment, error) {
		paid := sumForOrder(records, order.ID)
		left := domain.RoundCents(order.TotalAmount - paid)
		covered = left <= balanceEpsilon
		if covered {
			paidAfter = paid
			return nil, signalbus.ErrNoChange
		}
		if amount > left+balanceEpsilon {
			return nil, apperrors.NewConflictError(
				fmt.Sprintf("payment of %.2f exceeds remaining balance %.2f", amount, left))
		}
		if len(p.Items) > 0 {
			if err := checkItemQuantities(*order, records, p.Items); err != nil {
				return nil, err
			}
		}
		remaining = domain.RoundCents(left - amount)
		paidAfter = domain.RoundCents(paid + amount)
		return append(records, p), nil
	})
	if err != nil {
		l.logger.Warn("payment rejected",
			zap.Int("tableNumber", req.TableNumber),
			zap.String("orderId", order.ID),
			zap.Float64("amount", amount),
			zap.Error(err),
		)
		return nil, err
	}

	if covered {
		return nil, l.settleCovered(ctx, order, paidAfter)
	}

	l.logger.Info("payment recorded",
		zap.String("paymentId", p.ID),
		zap.String("orderId", order.ID),
		zap.Int("tableNumber", req.TableNumber),
		zap.Float64("amount", amount),
		zap.String("method", string(req.Method)),
		zap.Float64("remaining", remaining),
	)

	receipt := &Receipt{Payment: p, Remaining: remaining}
	if remaining > balanceEpsilon {
		return receipt, nil
	}

	current, _, err := l.settle(ctx, order.ID, p.ID, paidAfter)
	if err != nil {
		receipt.Remaining = 0
		return receipt, err
	}
	receipt.Remaining = remainingOn(*current, paidAfter)
	receipt.OrderPaid = current.Status == domain.OrderStatusPaid
	return receipt, nil
}

// settleCovered closes an open order whose payments already cover it. The
// request that found it covered is still refused since nothing is owed.
func (l *Ledger) settleCovered(ctx context.Context, order *domain.Order, paid float64) error {
	l.logger.Warn("open order already covered, settling",
		zap.String("orderId", order.ID),
		zap.Int("tableNumber", order.TableNumber),
		zap.Float64("paid", paid),
	)

	current, _, err := l.settle(ctx, order.ID, "", paid)
	if err != nil {
		return err
	}
	if current.Status != domain.OrderStatusPaid {
		return apperrors.NewConflictError(
			fmt.Sprintf("order %s changed while paying, try again", order.ID))
	}
	return apperrors.NewConflictError(
		fmt.Sprintf("order %s is already fully paid", order.ID))
}

// settle marks the order paid if paid still covers it and, when this call
// did the transition, publishes payment_complete for the table.
func (l *Ledger) settle(ctx context.Context, orderID, paymentID string, paid float64) (*domain.Order, bool, error) {
	current, settled, err := l.orders.MarkPaidIfSettled(ctx, orderID, paid)
	if err != nil {
		l.logger.Error("marking order paid failed", zap.String("orderId", orderID), zap.Error(err))
		return nil, false, fmt.Errorf("marking order %s paid: %w", orderID, err)
	}
	if !settled {
		return current, false, nil
	}

	if err := l.publishComplete(ctx, current, paymentID); err != nil {
		return current, true, err
	}
	return current, true, nil
}

func (l *Ledger) publishComplete(ctx context.Context, order *domain.Order, paymentID string) error {
	_, err := l.notifier.Publish(ctx, domain.Notification{
		Type:        domain.NotificationPaymentComplete,
		TableNumber: order.TableNumber,
		OrderID:     order.ID,
		PaymentID:   paymentID,
	})
	if err != nil {
		l.logger.Error("publishing payment_complete failed",
			zap.String("orderId", order.ID),
			zap.Int("tableNumber", order.TableNumber),
			zap.Error(err),
		)
		return fmt.Errorf("publishing payment_complete: %w", err)
	}
	return nil
}

// Settle closes the table's latest order when its payments cover it and
// tells the table. Unlike the automatic path it publishes payment_complete
// again for an order that is already paid, for staff to recover a table
// whose notification was lost.
func (l *Ledger) Settle(ctx context.Context, table int) (*Balance, error) {
	order, err := l.orders.LatestOrderForTable(ctx, table)
	if err != nil {
		return nil, err
	}

	paid, err := l.paidFor(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if remainingOn(*order, paid) > 0 {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order %s still owes %.2f", order.ID, remainingOn(*order, paid)))
	}

	current, settled, err := l.settle(ctx, order.ID, "", paid)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.OrderStatusPaid {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order %s changed while settling, try again", order.ID))
	}
	if !settled {
		if err := l.publishComplete(ctx, current, ""); err != nil {
			return nil, err
		}
	}

	return &Balance{
		TableNumber: table,
		OrderID:     current.ID,
		Total:       current.TotalAmount,
		Paid:        paid,
		Remaining:   remainingOn(*current, paid),
	}, nil
}

// TotalPaid sums the payments linked to the table's current order.
func (l *Ledger) TotalPaid(ctx context.Context, table int) (float64, error) {
	b, err := l.Balance(ctx, table)
	if err != nil {
		return 0, err
	}
	return b.Paid, nil
}

// RemainingBalance is the order total minus payments, never below zero.
func (l *Ledger) RemainingBalance(ctx context.Context, table int) (float64, error) {
	b, err := l.Balance(ctx, table)
	if err != nil {
		return 0, err
	}
	return b.Remaining, nil
}

// Balance resolves the table's open order, or its latest one when none is
// open, and reports what has been paid against it. An open order whose
// payments already cover it is settled on the way.
func (l *Ledger) Balance(ctx context.Context, table int) (*Balance, error) {
	order, err := l.orders.LatestOrderForTable(ctx, table)
	if err != nil {
		return nil, err
	}

	paid, err := l.paidFor(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	if domain.RoundCents(order.TotalAmount-paid) < -balanceEpsilon {
		l.logger.Error("order over-paid: consistency violation",
			zap.String("orderId", order.ID),
			zap.Int("tableNumber", table),
			zap.Float64("total", order.TotalAmount),
			zap.Float64("paid", paid),
		)
	}

	remaining := remainingOn(*order, paid)
	if order.Status.IsOpen() && len(order.Items) > 0 && remaining == 0 {
		if _, _, err := l.settle(ctx, order.ID, "", paid); err != nil {
			l.logger.Warn("settling covered order failed", zap.String("orderId", order.ID), zap.Error(err))
		}
	}

	return &Balance{
		TableNumber: table,
		OrderID:     order.ID,
		Total:       order.TotalAmount,
		Paid:        paid,
		Remaining:   remaining,
	}, nil
}

func (l *Ledger) paidFor(ctx context.Context, orderID string) (float64, error) {
	records, _, err := l.payments.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading payments: %w", err)
	}
	return sumForOrder(records, orderID), nil
}

// History lists every payment ever made at the table, oldest first.
func (l *Ledger) History(ctx context.Context, table int) ([]domain.Payment, error) {
	records, _, err := l.payments.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading payments: %w", err)
	}

	history := []domain.Payment{}
	for _, p := range records {
		if p.TableNumber == table {
			history = append(history, p)
		}
	}
	return history, nil
}

func validateRequest(req PaymentRequest) error {
	var details []apperrors.ValidationDetail

	if req.TableNumber <= 0 {
		details = append(details, apperrors.ValidationDetail{Field: "tableNumber", Message: "tableNumber must be a positive integer"})
	}
	if domain.RoundCents(req.Amount) <= 0 {
		details = append(details, apperrors.ValidationDetail{Field: "amount", Message: "amount must be at least 0.01"})
	}
	if !req.Method.Valid() {
		details = append(details, apperrors.ValidationDetail{Field: "method", Message: "method must be cash, card or mobile"})
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be at least 1",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid payment", details...)
	}
	return nil
}

// remainingOn is what is still owed on the order, never below zero.
func remainingOn(order domain.Order, paid float64) float64 {
	left := domain.RoundCents(order.TotalAmount - paid)
	if left <= balanceEpsilon {
		return 0
	}
	return left
}

func sumForOrder(records []domain.Payment, orderID string) float64 {
	total := 0.0
	for _, p := range records {
		if p.OrderID == orderID {
			total += p.Amount
		}
	}
	return domain.RoundCents(total)
}

type itemKey struct {
	name  string
	price float64
}

// checkItemQuantities keeps the units paid per item, across all payments on
// the order, within the units ordered.
func checkItemQuantities(order domain.Order, records []domain.Payment, items []domain.OrderItem) error {
	ordered := map[itemKey]int{}
	for _, it := range order.Items {
		ordered[itemKey{it.Name, it.Price}] += it.Quantity
	}

	paid := map[itemKey]int{}
	for _, p := range records {
		if p.OrderID != order.ID {
			continue
		}
		for _, it := range p.Items {
			paid[itemKey{it.Name, it.Price}] += it.Quantity
		}
	}

	for _, it := range items {
		key := itemKey{it.Name, it.Price}
		paid[key] += it.Quantity
		if paid[key] > ordered[key] {
			return apperrors.NewConflictError(
				fmt.Sprintf("%s: %d paid but only %d ordered", it.Name, paid[key], ordered[key]))
		}
	}
	return nil
}
