package billing

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

// EmptyBillMessage is shown to a customer asking for the bill with nothing ordered.
const EmptyBillMessage = "There is nothing on your table to pay for yet."

type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

type CallCreator interface {
	Create(ctx context.Context, t domain.CallType, table int, message string) (domain.ServiceCall, error)
}

type Workflow struct {
	requests *signalbus.Collection[domain.BillRequest]
	notifier NotificationPublisher
	calls    CallCreator
	logger   *zap.Logger
	now      func() time.Time
}

func NewWorkflow(bus *signalbus.Bus, notifier NotificationPublisher, calls CallCreator, logger *zap.Logger) *Workflow {
	return &Workflow{
		requests: signalbus.NewCollection[domain.BillRequest](bus, signalbus.CollectionBillRequests),
		notifier: notifier,
		calls:    calls,
		logger:   logger,
		now:      time.Now,
	}
}

// RequestBill records a bill request and alerts staff twice: through the
// notifications mailbox and as a bill_request service call. A table with no
// items gets a ValidationError and nothing is written.
func (w *Workflow) RequestBill(ctx context.Context, orderID string, table int, total float64, by domain.Requester, itemCount int) (*domain.BillRequest, error) {
	if itemCount <= 0 {
		return nil, apperrors.NewValidationError(EmptyBillMessage,
			apperrors.ValidationDetail{Field: "items", Message: "no items ordered"})
	}

	var details []apperrors.ValidationDetail
	if table <= 0 {
		details = append(details, apperrors.ValidationDetail{Field: "tableNumber", Message: "tableNumber must be a positive integer"})
	}
	if by != domain.RequestedByCustomer && by != domain.RequestedByWaiter {
		details = append(details, apperrors.ValidationDetail{Field: "requestedBy", Message: "requestedBy must be customer or waiter"})
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid bill request", details...)
	}

	req := domain.BillRequest{
		ID:             uuid.New().String(),
		OrderID:        orderID,
		TableNumber:    table,
		RequestedTotal: domain.RoundCents(total),
		RequestedBy:    by,
		CreatedAt:      w.now().UTC(),
		Status:         domain.BillRequestPending,
	}

	_, err := w.requests.Mutate(ctx, func(records []domain.BillRequest) ([]domain.BillRequest, error) {
		return append(records, req), nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing bill request: %w", err)
	}

	if _, err := w.notifier.Publish(ctx, domain.Notification{
		Type:          domain.NotificationBillRequest,
		TableNumber:   table,
		OrderID:       orderID,
		BillRequestID: req.ID,
	}); err != nil {
		return &req, err
	}

	msg := fmt.Sprintf("Table %d asks for the bill (%.2f)", table, req.RequestedTotal)
	if _, err := w.calls.Create(ctx, domain.CallBill, table, msg); err != nil {
		return &req, err
	}

	w.logger.Info("bill requested",
		zap.String("billRequestId", req.ID),
		zap.String("orderId", orderID),
		zap.Int("tableNumber", table),
		zap.Float64("requestedTotal", req.RequestedTotal),
		zap.String("requestedBy", string(by)),
	)
	return &req, nil
}

func (w *Workflow) Acknowledge(ctx context.Context, id string) (*domain.BillRequest, error) {
	var acked domain.BillRequest

	_, err := w.requests.Mutate(ctx, func(records []domain.BillRequest) ([]domain.BillRequest, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			acked = records[i]
			if records[i].Status == domain.BillRequestAcknowledged {
				return nil, signalbus.ErrNoChange
			}
			records[i].Status = domain.BillRequestAcknowledged
			acked = records[i]
			return records, nil
		}
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("bill request %s not found", id))
	})
	if err != nil {
		return nil, err
	}
	return &acked, nil
}

func (w *Workflow) Pending(ctx context.Context) ([]domain.BillRequest, error) {
	records, _, err := w.requests.Load(ctx)
	if err != nil {
		return nil, err
	}

	pending := []domain.BillRequest{}
	for _, r := range records {
		if r.Status == domain.BillRequestPending {
			pending = append(pending, r)
		}
	}
	return pending, nil
}
