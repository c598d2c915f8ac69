package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"masapp/internal/commons"
	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
)

type OrderUseCase interface {
	List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)
	MarkReady(ctx context.Context, orderID string) (*domain.Order, error)
	Cancel(ctx context.Context, orderID string) (*domain.Order, error)
	SetItemStatus(ctx context.Context, orderID string, index int, status domain.ItemStatus) (*domain.Order, error)
	Reconcile(ctx context.Context, table int) (*domain.Order, error)
}

// OrderController serves the staff side of the order lifecycle.
type OrderController struct {
	useCase OrderUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase OrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

type itemStatusRequest struct {
	Status domain.ItemStatus `json:"status"`
}

type reconcileResponse struct {
	TraceID string        `json:"traceId"`
	Order   *domain.Order `json:"order"`
}

func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	status := domain.OrderStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.OrderStatusPreparing, domain.OrderStatusReady, domain.OrderStatusPaid, domain.OrderStatusCancelled:
	default:
		commons.WriteValidationError(w, logger, traceID, "invalid status filter", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be preparing, ready, paid or cancelled",
		})
		return
	}

	orders, err := c.useCase.List(r.Context(), status)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, orders)
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	order, err := c.useCase.FindByID(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, order)
}

func (c *OrderController) MarkReady(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.useCase.MarkReady)
}

func (c *OrderController) Cancel(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.useCase.Cancel)
}

func (c *OrderController) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*domain.Order, error)) {
	traceID, logger := commons.Trace(c.logger)
	orderID := chi.URLParam(r, "orderId")

	order, err := fn(r.Context(), orderID)
	if err != nil {
		logger.Warn("order transition failed", zap.String("orderId", orderID), zap.Error(err))
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, order)
}

func (c *OrderController) SetItemStatus(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		commons.WriteValidationError(w, logger, traceID, "invalid item index", apperrors.ValidationDetail{
			Field:   "index",
			Message: "index must be an integer",
		})
		return
	}

	var req itemStatusRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	order, err := c.useCase.SetItemStatus(r.Context(), chi.URLParam(r, "orderId"), index, req.Status)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, order)
}

func (c *OrderController) Reconcile(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	table, err := commons.TableParam(r)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	order, err := c.useCase.Reconcile(r.Context(), table)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, reconcileResponse{TraceID: traceID, Order: order})
}
