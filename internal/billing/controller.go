package billing

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"masapp/internal/commons"
	"masapp/internal/domain"
)

type BillUseCase interface {
	Pending(ctx context.Context) ([]domain.BillRequest, error)
	Acknowledge(ctx context.Context, id string) (*domain.BillRequest, error)
}

// Controller serves the staff view of bill requests. Customers ask for the
// bill through the table panel.
type Controller struct {
	bills  BillUseCase
	logger *zap.Logger
}

func NewController(bills BillUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		bills:  bills,
		logger: logger,
	}
}

func (c *Controller) Pending(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	bills, err := c.bills.Pending(r.Context())
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, bills)
}

func (c *Controller) Acknowledge(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	bill, err := c.bills.Acknowledge(r.Context(), chi.URLParam(r, "billId"))
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, bill)
}
