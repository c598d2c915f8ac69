package payment

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"masapp/internal/commons"
	"masapp/internal/domain"
)

type LedgerUseCase interface {
	RecordPayment(ctx context.Context, req PaymentRequest) (*Receipt, error)
	Balance(ctx context.Context, table int) (*Balance, error)
	History(ctx context.Context, table int) ([]domain.Payment, error)
	Settle(ctx context.Context, table int) (*Balance, error)
}

type Controller struct {
	ledger LedgerUseCase
	logger *zap.Logger
}

func NewController(ledger LedgerUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		ledger: ledger,
		logger: logger,
	}
}

func (c *Controller) Record(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	table, err := commons.TableParam(r)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	var req PaymentRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	req.TableNumber = table

	receipt, err := c.ledger.RecordPayment(r.Context(), req)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusCreated, receipt)
}

func (c *Controller) Balance(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	table, err := commons.TableParam(r)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	balance, err := c.ledger.Balance(r.Context(), table)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, balance)
}

func (c *Controller) History(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	table, err := commons.TableParam(r)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	payments, err := c.ledger.History(r.Context(), table)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, payments)
}

// Settle lets staff close a fully paid table whose settlement did not finish.
func (c *Controller) Settle(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	table, err := commons.TableParam(r)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	balance, err := c.ledger.Settle(r.Context(), table)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, balance)
}
