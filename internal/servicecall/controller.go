package servicecall

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"masapp/internal/commons"
	"masapp/internal/domain"
)

type CallUseCase interface {
	Create(ctx context.Context, t domain.CallType, table int, message string) (domain.ServiceCall, error)
	Pending(ctx context.Context) ([]domain.ServiceCall, error)
	Resolve(ctx context.Context, id string) (domain.ServiceCall, error)
}

type Controller struct {
	calls  CallUseCase
	logger *zap.Logger
}

func NewController(calls CallUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		calls:  calls,
		logger: logger,
	}
}

type createCallRequest struct {
	Type    domain.CallType `json:"type"`
	Message string          `json:"message"`
}

func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	table, err := commons.TableParam(r)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	var req createCallRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	call, err := c.calls.Create(r.Context(), req.Type, table, req.Message)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusCreated, call)
}

func (c *Controller) Pending(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	calls, err := c.calls.Pending(r.Context())
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, calls)
}

func (c *Controller) Resolve(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	call, err := c.calls.Resolve(r.Context(), chi.URLParam(r, "callId"))
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, call)
}
