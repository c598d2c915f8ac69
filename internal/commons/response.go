package commons

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "masapp/internal/errors"
)

type ErrorResponse struct {
	TraceID     string                       `json:"traceId"`
	Status      int                          `json:"status"`
	Code        string                       `json:"code"`
	Message     string                       `json:"message"`
	Details     []apperrors.ValidationDetail `json:"details,omitempty"`
	TableNumber int                          `json:"tableNumber,omitempty"`
	Timestamp   time.Time                    `json:"timestamp"`
}

// Trace starts a request trace and returns its id with a logger bound to it.
func Trace(logger *zap.Logger) (string, *zap.Logger) {
	traceID := uuid.New().String()
	return traceID, logger.With(zap.String("traceId", traceID))
}

func WriteJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func WriteValidationError(w http.ResponseWriter, logger *zap.Logger, traceID string, message string, details ...apperrors.ValidationDetail) {
	WriteJSON(w, logger, http.StatusBadRequest, ErrorResponse{
		TraceID:   traceID,
		Status:    http.StatusBadRequest,
		Code:      "VALIDATION_ERROR",
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

// WriteError maps an application error onto its HTTP status and code.
// Anything unrecognised is logged and reported as INTERNAL_ERROR.
func WriteError(w http.ResponseWriter, logger *zap.Logger, traceID string, err error) {
	resp := ErrorResponse{
		TraceID:   traceID,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}

	if ve, ok := apperrors.IsValidationError(err); ok {
		WriteValidationError(w, logger, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		resp.Status, resp.Code = http.StatusNotFound, "NOT_FOUND"
	} else if _, ok := apperrors.IsConflictError(err); ok {
		resp.Status, resp.Code = http.StatusConflict, "CONFLICT"
	} else if ce, ok := apperrors.IsConsistencyError(err); ok {
		resp.Status, resp.Code = http.StatusConflict, "CONSISTENCY_VIOLATION"
		resp.Message = ce.Message
		resp.TableNumber = ce.TableNumber
	} else {
		logger.Error("unexpected error", zap.Error(err))
		resp.Status, resp.Code = http.StatusInternalServerError, "INTERNAL_ERROR"
		resp.Message = "an unexpected error occurred"
	}

	WriteJSON(w, logger, resp.Status, resp)
}

// DecodeJSON reads the request body into dst, reporting a malformed body as
// a ValidationError.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
	}
	return nil
}

// TableParam parses the {table} path parameter.
func TableParam(r *http.Request) (int, error) {
	table, err := strconv.Atoi(chi.URLParam(r, "table"))
	if err != nil || table <= 0 {
		return 0, apperrors.NewValidationError("invalid table number", apperrors.ValidationDetail{
			Field:   "table",
			Message: "table must be a positive integer",
		})
	}
	return table, nil
}
