package servicecall

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/signalbus"
)

// Service manages the calls collection: ad-hoc requests from a table to staff.
type Service struct {
	calls  *signalbus.Collection[domain.ServiceCall]
	logger *zap.Logger
	now    func() time.Time
}

func NewService(bus *signalbus.Bus, logger *zap.Logger) *Service {
	return &Service{
		calls:  signalbus.NewCollection[domain.ServiceCall](bus, signalbus.CollectionCalls),
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, t domain.CallType, table int, message string) (domain.ServiceCall, error) {
	var details []apperrors.ValidationDetail
	if !t.Valid() {
		details = append(details, apperrors.ValidationDetail{Field: "type", Message: "unknown call type"})
	}
	if table <= 0 {
		details = append(details, apperrors.ValidationDetail{Field: "tableNumber", Message: "tableNumber must be a positive integer"})
	}
	if len(details) > 0 {
		return domain.ServiceCall{}, apperrors.NewValidationError("invalid service call", details...)
	}

	call := domain.ServiceCall{
		ID:          uuid.New().String(),
		Type:        t,
		TableNumber: table,
		Message:     strings.TrimSpace(message),
		Timestamp:   s.now().UTC(),
		Status:      domain.CallPending,
	}

	_, err := s.calls.Mutate(ctx, func(records []domain.ServiceCall) ([]domain.ServiceCall, error) {
		return append(records, call), nil
	})
	if err != nil {
		return domain.ServiceCall{}, fmt.Errorf("creating service call: %w", err)
	}

	s.logger.Info("service call created", zap.String("callId", call.ID), zap.String("type", string(t)), zap.Int("tableNumber", table))
	return call, nil
}

func (s *Service) Pending(ctx context.Context) ([]domain.ServiceCall, error) {
	records, _, err := s.calls.Load(ctx)
	if err != nil {
		return nil, err
	}

	pending := []domain.ServiceCall{}
	for _, c := range records {
		if c.Status == domain.CallPending {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// Resolve marks a call handled. Resolving twice is a no-op.
func (s *Service) Resolve(ctx context.Context, id string) (domain.ServiceCall, error) {
	var resolved domain.ServiceCall

	_, err := s.calls.Mutate(ctx, func(records []domain.ServiceCall) ([]domain.ServiceCall, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			if records[i].Status == domain.CallResolved {
				resolved = records[i]
				return nil, signalbus.ErrNoChange
			}
			records[i].Status = domain.CallResolved
			resolved = records[i]
			return records, nil
		}
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("call %s not found", id))
	})
	if err != nil {
		return domain.ServiceCall{}, err
	}

	return resolved, nil
}
