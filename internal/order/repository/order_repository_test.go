package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"masapp/internal/domain"
	"masapp/internal/errors"
	"masapp/internal/signalbus"
)

func newTestRepository() *BusOrderRepository {
	return NewBusOrderRepository(signalbus.New(signalbus.NewMemoryStore(), zap.NewNop()))
}

func TestOrderRepository_UpdateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	err := repo.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		return append(orders,
			domain.Order{ID: "o-1", TableNumber: 1, Status: domain.OrderStatusPreparing, TotalAmount: 120},
			domain.Order{ID: "o-2", TableNumber: 2, Status: domain.OrderStatusReady, TotalAmount: 30},
		), nil
	})
	require.NoError(t, err)

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	order, err := repo.FindByID(ctx, "o-2")
	require.NoError(t, err)
	assert.Equal(t, 2, order.TableNumber)
	assert.Equal(t, domain.OrderStatusReady, order.Status)
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	order, err := newTestRepository().FindByID(context.Background(), "missing")

	assert.Nil(t, order)
	nfe, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, nfe)
}

func TestOrderRepository_UpdateErrorLeavesCollection(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	err := repo.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		return nil, errors.NewConflictError("nope")
	})
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
