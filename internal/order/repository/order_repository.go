package repository

import (
	"context"
	"fmt"

	"masapp/internal/domain"
	"masapp/internal/errors"
	"masapp/internal/signalbus"
)

// BusOrderRepository stores orders in the shared orders collection.
type BusOrderRepository struct {
	orders *signalbus.Collection[domain.Order]
}

func NewBusOrderRepository(bus *signalbus.Bus) *BusOrderRepository {
	return &BusOrderRepository{
		orders: signalbus.NewCollection[domain.Order](bus, signalbus.CollectionOrders),
	}
}

func (r *BusOrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	orders, _, err := r.orders.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading orders: %w", err)
	}
	return orders, nil
}

func (r *BusOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
}

// Update applies fn to the whole collection under the bus's optimistic lock.
func (r *BusOrderRepository) Update(ctx context.Context, fn func(orders []domain.Order) ([]domain.Order, error)) error {
	_, err := r.orders.Mutate(ctx, fn)
	return err
}
