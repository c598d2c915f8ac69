package panel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"masapp/internal/cart"
	"masapp/internal/signalbus"
)

// Registry hands out one Customer per table. A customer watches the
// notifications collection only while its table has an order in the
// kitchen, so tables that are merely looked at cost no goroutine.
type Registry struct {
	mu       sync.Mutex
	ctx      context.Context
	carts    *cart.Registry
	orders   OrderCoordinator
	bills    BillRequester
	inbox    NotificationConsumer
	bus      *signalbus.Bus
	interval time.Duration
	logger   *zap.Logger

	panels map[int]*Customer
}

func NewRegistry(ctx context.Context, carts *cart.Registry, orders OrderCoordinator, bills BillRequester, inbox NotificationConsumer, bus *signalbus.Bus, interval time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		ctx:      ctx,
		carts:    carts,
		orders:   orders,
		bills:    bills,
		inbox:    inbox,
		bus:      bus,
		interval: interval,
		logger:   logger,
		panels:   make(map[int]*Customer),
	}
}

// ForTable returns the table's panel, creating it on first use.
func (r *Registry) ForTable(table int) *Customer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.panels[table]; ok {
		return c
	}

	c := NewCustomer(r.carts.ForTable(table), r.orders, r.bills, r.inbox, r.bus, r.logger)
	c.autoWatch(r.ctx, r.interval)
	r.panels[table] = c
	return c
}

// Snapshot reads the table's cart without creating a panel for it.
func (r *Registry) Snapshot(table int) cart.Snapshot {
	return r.carts.Snapshot(table)
}

// Lookup returns the table's panel without creating one.
func (r *Registry) Lookup(table int) (*Customer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.panels[table]
	return c, ok
}

// Close stops every running watch and waits for them to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	panels := make([]*Customer, 0, len(r.panels))
	for _, c := range r.panels {
		panels = append(panels, c)
	}
	r.mu.Unlock()

	r.logger.Info("closing table panels", zap.Int("panels", len(panels)), zap.Int("watching", r.watching()))
	for _, c := range panels {
		c.closeWatch()
	}
}

func (r *Registry) watching() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.panels {
		if c.watching() {
			n++
		}
	}
	return n
}
