package cart

import (
	"sync"

	"masapp/internal/domain"
	"masapp/internal/pricing"
)

type Snapshot struct {
	TableNumber    int               `json:"tableNumber"`
	Items          []domain.CartItem `json:"items"`
	Preparing      []domain.CartItem `json:"preparing"`
	CouponCode     string            `json:"couponCode,omitempty"`
	TipPercentage  *int              `json:"tipPercentage,omitempty"`
	CustomTip      *float64          `json:"customTip,omitempty"`
	DonationAmount *float64          `json:"donationAmount,omitempty"`
	CustomDonation *float64          `json:"customDonation,omitempty"`
	Totals         pricing.Totals    `json:"totals"`
}

// Registry keeps one Store per table, created on first use.
type Registry struct {
	mu         sync.Mutex
	calculator *pricing.Calculator
	stores     map[int]*Store
}

func NewRegistry(calculator *pricing.Calculator) *Registry {
	return &Registry{
		calculator: calculator,
		stores:     make(map[int]*Store),
	}
}

func (r *Registry) ForTable(table int) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[table]
	if !ok {
		s = NewStore(table, r.calculator)
		r.stores[table] = s
	}
	return s
}

// Snapshot reads the table's cart without creating one; a table nobody has
// touched reads as an empty cart.
func (r *Registry) Snapshot(table int) Snapshot {
	r.mu.Lock()
	s, ok := r.stores[table]
	r.mu.Unlock()

	if !ok {
		s = NewStore(table, r.calculator)
	}
	return s.Snapshot()
}

// Tables lists the tables that currently have a cart.
func (r *Registry) Tables() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]int, 0, len(r.stores))
	for table := range r.stores {
		tables = append(tables, table)
	}
	return tables
}
