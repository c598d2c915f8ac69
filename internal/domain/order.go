package domain

import "time"

type OrderStatus string

const (
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsOpen reports whether an order in this status still accepts items and payments.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusPreparing || s == OrderStatusReady
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPreparing: {OrderStatusReady, OrderStatusPaid, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusPreparing, OrderStatusPaid, OrderStatusCancelled},
}

// CanTransitionTo reports whether the state machine allows s -> next.
// paid and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ItemStatus string

const (
	ItemStatusPreparing ItemStatus = "preparing"
	ItemStatusReady     ItemStatus = "ready"
	ItemStatusServed    ItemStatus = "served"
)

// OrderItem is the snapshot of a cart line taken when it was committed to an
// order. Only Status may change afterwards.
type OrderItem struct {
	ItemID   string     `json:"itemId"`
	Name     string     `json:"name"`
	Quantity int        `json:"quantity"`
	Price    float64    `json:"price"`
	Notes    string     `json:"notes,omitempty"`
	Status   ItemStatus `json:"status"`
}

func (i OrderItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

type Order struct {
	ID          string      `json:"id"`
	TableNumber int         `json:"tableNumber"`
	Items       []OrderItem `json:"items"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"totalAmount"`
	CreatedAt   time.Time   `json:"createdAt"`
	OrderTime   time.Time   `json:"orderTime"`
}

// Recalculate derives TotalAmount from the embedded items.
func (o *Order) Recalculate() {
	total := 0.0
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	o.TotalAmount = RoundCents(total)
}

// AppendItems merges a new batch into the order and touches OrderTime.
func (o *Order) AppendItems(items []OrderItem, at time.Time) {
	o.Items = append(o.Items, items...)
	o.Recalculate()
	o.OrderTime = at
}
