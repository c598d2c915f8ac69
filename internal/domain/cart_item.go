package domain

type CartItem struct {
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	Notes     string  `json:"notes,omitempty"`
}

func (c CartItem) LineTotal() float64 {
	return c.UnitPrice * float64(c.Quantity)
}

// Snapshot converts the cart line into the immutable form stored on an order.
func (c CartItem) Snapshot() OrderItem {
	return OrderItem{
		ItemID:   c.ItemID,
		Name:     c.Name,
		Quantity: c.Quantity,
		Price:    c.UnitPrice,
		Notes:    c.Notes,
		Status:   ItemStatusPreparing,
	}
}

func SnapshotItems(items []CartItem) []OrderItem {
	out := make([]OrderItem, len(items))
	for i, item := range items {
		out[i] = item.Snapshot()
	}
	return out
}
