package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodMobile PaymentMethod = "mobile"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobile:
		return true
	}
	return false
}

// Payment is append-only: once written it is never mutated or removed.
type Payment struct {
	ID          string        `json:"id"`
	TableNumber int           `json:"tableNumber"`
	OrderID     string        `json:"orderId"`
	Amount      float64       `json:"amount"`
	Method      PaymentMethod `json:"method"`
	PayerName   string        `json:"payerName,omitempty"`
	Items       []OrderItem   `json:"items,omitempty"`
	IsPartial   bool          `json:"isPartial"`
	Timestamp   time.Time     `json:"timestamp"`
}
