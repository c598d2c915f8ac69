package domain

import "time"

type NotificationType string

const (
	NotificationPaymentComplete NotificationType = "payment_complete"
	NotificationBillRequest     NotificationType = "bill_request"
	NotificationTableChanged    NotificationType = "table_changed"
)

// Notification is a transient signal between panels. The consumer removes it
// before acting on it.
type Notification struct {
	ID            string           `json:"id"`
	Type          NotificationType `json:"type"`
	TableNumber   int              `json:"tableNumber"`
	OrderID       string           `json:"orderId,omitempty"`
	PaymentID     string           `json:"paymentId,omitempty"`
	BillRequestID string           `json:"billRequestId,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}
