package domain

import "time"

type Requester string

const (
	RequestedByCustomer Requester = "customer"
	RequestedByWaiter   Requester = "waiter"
)

type BillRequestStatus string

const (
	BillRequestPending      BillRequestStatus = "pending"
	BillRequestAcknowledged BillRequestStatus = "acknowledged"
)

type BillRequest struct {
	ID             string            `json:"id"`
	OrderID        string            `json:"orderId"`
	TableNumber    int               `json:"tableNumber"`
	RequestedTotal float64           `json:"requestedTotal"`
	RequestedBy    Requester         `json:"requestedBy"`
	CreatedAt      time.Time         `json:"createdAt"`
	Status         BillRequestStatus `json:"status"`
}
