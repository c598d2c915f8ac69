package domain

import "time"

type CallType string

const (
	CallWaiter     CallType = "waiter_call"
	CallWater      CallType = "water_request"
	CallBill       CallType = "bill_request"
	CallCleanTable CallType = "clean_request"
)

func (t CallType) Valid() bool {
	switch t {
	case CallWaiter, CallWater, CallBill, CallCleanTable:
		return true
	}
	return false
}

type CallStatus string

const (
	CallPending  CallStatus = "pending"
	CallResolved CallStatus = "resolved"
)

type ServiceCall struct {
	ID          string     `json:"id"`
	Type        CallType   `json:"type"`
	TableNumber int        `json:"tableNumber"`
	Message     string     `json:"message"`
	Timestamp   time.Time  `json:"timestamp"`
	Status      CallStatus `json:"status"`
}
