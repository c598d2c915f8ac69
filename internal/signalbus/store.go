package signalbus

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	CollectionOrders        = "orders"
	CollectionCalls         = "calls"
	CollectionNotifications = "notifications"
	CollectionPayments      = "payments"
	CollectionBillRequests  = "bill_requests"
)

// ErrRevisionConflict is returned by Store.Write when the collection moved
// past the revision the caller read.
var ErrRevisionConflict = errors.New("signalbus: revision conflict")

// Snapshot is a whole collection at one revision. Revision 0 means the
// collection has never been written.
type Snapshot struct {
	Collection string          `json:"collection"`
	Revision   int64           `json:"revision"`
	Records    json.RawMessage `json:"records"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Store is the shared key/value space behind the bus. Collections are small
// and always read and written whole.
type Store interface {
	Read(ctx context.Context, collection string) (Snapshot, error)
	// Write replaces the collection if its revision still equals
	// expectedRevision and returns the new revision.
	Write(ctx context.Context, collection string, expectedRevision int64, records json.RawMessage) (int64, error)
}
