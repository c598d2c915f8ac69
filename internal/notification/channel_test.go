package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/signalbus"
)

func newTestChannel() *Channel {
	return NewChannel(signalbus.New(signalbus.NewMemoryStore(), zap.NewNop()), zap.NewNop())
}

func TestPublish_FillsIdentity(t *testing.T) {
	ctx := context.Background()
	ch := newTestChannel()

	n, err := ch.Publish(ctx, domain.Notification{Type: domain.NotificationPaymentComplete, TableNumber: 4, OrderID: "o-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.CreatedAt.IsZero())

	listed, err := ch.List(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []domain.Notification{n}, listed)
}

func TestPublish_RejectsMissingTable(t *testing.T) {
	_, err := newTestChannel().Publish(context.Background(), domain.Notification{Type: domain.NotificationBillRequest})

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestConsume_IsAtMostOnce(t *testing.T) {
	ctx := context.Background()
	ch := newTestChannel()

	_, err := ch.Publish(ctx, domain.Notification{Type: domain.NotificationPaymentComplete, TableNumber: 4})
	require.NoError(t, err)
	_, err = ch.Publish(ctx, domain.Notification{Type: domain.NotificationBillRequest, TableNumber: 4})
	require.NoError(t, err)
	_, err = ch.Publish(ctx, domain.Notification{Type: domain.NotificationPaymentComplete, TableNumber: 9})
	require.NoError(t, err)

	first, err := ch.Consume(ctx, 4, domain.NotificationPaymentComplete)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := ch.Consume(ctx, 4, domain.NotificationPaymentComplete)
	require.NoError(t, err)
	assert.Empty(t, second)

	rest, err := ch.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestConsume_ConcurrentConsumersSplitNotifications(t *testing.T) {
	ctx := context.Background()
	ch := newTestChannel()
	_, err := ch.Publish(ctx, domain.Notification{Type: domain.NotificationPaymentComplete, TableNumber: 2})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := ch.Consume(ctx, 2, domain.NotificationPaymentComplete)
			if err == nil {
				results[i] = len(got)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for _, n := range results {
		total += n
	}
	assert.Equal(t, 1, total)
}

func TestFilter(t *testing.T) {
	records := []domain.Notification{
		{ID: "a", Type: domain.NotificationBillRequest, TableNumber: 1},
		{ID: "b", Type: domain.NotificationPaymentComplete, TableNumber: 1},
		{ID: "c", Type: domain.NotificationBillRequest, TableNumber: 2},
	}

	assert.Len(t, Filter(records, 0, ""), 3)
	assert.Len(t, Filter(records, 1, ""), 2)
	assert.Len(t, Filter(records, 0, domain.NotificationBillRequest), 2)
	assert.Equal(t, "b", Filter(records, 1, domain.NotificationPaymentComplete)[0].ID)
}
