package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/signalbus"
)

// Channel is the notifications mailbox shared by every panel.
type Channel struct {
	notifications *signalbus.Collection[domain.Notification]
	logger        *zap.Logger
	now           func() time.Time
}

func NewChannel(bus *signalbus.Bus, logger *zap.Logger) *Channel {
	return &Channel{
		notifications: signalbus.NewCollection[domain.Notification](bus, signalbus.CollectionNotifications),
		logger:        logger,
		now:           time.Now,
	}
}

// Publish appends n, filling in ID and CreatedAt when empty.
func (c *Channel) Publish(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if n.TableNumber <= 0 {
		return domain.Notification{}, apperrors.NewValidationError("tableNumber must be a positive integer",
			apperrors.ValidationDetail{Field: "tableNumber", Message: "tableNumber must be a positive integer"})
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.now().UTC()
	}

	_, err := c.notifications.Mutate(ctx, func(records []domain.Notification) ([]domain.Notification, error) {
		return append(records, n), nil
	})
	if err != nil {
		return domain.Notification{}, fmt.Errorf("publishing %s notification: %w", n.Type, err)
	}

	c.logger.Info("notification published",
		zap.String("notificationId", n.ID),
		zap.String("type", string(n.Type)),
		zap.Int("tableNumber", n.TableNumber),
	)
	return n, nil
}

// List returns the pending notifications for table, or all of them when
// table is zero.
func (c *Channel) List(ctx context.Context, table int) ([]domain.Notification, error) {
	records, _, err := c.notifications.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(records, table, ""), nil
}

// Consume removes and returns the notifications of type t for table in a
// single conditional write, so a later poll cannot hand them out again.
func (c *Channel) Consume(ctx context.Context, table int, t domain.NotificationType) ([]domain.Notification, error) {
	var consumed []domain.Notification

	_, err := c.notifications.Mutate(ctx, func(records []domain.Notification) ([]domain.Notification, error) {
		consumed = nil
		kept := make([]domain.Notification, 0, len(records))
		for _, n := range records {
			if n.TableNumber == table && n.Type == t {
				consumed = append(consumed, n)
				continue
			}
			kept = append(kept, n)
		}
		if len(consumed) == 0 {
			return nil, signalbus.ErrNoChange
		}
		return kept, nil
	})
	if err != nil {
		return nil, fmt.Errorf("consuming %s notifications: %w", t, err)
	}

	if len(consumed) > 0 {
		c.logger.Info("notifications consumed",
			zap.String("type", string(t)),
			zap.Int("tableNumber", table),
			zap.Int("count", len(consumed)),
		)
	}
	return consumed, nil
}

// Filter selects by table (zero = any) and type (empty = any).
func Filter(records []domain.Notification, table int, t domain.NotificationType) []domain.Notification {
	out := []domain.Notification{}
	for _, n := range records {
		if table != 0 && n.TableNumber != table {
			continue
		}
		if t != "" && n.Type != t {
			continue
		}
		out = append(out, n)
	}
	return out
}
