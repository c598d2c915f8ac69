package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ChangeNudge announces that a bus collection reached a new revision.
type ChangeNudge struct {
	Collection string    `json:"collection"`
	Revision   int64     `json:"revision"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Nudger fans collection changes out to every process bound to the
// exchange so their subscriptions poll right away.
type Nudger struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	origin   string
	logger   *zap.Logger
}

func Dial(url, exchange string, logger *zap.Logger) (*Nudger, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	return &Nudger{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		origin:   uuid.New().String(),
		logger:   logger,
	}, nil
}

func (n *Nudger) Nudge(ctx context.Context, collection string, revision int64) error {
	body, err := json.Marshal(ChangeNudge{
		Collection: collection,
		Revision:   revision,
		Origin:     n.origin,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal nudge: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return n.ch.PublishWithContext(pubCtx, n.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
}

// Listen binds a private queue to the exchange and calls wake for every
// nudge sent by another process. It returns when ctx is done or the
// delivery channel closes.
func (n *Nudger) Listen(ctx context.Context, wake func(collection string)) error {
	q, err := n.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declaring nudge queue: %w", err)
	}
	if err := n.ch.QueueBind(q.Name, "", n.exchange, false, nil); err != nil {
		return fmt.Errorf("binding nudge queue: %w", err)
	}

	deliveries, err := n.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming nudges: %w", err)
	}

	n.logger.Info("listening for bus nudges", zap.String("exchange", n.exchange), zap.String("queue", q.Name))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("nudge deliveries closed")
			}
			n.handle(d.Body, wake)
		}
	}
}

func (n *Nudger) handle(body []byte, wake func(collection string)) {
	var nudge ChangeNudge
	if err := json.Unmarshal(body, &nudge); err != nil {
		n.logger.Warn("dropping malformed nudge", zap.Error(err))
		return
	}
	if nudge.Origin == n.origin || nudge.Collection == "" {
		return
	}
	n.logger.Debug("nudge received", zap.String("collection", nudge.Collection), zap.Int64("revision", nudge.Revision))
	wake(nudge.Collection)
}

func (n *Nudger) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
