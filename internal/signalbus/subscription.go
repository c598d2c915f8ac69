package signalbus

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Subscription is a running poll loop over one collection.
type Subscription struct {
	collection string
	cancel     context.CancelFunc
	done       chan struct{}
}

// Unsubscribe stops polling and waits for an in-flight callback to return.
// It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

// Stop ends polling without waiting for the loop to exit, so onChange may
// call it.
func (s *Subscription) Stop() {
	s.cancel()
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Collection() string {
	return s.collection
}

// Subscribe polls collection every interval and calls onChange with the
// first snapshot and then with every snapshot whose revision moved. The loop
// ends when ctx is cancelled or Unsubscribe is called. A failed read is
// logged and retried on the next tick. onChange runs on the polling
// goroutine and must not call Unsubscribe; it may call Stop.
func (b *Bus) Subscribe(ctx context.Context, collection string, interval time.Duration, onChange func(Snapshot)) *Subscription {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		collection: collection,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	wake := make(chan struct{}, 1)
	b.addWaker(collection, wake)

	go func() {
		defer close(sub.done)
		defer b.removeWaker(collection, wake)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		lastRevision := int64(-1)
		poll := func() {
			snap, err := b.store.Read(ctx, collection)
			if err != nil {
				if ctx.Err() == nil {
					b.logger.Warn("poll failed", zap.String("collection", collection), zap.Error(err))
				}
				return
			}
			if snap.Revision == lastRevision {
				return
			}
			lastRevision = snap.Revision
			onChange(snap)
		}

		poll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll()
			case <-wake:
				poll()
			}
		}
	}()

	return sub
}
