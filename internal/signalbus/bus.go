package signalbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 5
)

// ErrNoChange lets an update function decline to write.
var ErrNoChange = errors.New("signalbus: no change")

// Nudger tells other processes that a collection moved. It is a hint only;
// subscribers still learn the new state by polling.
type Nudger interface {
	Nudge(ctx context.Context, collection string, revision int64) error
}

type Option func(*Bus)

func WithMaxAttempts(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

func WithBackoff(base time.Duration) Option {
	return func(b *Bus) {
		b.backoffBase = base
	}
}

func WithNudger(n Nudger) Option {
	return func(b *Bus) {
		b.nudger = n
	}
}

type Bus struct {
	store       Store
	logger      *zap.Logger
	maxAttempts int
	backoffBase time.Duration
	nudger      Nudger

	mu     sync.Mutex
	wakers map[string]map[chan struct{}]struct{}
}

func New(store Store, logger *zap.Logger, opts ...Option) *Bus {
	b := &Bus{
		store:       store,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		backoffBase: 20 * time.Millisecond,
		wakers:      make(map[string]map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Read(ctx context.Context, collection string) (Snapshot, error) {
	return b.store.Read(ctx, collection)
}

// Update runs read-modify-write against the latest revision and retries when
// another writer won the race. fn may run more than once and must not have
// side effects outside its return value. If fn returns ErrNoChange nothing is
// written; any other error aborts the update and is returned unchanged.
func (b *Bus) Update(ctx context.Context, collection string, fn func(records json.RawMessage) (json.RawMessage, error)) (int64, error) {
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		snap, err := b.store.Read(ctx, collection)
		if err != nil {
			b.logger.Error("reading collection failed", zap.String("collection", collection), zap.Error(err))
			return 0, err
		}

		next, err := fn(snap.Records)
		if errors.Is(err, ErrNoChange) {
			return snap.Revision, nil
		}
		if err != nil {
			return 0, err
		}

		revision, err := b.store.Write(ctx, collection, snap.Revision, next)
		if err == nil {
			b.afterWrite(ctx, collection, revision)
			return revision, nil
		}
		if !errors.Is(err, ErrRevisionConflict) {
			b.logger.Error("writing collection failed", zap.String("collection", collection), zap.Error(err))
			return 0, err
		}

		b.logger.Warn("revision conflict, retrying",
			zap.String("collection", collection),
			zap.Int64("readRevision", snap.Revision),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", b.maxAttempts),
		)
		if attempt < b.maxAttempts {
			if err := b.sleep(ctx, attempt); err != nil {
				return 0, err
			}
		}
	}

	return 0, fmt.Errorf("%w: collection %s after %d attempts", ErrRevisionConflict, collection, b.maxAttempts)
}

// Replace overwrites the collection with records whatever other writers did
// in between: the last writer wins.
func (b *Bus) Replace(ctx context.Context, collection string, records json.RawMessage) (int64, error) {
	return b.Update(ctx, collection, func(json.RawMessage) (json.RawMessage, error) {
		return records, nil
	})
}

// Wake makes every subscription on collection poll now instead of waiting for
// its next tick.
func (b *Bus) Wake(collection string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.wakers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *Bus) afterWrite(ctx context.Context, collection string, revision int64) {
	b.Wake(collection)

	if b.nudger == nil {
		return
	}
	if err := b.nudger.Nudge(ctx, collection, revision); err != nil {
		b.logger.Warn("nudge failed", zap.String("collection", collection), zap.Int64("revision", revision), zap.Error(err))
	}
}

func (b *Bus) sleep(ctx context.Context, attempt int) error {
	base := b.backoffBase * time.Duration(attempt)
	if base <= 0 {
		return nil
	}
	// up to +20% jitter
	wait := base + time.Duration(rand.Int63n(int64(base)/5+1))

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *Bus) addWaker(collection string, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wakers[collection] == nil {
		b.wakers[collection] = make(map[chan struct{}]struct{})
	}
	b.wakers[collection][ch] = struct{}{}
}

func (b *Bus) removeWaker(collection string, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.wakers[collection], ch)
	if len(b.wakers[collection]) == 0 {
		delete(b.wakers, collection)
	}
}
