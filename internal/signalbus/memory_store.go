package signalbus

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	revision  int64
	records   json.RawMessage
	updatedAt time.Time
}

// MemoryStore keeps collections in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]memoryEntry
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]memoryEntry),
		now:         time.Now,
	}
}

func (s *MemoryStore) Read(ctx context.Context, collection string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry := s.collections[collection]
	return Snapshot{
		Collection: collection,
		Revision:   entry.revision,
		Records:    append(json.RawMessage(nil), entry.records...),
		UpdatedAt:  entry.updatedAt,
	}, nil
}

func (s *MemoryStore) Write(ctx context.Context, collection string, expectedRevision int64, records json.RawMessage) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.collections[collection]
	if entry.revision != expectedRevision {
		return entry.revision, ErrRevisionConflict
	}

	next := memoryEntry{
		revision:  entry.revision + 1,
		records:   append(json.RawMessage(nil), records...),
		updatedAt: s.now().UTC(),
	}
	s.collections[collection] = next
	return next.revision, nil
}
