package signalbus

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view over one bus collection holding a JSON array
// of T.
type Collection[T any] struct {
	bus  *Bus
	name string
}

func NewCollection[T any](bus *Bus, name string) *Collection[T] {
	return &Collection[T]{bus: bus, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

// Load returns the records and the revision they were read at.
func (c *Collection[T]) Load(ctx context.Context) ([]T, int64, error) {
	snap, err := c.bus.Read(ctx, c.name)
	if err != nil {
		return nil, 0, err
	}

	records, err := Decode[T](snap.Records)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", c.name, err)
	}
	return records, snap.Revision, nil
}

// Mutate applies fn to the current records under optimistic concurrency.
// fn may be invoked again after a conflict, always with fresh records.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(records []T) ([]T, error)) (int64, error) {
	return c.bus.Update(ctx, c.name, func(raw json.RawMessage) (json.RawMessage, error) {
		records, err := Decode[T](raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", c.name, err)
		}

		next, err := fn(records)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []T{}
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", c.name, err)
		}
		return encoded, nil
	})
}

// Decode parses a stored collection. An empty or null payload is an empty
// collection.
func Decode[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}
