package signalbus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDuplicateEntry = 1062
	mysqlErrLockWait       = 1205
	mysqlErrDeadlock       = 1213
)

// MySQLStore keeps every collection as one JSON row in signal_collections.
// The revision column is the optimistic lock.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: time.Now}
}

func (s *MySQLStore) Read(ctx context.Context, collection string) (Snapshot, error) {
	query := `
		SELECT revision, payload, updated_at
		FROM signal_collections
		WHERE name = ?
	`

	snap := Snapshot{Collection: collection}
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, collection).Scan(&snap.Revision, &payload, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	snap.Records = json.RawMessage(payload)
	return snap, nil
}

func (s *MySQLStore) Write(ctx context.Context, collection string, expectedRevision int64, records json.RawMessage) (int64, error) {
	if len(records) == 0 {
		records = json.RawMessage("[]")
	}
	now := s.now().UTC()

	if expectedRevision == 0 {
		query := `INSERT INTO signal_collections (name, revision, payload, updated_at) VALUES (?, 1, ?, ?)`
		if _, err := s.db.ExecContext(ctx, query, collection, []byte(records), now); err != nil {
			if isRetryable(err) {
				return 0, fmt.Errorf("%w: %v", ErrRevisionConflict, err)
			}
			return 0, fmt.Errorf("inserting collection %s: %w", collection, err)
		}
		return 1, nil
	}

	query := `
		UPDATE signal_collections
		SET revision = revision + 1, payload = ?, updated_at = ?
		WHERE name = ? AND revision = ?
	`
	result, err := s.db.ExecContext(ctx, query, []byte(records), now, collection, expectedRevision)
	if err != nil {
		if isRetryable(err) {
			return 0, fmt.Errorf("%w: %v", ErrRevisionConflict, err)
		}
		return 0, fmt.Errorf("updating collection %s: %w", collection, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, ErrRevisionConflict
	}

	return expectedRevision + 1, nil
}

// isRetryable reports MySQL errors that mean another writer got there first.
func isRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry, mysqlErrLockWait, mysqlErrDeadlock:
			return true
		}
	}
	return false
}
