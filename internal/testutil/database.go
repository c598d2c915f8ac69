package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the masapp_test database on localhost:3306 and skips the
// test when it is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/masapp_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.Ping()
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties the tables and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"signal_collections"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema the stores expect.
func SetupTestTables(t *testing.T, db *sql.DB) {
	createSignalCollectionsTable := `
	CREATE TABLE IF NOT EXISTS signal_collections (
		name VARCHAR(64) NOT NULL PRIMARY KEY,
		revision BIGINT NOT NULL,
		payload JSON NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`

	if _, err := db.Exec(createSignalCollectionsTable); err != nil {
		t.Logf("failed to create table signal_collections: %v", err)
	}
}
