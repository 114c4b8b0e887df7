// Package sqlite implements the record Store on top of SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version token. Bump it whenever a
// container is introduced or structurally altered. Version 1 predates the
// records container.
const SchemaVersion = 2

// recordsTable is the single record container.
const recordsTable = "records"

// Schema DDL. Keys come from AUTOINCREMENT so a deleted key is never handed
// out again.
const createRecords = `CREATE TABLE records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    body TEXT NOT NULL
);`

// UpgradeFunc migrates the schema from oldVersion to the version passed to
// Open. It runs inside the transaction that also records the new version.
type UpgradeFunc func(ctx context.Context, tx *sql.Tx, oldVersion int) error

// CreateRecordsContainer is the default upgrade handler. It is additive:
// the records table is created when missing and existing data is left alone.
func CreateRecordsContainer(ctx context.Context, tx *sql.Tx, oldVersion int) error {
	exists, err := containerExists(ctx, tx, recordsTable)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := tx.ExecContext(ctx, createRecords); err != nil {
		return fmt.Errorf("creating %s: %w", recordsTable, err)
	}
	return nil
}

// containerExists reports whether a table with the given name exists.
func containerExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		"SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking for %s: %w", name, err)
	}
	return true, nil
}
