package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// Compile-time interface check.
var _ types.Store = (*Store)(nil)

// DefaultName is the database name used when Options.Name is empty.
const DefaultName = "gourmet"

// Options configures Open.
type Options struct {
	DataDir string        // Directory holding <Name>.db; created if missing.
	Name    string        // Database name; DefaultName when empty.
	Version int           // Target schema version; SchemaVersion when zero.
	Upgrade UpgradeFunc   // Schema upgrade handler; CreateRecordsContainer when nil.
	Logger  zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.DataDir == "" {
		o.DataDir = "."
	}
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Version == 0 {
		o.Version = SchemaVersion
	}
	if o.Upgrade == nil {
		o.Upgrade = CreateRecordsContainer
	}
	return o
}

// Store is a types.Store backed by a single SQLite file. Each record is one
// row holding its key and its JSON body.
type Store struct {
	mu     sync.RWMutex
	closed bool
	db     *sql.DB
	path   string
	log    zerolog.Logger
}

// Open opens or creates the store and runs the upgrade handler when the
// stored schema version is older than opts.Version. Failures wrap
// types.ErrStoreUnavailable.
func Open(ctx context.Context, opts Options) (*Store, error) {
	opts = opts.withDefaults()
	path := filepath.Join(opts.DataDir, opts.Name+".db")
	log := opts.Logger.With().Str("store", path).Logger()

	db, err := openDB(ctx, path, opts)
	if err != nil {
		log.Error().Err(err).Msg("record store unavailable")
		return nil, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}

	log.Debug().Int("version", opts.Version).Msg("record store open")
	return &Store{db: db, path: path, log: log}, nil
}

func openDB(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes every operation and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := upgrade(ctx, db, opts); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// upgrade compares PRAGMA user_version with the requested version and runs
// the upgrade handler in one transaction when the store is behind.
func upgrade(ctx context.Context, db *sql.DB, opts Options) error {
	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if current > opts.Version {
		return fmt.Errorf("stored schema version %d is newer than %d", current, opts.Version)
	}
	if current == opts.Version {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upgrade: %w", err)
	}
	defer tx.Rollback()

	if err := opts.Upgrade(ctx, tx, current); err != nil {
		return fmt.Errorf("upgrading schema from %d: %w", current, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", opts.Version)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upgrade: %w", err)
	}
	opts.Logger.Info().Int("from", current).Int("to", opts.Version).Msg("schema upgraded")
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// GetAll returns every document ordered by key.
func (s *Store) GetAll(ctx context.Context) ([]types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, types.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}
	defer rows.Close()

	docs := []types.Document{}
	for rows.Next() {
		var doc types.Document
		var body string
		if err := rows.Scan(&doc.ID, &body); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		doc.Body = []byte(body)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return docs, nil
}

// Get returns the document stored under id.
func (s *Store) Get(ctx context.Context, id int64) (types.Document, error) {
	if id <= 0 {
		return types.Document{}, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.Document{}, types.ErrStoreClosed
	}

	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM records WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Document{}, types.ErrNotFound
	}
	if err != nil {
		return types.Document{}, fmt.Errorf("getting record %d: %w", id, err)
	}
	return types.Document{ID: id, Body: []byte(body)}, nil
}

// Add inserts body and returns the key SQLite assigned.
func (s *Store) Add(ctx context.Context, body []byte) (int64, error) {
	if err := checkBody(body); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, types.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO records (body) VALUES (?)", string(body))
	if err != nil {
		return 0, fmt.Errorf("adding record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading assigned id: %w", err)
	}
	s.log.Debug().Int64("id", id).Msg("record added")
	return id, nil
}

// Put stores body under id, inserting or replacing.
func (s *Store) Put(ctx context.Context, id int64, body []byte) (int64, error) {
	if id <= 0 {
		return 0, types.ErrInvalidID
	}
	if err := checkBody(body); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, types.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, body) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body`,
		id, string(body))
	if err != nil {
		return 0, fmt.Errorf("putting record %d: %w", id, err)
	}
	s.log.Debug().Int64("id", id).Msg("record put")
	return id, nil
}

// Delete removes the document stored under id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	s.log.Debug().Int64("id", id).Msg("record deleted")
	return nil
}

// Close releases the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// checkBody rejects anything that is not a JSON object.
func checkBody(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return types.ErrInvalidData
	}
	return nil
}
