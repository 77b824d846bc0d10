/*
Package sqlite provides SQLite-backed persistence for the benefit engine.

PURPOSE:
  Three stores behind one connection:

  events:    the append-only inbound event log. Replaying it through the
             engine reproduces every aggregate; it is the system of
             record and the only migration path for old snapshots.
  snapshots: the latest serialized Person per employee, written by the
             mediator after each event. A cache over the event log.
  audit_log: the caseworker-facing processing trail, append-only.

APPEND-ONLY ENFORCEMENT:
  The event log and audit trail never see UPDATE or DELETE. Re-delivery
  of an event id is surfaced as ErrDuplicateEvent so the mediator can
  skip reprocessing.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, a single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/benefit.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  Use ":memory:" for tests.

SEE ALSO:
  - serde: produces the snapshot bytes stored here
  - mediator: the only writer
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/benefit-engine/claim"
)

// ErrDuplicateEvent is returned when an event id has been stored before.
var ErrDuplicateEvent = errors.New("event already stored")

// Store implements all persistence for the engine using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Inbound events (append-only, system of record). seq carries the
	-- insertion order a replay must use; stored_at is display metadata.
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		employee_id TEXT NOT NULL,
		employer_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		produced_at TEXT NOT NULL,
		stored_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_employee
		ON events(employee_id, seq);

	-- Latest snapshot per employee (cache over the event log)
	CREATE TABLE IF NOT EXISTS snapshots (
		employee_id TEXT PRIMARY KEY,
		schema_version INTEGER NOT NULL,
		snapshot TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Processing trail (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		at TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_employee
		ON audit_log(employee_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EVENT LOG
// =============================================================================

// EventRecord is one stored inbound event.
type EventRecord struct {
	ID         string
	EmployeeID string
	EmployerID string
	Kind       string
	Payload    []byte
	ProducedAt time.Time
	StoredAt   time.Time
}

// AppendEvent stores an inbound event. A second delivery of the same
// event id returns ErrDuplicateEvent.
func (s *Store) AppendEvent(ctx context.Context, rec EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO events (id, employee_id, employer_id, kind, payload, produced_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.EmployeeID,
		rec.EmployerID,
		rec.Kind,
		string(rec.Payload),
		rec.ProducedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// LoadEvents returns an employee's events in storage order, the order a
// replay must use.
func (s *Store) LoadEvents(ctx context.Context, employeeID string) ([]EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, employer_id, kind, payload, produced_at, stored_at
		FROM events
		WHERE employee_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		var payload, producedAt, storedAt string
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployerID, &rec.Kind, &payload, &producedAt, &storedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec.Payload = []byte(payload)
		rec.ProducedAt, _ = time.Parse(time.RFC3339, producedAt)
		rec.StoredAt, _ = time.Parse(time.RFC3339, storedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SaveSnapshot stores the latest snapshot for an employee, replacing any
// previous one.
func (s *Store) SaveSnapshot(ctx context.Context, employeeID string, schemaVersion int, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO snapshots (employee_id, schema_version, snapshot, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		employeeID,
		schemaVersion,
		string(snapshot),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the latest snapshot for an employee, or nil when
// none has been stored.
func (s *Store) LoadSnapshot(ctx context.Context, employeeID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot string
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM snapshots WHERE employee_id = ?",
		employeeID,
	).Scan(&snapshot)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return []byte(snapshot), nil
}

// ListEmployees returns every employee with a stored snapshot.
func (s *Store) ListEmployees(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id FROM snapshots ORDER BY employee_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// AppendAudit stores a batch of audit entries atomically.
func (s *Store) AppendAudit(ctx context.Context, employeeID string, entries []claim.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO audit_log (employee_id, event_id, at, level, message)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query,
			employeeID,
			entry.EventID,
			entry.At.UTC().Format(time.RFC3339),
			string(entry.Level),
			entry.Message,
		); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
	}
	return tx.Commit()
}

// LoadAudit returns an employee's audit trail in insertion order.
func (s *Store) LoadAudit(ctx context.Context, employeeID string) ([]claim.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT event_id, at, level, message
		FROM audit_log
		WHERE employee_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []claim.AuditEntry
	for rows.Next() {
		var entry claim.AuditEntry
		var at, level string
		if err := rows.Scan(&entry.EventID, &at, &level, &entry.Message); err != nil {
			return nil, err
		}
		entry.At, _ = time.Parse(time.RFC3339, at)
		entry.Level = claim.AuditLevel(level)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"events", "snapshots", "audit_log"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
