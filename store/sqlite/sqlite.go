/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence contract of the engine using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  generic.LedgerStore:    Credit ledger (append-only)
  generic.Directory:      Officers and user accounts
  generic.HistoryLog:     Audit trail
  generic.Notifier:       Notification inbox
  leave.TxRepository:     Leave records with optimistic versioning
  leave.CommentStore:     Comments on leave records
  vacation.Store:         Vacation blocks
  schedule.Store:         Agenda events
  conflict.*Source:       Commitment lookups for the conflict checker

APPEND-ONLY ENFORCEMENT:
  credit_entries, leave_comments and history are append-only. Triggers
  abort any UPDATE or DELETE on credit_entries. Corrections are new
  entries with the opposite sign.

KEY TABLES:
  credit_entries:   Immutable ledger of credit adjustments
  leaves:           Leave records (never deleted; status carries deletion)
  leave_comments:   Comment thread per leave
  officers, users:  Directory
  vacations:        Vacation blocks
  events:           Agenda, with event_participants
  history:          Before/after snapshots of every transition
  notifications:    Per-user inbox

INDEXES:
  - idx_unique_active_leave: one occupying leave per officer and day
  - idx_credit_officer_year: balance computation (hot path)
  - idx_leaves_officer_date: conflict checks and balance consumption
  - idx_vacations_officer_span: overlap lookups

CONCURRENCY:
  The pool is limited to one connection, so transactions serialize and
  ":memory:" databases are shared by every caller. Leave updates also carry
  a version compare-and-swap, so a read-modify-write that raced another
  writer fails with generic.ErrConcurrentModification instead of silently
  overwriting it.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: leave persistence contracts
  - generic/ledger.go: ledger contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/leave-engine/conflict"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/schedule"
	"github.com/warp/leave-engine/vacation"
)

var (
	_ leave.TxRepository      = (*Store)(nil)
	_ leave.CommentStore      = (*Store)(nil)
	_ generic.Directory       = (*Store)(nil)
	_ generic.HistoryLog      = (*Store)(nil)
	_ generic.Notifier        = (*Store)(nil)
	_ vacation.Store          = (*Store)(nil)
	_ vacation.TxStore        = (*Store)(nil)
	_ schedule.Store          = (*Store)(nil)
	_ conflict.VacationSource = (*Store)(nil)
	_ conflict.LeaveSource    = (*Store)(nil)
	_ conflict.EventSource    = (*Store)(nil)
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn carries every store operation over a querier. Store embeds one
// bound to the database; WithTx hands out one bound to the transaction.
type conn struct {
	q querier
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	conn
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{conn: conn{q: db}, db: db}
	if err := store.migrate(context.Background()); err != nil {
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
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
	-- Directory
	CREATE TABLE IF NOT EXISTS officers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		registration TEXT NOT NULL DEFAULT '',
		rank TEXT NOT NULL DEFAULT '',
		platoon TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		officer_id TEXT,
		platoon TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_officer
		ON users(officer_id) WHERE officer_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_users_role_platoon
		ON users(role, platoon);

	-- Credit ledger (append-only)
	CREATE TABLE IF NOT EXISTS credit_entries (
		id TEXT PRIMARY KEY,
		officer_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		delta INTEGER NOT NULL CHECK (delta <> 0),
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_by_name TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_credit_officer_year
		ON credit_entries(officer_id, year, created_at);

	CREATE TRIGGER IF NOT EXISTS trg_credit_entries_no_update
		BEFORE UPDATE ON credit_entries
		BEGIN SELECT RAISE(ABORT, 'credit_entries is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS trg_credit_entries_no_delete
		BEFORE DELETE ON credit_entries
		BEGIN SELECT RAISE(ABORT, 'credit_entries is append-only'); END;

	-- Leave records
	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		officer_id TEXT NOT NULL,
		officer_name TEXT NOT NULL,
		registration TEXT NOT NULL DEFAULT '',
		platoon TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		approval TEXT NOT NULL,
		reason_json TEXT NOT NULL,
		reason_text TEXT NOT NULL,
		created_by TEXT NOT NULL,
		responsible_sergeant_id TEXT,
		sergeant_id TEXT,
		admin_id TEXT,
		exchanged_to_date TEXT,
		sergeant_opinion TEXT,
		admin_opinion TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	-- CRITICAL: an officer cannot hold two occupying leaves on the same day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_active_leave
		ON leaves(officer_id, date)
		WHERE status = 'ACTIVE' AND approval NOT IN ('DENIED_BY_SERGEANT', 'REJECTED_BY_ADMIN');

	CREATE INDEX IF NOT EXISTS idx_leaves_officer_date
		ON leaves(officer_id, date);
	CREATE INDEX IF NOT EXISTS idx_leaves_platoon_date
		ON leaves(platoon, date);
	CREATE INDEX IF NOT EXISTS idx_leaves_approval
		ON leaves(approval);

	CREATE TABLE IF NOT EXISTS leave_comments (
		id TEXT PRIMARY KEY,
		leave_id TEXT NOT NULL REFERENCES leaves(id),
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		author_rank TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_comments_leave
		ON leave_comments(leave_id, created_at);

	-- Vacations
	CREATE TABLE IF NOT EXISTS vacations (
		id TEXT PRIMARY KEY,
		officer_id TEXT NOT NULL,
		officer_name TEXT NOT NULL DEFAULT '',
		reference_year INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		duration_days INTEGER NOT NULL CHECK (duration_days IN (15, 30)),
		status TEXT NOT NULL,
		change_reason TEXT,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vacations_officer_span
		ON vacations(officer_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_vacations_officer_year
		ON vacations(officer_id, reference_year);

	-- Agenda
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		location TEXT,
		description TEXT,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);

	CREATE TABLE IF NOT EXISTS event_participants (
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		officer_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (event_id, officer_id)
	);

	CREATE INDEX IF NOT EXISTS idx_event_participants_officer
		ON event_participants(officer_id);

	-- Audit trail
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_name TEXT NOT NULL DEFAULT '',
		subject_id TEXT NOT NULL,
		before_json TEXT,
		after_json TEXT,
		motive TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_subject ON history(subject_id, at);

	-- Notification inbox
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		created_at TEXT NOT NULL,
		read_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications(user_id, created_at DESC);
`

// =============================================================================
// TRANSACTIONAL STORE (leave.TxRepository interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(repo leave.Repository) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// atomically runs fn in a transaction unless c is already bound to one.
func (c *conn) atomically(ctx context.Context, fn func(tc *conn) error) error {
	db, ok := c.q.(*sql.DB)
	if !ok {
		return fn(c)
	}
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Reset drops every table and recreates the schema. Development only.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"notifications", "history", "event_participants", "events", "vacations",
		"leave_comments", "leaves", "credit_entries", "users", "officers",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
			return fmt.Errorf("failed to drop %s: %w", t, err)
		}
	}
	return s.migrate(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

const timestampLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timestampLayout, s)
	return t
}

func formatDate(d generic.Date) string {
	return d.String()
}

func parseDate(s string) generic.Date {
	if s == "" {
		return generic.Date{}
	}
	d, _ := generic.ParseDate(s)
	return d
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
