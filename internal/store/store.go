// Package store is the persistence layer: users, one-shot tasks and
// interval reminders in a single SQLite database. All mutations are targeted
// updates keyed by item id (and owner id where an owner acts), so concurrent
// sweeps over disjoint item sets never contend.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Recurrence is an optional repeat rule on a one-shot task.
type Recurrence string

const (
	RecurrenceNone   Recurrence = ""
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

// NextDue advances a due moment by one recurrence period. The advance is
// relative to the fired occurrence's own due, not to the sweep clock.
func (r Recurrence) NextDue(due time.Time) (time.Time, bool) {
	switch r {
	case RecurrenceDaily:
		return due.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return due.AddDate(0, 0, 7), true
	}
	return time.Time{}, false
}

// Task is one occurrence of a scheduled to-do item. Recurrence is append-only:
// when a recurring task fires, a fresh row is created for the next occurrence
// and the fired row keeps its history.
type Task struct {
	ID         int64
	UserID     int64
	Title      string
	Due        *time.Time
	Recurrence Recurrence
	Done       bool
	Notified   bool
	CreatedAt  time.Time
}

// Reminder is a recurring interval reminder ("every N minutes").
type Reminder struct {
	ID           int64
	UserID       int64
	Text         string
	IntervalMins int
	NextFire     time.Time
	Active       bool
}

// Subscription is a user's premium state.
type Subscription struct {
	Premium   bool
	SubEnd    *time.Time
	CreatedAt time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// Open opens (or creates) the database at path and runs the schema. Times are
// stored as RFC 3339 strings and read back in loc.
func Open(path string, loc *time.Location) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id    INTEGER PRIMARY KEY,
			username   TEXT,
			is_premium INTEGER DEFAULT 0,
			sub_end    TEXT,
			created_at TEXT DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL,
			title      TEXT    NOT NULL,
			due        TEXT,
			recurrence TEXT,
			is_done    INTEGER DEFAULT 0,
			notified   INTEGER DEFAULT 0,
			created_at TEXT DEFAULT (datetime('now')),
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id       INTEGER NOT NULL,
			body          TEXT    NOT NULL,
			interval_mins INTEGER NOT NULL,
			next_fire     TEXT    NOT NULL,
			is_active     INTEGER DEFAULT 1,
			created_at    TEXT DEFAULT (datetime('now')),
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) encodeTime(t time.Time) string {
	return t.In(s.loc).Format(time.RFC3339)
}

func (s *Store) decodeTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(s.loc), nil
}
