// Package storage keeps the admin audit journal in SQLite. Board contents are
// never written here; rooms live only in memory.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultBusyTimeout = 5000
	defaultListLimit   = 100
)

// Store wraps the SQLite handle and exposes helper methods used by the server.
type Store struct {
	db *sql.DB
}

// Admin action names as recorded in the journal.
const (
	ActionUndo       = "admin-undo"
	ActionRedo       = "admin-redo"
	ActionClearAll   = "admin-clear-all"
	ActionKick       = "admin-kick"
	ActionTransfer   = "admin-transfer"
	ActionSuccession = "succession"
)

// AdminAction is a row in the admin_actions table.
type AdminAction struct {
	ID        int64     `json:"id"`
	RoomID    string    `json:"roomId"`
	ActorID   string    `json:"actorId"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrInvalidAction is returned for journal rows missing a room or action.
var ErrInvalidAction = errors.New("invalid admin action")

// NewStore initializes the SQLite database at the provided path. Call Close when done.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "sketchroom.db"
	}
	dsn := buildDSN(path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS admin_actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			action TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_admin_actions_room ON admin_actions(room_id, id);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordAdminAction appends one row and returns its id.
func (s *Store) RecordAdminAction(ctx context.Context, action AdminAction) (int64, error) {
	if action.RoomID == "" || action.Action == "" {
		return 0, ErrInvalidAction
	}
	createdAt := action.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_actions (room_id, actor_id, action, target, created_at) VALUES (?, ?, ?, ?, ?)`,
		action.RoomID, action.ActorID, action.Action, action.Target, createdAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", action.Action, err)
	}
	return res.LastInsertId()
}

// ListAdminActions returns the newest actions for roomID first. A non-positive
// limit falls back to a default page size.
func (s *Store) ListAdminActions(ctx context.Context, roomID string, limit int) ([]AdminAction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, actor_id, action, target, created_at FROM admin_actions
		 WHERE room_id = ? ORDER BY id DESC LIMIT ?`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	actions := []AdminAction{}
	for rows.Next() {
		var action AdminAction
		if err := rows.Scan(&action.ID, &action.RoomID, &action.ActorID, &action.Action, &action.Target, &action.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}
