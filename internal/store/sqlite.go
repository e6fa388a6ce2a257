// Package store provides SQLite-backed metadata storage for threads,
// notes and snapshot records.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

var (
	ErrThreadNotFound   = errors.New("thread not found")
	ErrNoteNotFound     = errors.New("note not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// DB wraps a SQLite connection for copidock metadata.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates a database at the given path.
func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ----- Threads -----

// Thread is a development thread record.
type Thread struct {
	ThreadID             string
	ThreadName           string
	Goal                 string
	Repo                 string
	Branch               string
	Status               string
	SnapshotCount        int
	LatestSnapshotKey    string
	LatestRehydrationID  string
	LatestRehydrationKey string
	CreatedAt            string
	UpdatedAt            string
}

// CreateThread inserts a new thread record.
func (db *DB) CreateThread(t Thread) error {
	_, err := db.conn.Exec(
		`INSERT INTO threads (thread_id, thread_name, goal, repo, branch, status, snapshot_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'active', 0, ?, ?)`,
		t.ThreadID, t.ThreadName, t.Goal, t.Repo, t.Branch, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting thread: %w", err)
	}
	return nil
}

const threadColumns = `thread_id, thread_name, goal, repo, branch, status, snapshot_count,
	latest_snapshot_key, latest_rehydration_id, latest_rehydration_key, created_at, updated_at`

func scanThread(row *sql.Row) (*Thread, error) {
	var t Thread
	err := row.Scan(&t.ThreadID, &t.ThreadName, &t.Goal, &t.Repo, &t.Branch, &t.Status,
		&t.SnapshotCount, &t.LatestSnapshotKey, &t.LatestRehydrationID, &t.LatestRehydrationKey,
		&t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning thread: %w", err)
	}
	return &t, nil
}

// GetThread retrieves a thread by ID.
func (db *DB) GetThread(threadID string) (*Thread, error) {
	row := db.conn.QueryRow(
		`SELECT `+threadColumns+` FROM threads WHERE thread_id = ?`, threadID,
	)
	return scanThread(row)
}

// IncrementSnapshotCount atomically bumps a thread's snapshot counter
// and returns the new value, which doubles as the snapshot version.
func (db *DB) IncrementSnapshotCount(threadID string, updatedAt string) (int, error) {
	var version int
	err := db.conn.QueryRow(
		`UPDATE threads SET snapshot_count = snapshot_count + 1, updated_at = ?
		 WHERE thread_id = ? RETURNING snapshot_count`,
		updatedAt, threadID,
	).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, ErrThreadNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("incrementing snapshot count: %w", err)
	}
	return version, nil
}

// SetLatestSnapshotKey records the most recent snapshot object key.
func (db *DB) SetLatestSnapshotKey(threadID, key string) error {
	res, err := db.conn.Exec(
		`UPDATE threads SET latest_snapshot_key = ? WHERE thread_id = ?`, key, threadID,
	)
	if err != nil {
		return fmt.Errorf("updating latest snapshot key: %w", err)
	}
	return checkAffected(res)
}

// SetLatestRehydration records the most recent hydrated document.
func (db *DB) SetLatestRehydration(threadID, rehydrationID, key, updatedAt string) error {
	res, err := db.conn.Exec(
		`UPDATE threads SET latest_rehydration_id = ?, latest_rehydration_key = ?, updated_at = ?
		 WHERE thread_id = ?`,
		rehydrationID, key, updatedAt, threadID,
	)
	if err != nil {
		return fmt.Errorf("updating latest rehydration: %w", err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrThreadNotFound
	}
	return nil
}

// ----- Notes -----

// Note is a free-text note, optionally attached to a thread.
type Note struct {
	NoteID    string
	ThreadID  string
	Content   string
	Tags      []string
	Source    string
	CreatedAt string
}

// CreateNote inserts a note. Tags are stored as a JSON array.
func (db *DB) CreateNote(n Note) error {
	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}
	source := n.Source
	if source == "" {
		source = "manual_entry"
	}
	_, err = db.conn.Exec(
		`INSERT INTO notes (note_id, thread_id, content, tags, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.NoteID, n.ThreadID, n.Content, string(tags), source, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

// ListNotes returns notes newest first, optionally filtered by thread.
func (db *DB) ListNotes(threadID string, limit int) ([]Note, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if threadID == "" {
		rows, err = db.conn.Query(
			`SELECT note_id, thread_id, content, tags, source, created_at
			 FROM notes ORDER BY created_at DESC LIMIT ?`, limit,
		)
	} else {
		rows, err = db.conn.Query(
			`SELECT note_id, thread_id, content, tags, source, created_at
			 FROM notes WHERE thread_id = ? ORDER BY created_at DESC LIMIT ?`,
			threadID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var tags string
		if err := rows.Scan(&n.NoteID, &n.ThreadID, &n.Content, &tags, &n.Source, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
			n.Tags = nil
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ----- Snapshots -----

// Snapshot is the metadata record for one stored snapshot version.
type Snapshot struct {
	SnapshotID string
	ThreadID   string
	Version    int
	ObjectKey  string
	Kind       string // regular or comprehensive
	Message    string
	CreatedAt  string
}

// RecordSnapshot inserts a snapshot metadata row.
func (db *DB) RecordSnapshot(s Snapshot) error {
	_, err := db.conn.Exec(
		`INSERT INTO snapshots (snapshot_id, thread_id, version, object_key, kind, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.SnapshotID, s.ThreadID, s.Version, s.ObjectKey, s.Kind, s.Message, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshot records for a thread, newest first.
func (db *DB) ListSnapshots(threadID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT snapshot_id, thread_id, version, object_key, kind, message, created_at
		 FROM snapshots WHERE thread_id = ? ORDER BY version DESC LIMIT ?`,
		threadID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.SnapshotID, &s.ThreadID, &s.Version, &s.ObjectKey, &s.Kind, &s.Message, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// NowISO formats a timestamp the way thread records store them.
func NowISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
