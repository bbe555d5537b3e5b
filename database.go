package main

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection used by the analytics sink.
type DB struct {
	conn *sql.DB
}

// EventRow is one recorded analytics event.
type EventRow struct {
	ID        int64
	Type      string
	UserID    int64
	RoomID    string
	CreatedAt time.Time
}

// OpenDB opens (or creates) the SQLite database.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps the batched writer from stalling readers
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		user_id INTEGER,
		room_id TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON analytics_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_events_created ON analytics_events(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// EventCount returns the number of recorded events of one type, or of all
// types when evtType is empty.
func (db *DB) EventCount(evtType string) (int, error) {
	var count int
	var err error
	if evtType == "" {
		err = db.conn.QueryRow("SELECT COUNT(*) FROM analytics_events").Scan(&count)
	} else {
		err = db.conn.QueryRow("SELECT COUNT(*) FROM analytics_events WHERE event_type = ?", evtType).Scan(&count)
	}
	return count, err
}

// RecentEvents returns the latest events, newest first.
func (db *DB) RecentEvents(limit int) ([]EventRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, event_type, COALESCE(user_id, 0), COALESCE(room_id, ''), created_at
		FROM analytics_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventRow
	for rows.Next() {
		var r EventRow
		var created string
		if err := rows.Scan(&r.ID, &r.Type, &r.UserID, &r.RoomID, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		result = append(result, r)
	}
	return result, rows.Err()
}
