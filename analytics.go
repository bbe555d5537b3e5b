package main

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types recorded by the analytics sink.
const (
	EvtSessionStart = "session_start"
	EvtSessionEnd   = "session_end"
	EvtMatchStart   = "match_start"
	EvtMatchEnd     = "match_end"
	EvtFighterDeath = "fighter_death"
)

// AnalyticsEvent is a single trackable event.
type AnalyticsEvent struct {
	Type      string
	UserID    int64
	RoomID    string
	Timestamp time.Time
}

// Analytics persists events with batched background writes. A nil *Analytics
// is valid and drops everything, so callers never need to guard.
type Analytics struct {
	db     *DB
	log    zerolog.Logger
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup

	mu            sync.RWMutex
	liveUsers     int
	activeMatches int
}

// NewAnalytics creates and starts the analytics background writer.
func NewAnalytics(db *DB, log zerolog.Logger) *Analytics {
	a := &Analytics{
		db:     db,
		log:    log,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence. Never blocks: a full queue
// drops the event rather than stalling the game loop.
func (a *Analytics) Track(evtType string, userID int64, roomID string) {
	if a == nil {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		UserID:    userID,
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
	}:
	default:
	}
}

// SetLiveUsers updates the live connected-user gauge.
func (a *Analytics) SetLiveUsers(n int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.liveUsers = n
	a.mu.Unlock()
}

// SetActiveMatches updates the live running-match gauge.
func (a *Analytics) SetActiveMatches(n int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.activeMatches = n
	a.mu.Unlock()
}

// LiveMetrics returns the current gauges: connected users, running matches.
func (a *Analytics) LiveMetrics() (int, int) {
	if a == nil {
		return 0, 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.liveUsers, a.activeMatches
}

// Stop flushes queued events and shuts the writer down.
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	close(a.stop)
	a.wg.Wait()
}

// writer batches events and flushes on size or a timer.
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			close(a.events)
			for evt := range a.events {
				batch = append(batch, evt)
			}
			if len(batch) > 0 {
				a.flush(batch)
			}
			return
		}
	}
}

func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		a.log.Error().Err(err).Msg("analytics begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, user_id, room_id, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		a.log.Error().Err(err).Msg("analytics prepare")
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		uid := sql.NullInt64{Int64: evt.UserID, Valid: evt.UserID > 0}
		rid := sql.NullString{String: evt.RoomID, Valid: evt.RoomID != ""}
		if _, err := stmt.Exec(evt.Type, uid, rid, evt.Timestamp.Format(time.RFC3339)); err != nil {
			a.log.Error().Err(err).Msg("analytics insert")
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.Error().Err(err).Msg("analytics commit")
	}
}

// DAUCount returns the number of distinct users active today.
func (a *Analytics) DAUCount() (int, error) {
	if a == nil || a.db == nil {
		return 0, nil
	}
	var count int
	err := a.db.conn.QueryRow(`
		SELECT COUNT(DISTINCT user_id) FROM analytics_events
		WHERE user_id IS NOT NULL AND created_at >= date('now')
	`).Scan(&count)
	return count, err
}

// EventCounts returns per-type event counts for the last N days.
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a == nil || a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
