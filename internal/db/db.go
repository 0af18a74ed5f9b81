// Package db keeps a sqlite catalog of viewer sessions and the files each
// session exported. The schema is managed by embedded golang-migrate
// migrations applied on Open.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/ptview/internal/monitoring"
	"github.com/banshee-data/ptview/internal/timeutil"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Export kinds.
const (
	KindScreenshot = "screenshot"
	KindMovie      = "movie"
	KindReport     = "report"
)

type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (or creates) the catalog at path and migrates it to the latest
// schema. A nil clock uses the wall clock.
func Open(path string, clock timeutil.Clock) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases coherent.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	if clock == nil {
		clock = timeutil.RealClock{}
	}
	db := &DB{DB: sqlDB, clock: clock}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	version, _, _ := db.MigrateVersion()
	monitoring.Logf("[db] opened catalog %s (schema version %d)", path, version)
	return db, nil
}

// Session is one run of the viewer.
type Session struct {
	ID            string
	PrimaryPath   string
	SecondaryPath string
	FrameCount    int
	TrackCount    int
	FrameRate     float64
	StartedAt     time.Time
	EndedAt       *time.Time // nil while running
	FramesShown   int
}

// Export is a file written during a session.
type Export struct {
	ID         string
	SessionID  string
	Kind       string
	Path       string
	FrameIndex int
	CreatedAt  time.Time
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// StartSession records a new session and returns its id.
func (db *DB) StartSession(primary, secondary string, frameCount, trackCount int, frameRate float64) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO viewer_sessions (session_id, primary_path, secondary_path, frame_count, track_count, frame_rate, started_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, primary, secondary, frameCount, trackCount, frameRate, toMillis(db.clock.Now()))
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// EndSession stamps the end time and the number of frames displayed.
func (db *DB) EndSession(id string, framesShown int) error {
	res, err := db.Exec(`
		UPDATE viewer_sessions SET ended_unix_ms = ?, frames_shown = ?
		WHERE session_id = ?`,
		toMillis(db.clock.Now()), framesShown, id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// RecordExport notes a file written by a session and returns the export id.
func (db *DB) RecordExport(sessionID, kind, path string, frameIndex int) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO viewer_exports (export_id, session_id, kind, path, frame_index, created_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, sessionID, kind, path, frameIndex, toMillis(db.clock.Now()))
	if err != nil {
		return "", fmt.Errorf("failed to record export: %w", err)
	}
	return id, nil
}

// Session returns one session by id.
func (db *DB) Session(id string) (Session, error) {
	row := db.QueryRow(`
		SELECT session_id, primary_path, secondary_path, frame_count, track_count, frame_rate,
		       started_unix_ms, ended_unix_ms, frames_shown
		FROM viewer_sessions WHERE session_id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, err
}

// Sessions returns the most recent sessions first, at most limit (all when
// limit <= 0).
func (db *DB) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT session_id, primary_path, secondary_path, frame_count, track_count, frame_rate,
		       started_unix_ms, ended_unix_ms, frames_shown
		FROM viewer_sessions ORDER BY started_unix_ms DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Exports returns a session's exports in creation order.
func (db *DB) Exports(sessionID string) ([]Export, error) {
	rows, err := db.Query(`
		SELECT export_id, session_id, kind, path, frame_index, created_unix_ms
		FROM viewer_exports WHERE session_id = ? ORDER BY created_unix_ms, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var out []Export
	for rows.Next() {
		var (
			e       Export
			created int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Path, &e.FrameIndex, &created); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		e.CreatedAt = fromMillis(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(sc scanner) (Session, error) {
	var (
		s       Session
		started int64
		ended   sql.NullInt64
	)
	err := sc.Scan(&s.ID, &s.PrimaryPath, &s.SecondaryPath, &s.FrameCount, &s.TrackCount, &s.FrameRate,
		&started, &ended, &s.FramesShown)
	if err != nil {
		return Session{}, err
	}
	s.StartedAt = fromMillis(started)
	if ended.Valid {
		t := fromMillis(ended.Int64)
		s.EndedAt = &t
	}
	return s, nil
}
