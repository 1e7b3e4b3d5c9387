package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adilbekov/raid-tracker/models"
)

// FallbackStore holds the last-known-good team snapshot per (user, mode).
// It is the only state that survives a server restart: the reconciler uses
// it to attempt a restorative re-create when the server answers "no team".
type FallbackStore interface {
	Save(userID string, mode models.GameMode, team *models.Team) error
	// Load returns (nil, nil) when no snapshot exists.
	Load(userID string, mode models.GameMode) (*models.Team, error)
	Clear(userID string, mode models.GameMode) error
	Close() error
}

// sqliteFallbackStore keeps snapshots in a local sqlite file, the desktop
// analogue of the browser's localStorage backup.
type sqliteFallbackStore struct {
	db *sql.DB
}

func NewSQLiteFallbackStore(path string) (FallbackStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	schema := `
		CREATE TABLE IF NOT EXISTS team_snapshots (
			user_id   TEXT NOT NULL,
			game_mode TEXT NOT NULL,
			payload   TEXT NOT NULL,
			saved_at  TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, game_mode)
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &sqliteFallbackStore{db: db}, nil
}

func (s *sqliteFallbackStore) Save(userID string, mode models.GameMode, team *models.Team) error {
	payload, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("marshal team snapshot: %w", err)
	}

	query := `
		INSERT INTO team_snapshots (user_id, game_mode, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, game_mode)
		DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`
	if _, err := s.db.Exec(query, userID, string(mode), string(payload), time.Now()); err != nil {
		return fmt.Errorf("save team snapshot: %w", err)
	}
	return nil
}

func (s *sqliteFallbackStore) Load(userID string, mode models.GameMode) (*models.Team, error) {
	query := `SELECT payload FROM team_snapshots WHERE user_id = ? AND game_mode = ?`

	var payload string
	err := s.db.QueryRow(query, userID, string(mode)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load team snapshot: %w", err)
	}

	var team models.Team
	if err := json.Unmarshal([]byte(payload), &team); err != nil {
		return nil, fmt.Errorf("decode team snapshot: %w", err)
	}
	return &team, nil
}

func (s *sqliteFallbackStore) Clear(userID string, mode models.GameMode) error {
	query := `DELETE FROM team_snapshots WHERE user_id = ? AND game_mode = ?`
	if _, err := s.db.Exec(query, userID, string(mode)); err != nil {
		return fmt.Errorf("clear team snapshot: %w", err)
	}
	return nil
}

func (s *sqliteFallbackStore) Close() error {
	return s.db.Close()
}
