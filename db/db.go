package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

func Connect(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database within %v: %w (close error: %v)", timeout, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return db, nil
}

// Migrate creates the progress tables if they do not exist. The team
// registry is deliberately absent here: it is in-memory only.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS task_progress (
			user_id      TEXT NOT NULL,
			game_mode    TEXT NOT NULL,
			task_id      TEXT NOT NULL,
			status       TEXT NOT NULL,
			started_at   TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			PRIMARY KEY (user_id, game_mode, task_id)
		)`,
		`CREATE TABLE IF NOT EXISTS objective_progress (
			user_id      TEXT NOT NULL,
			game_mode    TEXT NOT NULL,
			task_id      TEXT NOT NULL,
			objective_id TEXT NOT NULL,
			completed    BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (user_id, game_mode, task_id, objective_id)
		)`,
		`CREATE TABLE IF NOT EXISTS hideout_progress (
			user_id   TEXT NOT NULL,
			game_mode TEXT NOT NULL,
			module_id TEXT NOT NULL,
			level     INTEGER NOT NULL DEFAULT 0,
			max_level INTEGER NOT NULL,
			PRIMARY KEY (user_id, game_mode, module_id)
		)`,
		`CREATE TABLE IF NOT EXISTS item_progress (
			user_id         TEXT NOT NULL,
			game_mode       TEXT NOT NULL,
			item_id         TEXT NOT NULL,
			name            TEXT NOT NULL,
			quantity_needed INTEGER NOT NULL DEFAULT 0,
			quantity_found  INTEGER NOT NULL DEFAULT 0,
			source          TEXT NOT NULL,
			PRIMARY KEY (user_id, game_mode, item_id, source)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
