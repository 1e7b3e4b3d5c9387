package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adilbekov/raid-tracker/models"
)

var (
	ErrTaskProgressNotFound    = errors.New("task progress not found")
	ErrHideoutProgressNotFound = errors.New("hideout progress not found")
	ErrItemProgressNotFound    = errors.New("item progress not found")
)

// ProgressRepository persists per-user, per-mode tracker state. Unlike the
// team registry this state survives restarts, so it lives in Postgres.
type ProgressRepository interface {
	// UpsertTask writes a task's status, replacing any previous row for
	// (user, mode, task).
	UpsertTask(ctx context.Context, p *models.TaskProgress) error
	GetTask(ctx context.Context, userID string, mode models.GameMode, taskID string) (*models.TaskProgress, error)
	ListTasks(ctx context.Context, userID string, mode models.GameMode) ([]*models.TaskProgress, error)

	// SetObjective toggles one objective's completion flag.
	SetObjective(ctx context.Context, userID string, mode models.GameMode, o *models.ObjectiveProgress) error
	ListObjectives(ctx context.Context, userID string, mode models.GameMode, taskID string) ([]*models.ObjectiveProgress, error)

	UpsertHideout(ctx context.Context, p *models.HideoutProgress) error
	ListHideout(ctx context.Context, userID string, mode models.GameMode) ([]*models.HideoutProgress, error)

	UpsertItem(ctx context.Context, item *models.RequiredItem) error
	ListItems(ctx context.Context, userID string, mode models.GameMode) ([]*models.RequiredItem, error)
}

type postgresProgressRepository struct {
	db *sql.DB
}

func NewPostgresProgressRepository(db *sql.DB) ProgressRepository {
	return &postgresProgressRepository{db: db}
}

func (r *postgresProgressRepository) UpsertTask(ctx context.Context, p *models.TaskProgress) error {
	query := `
		INSERT INTO task_progress (user_id, game_mode, task_id, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, game_mode, task_id)
		DO UPDATE SET status = EXCLUDED.status,
		              started_at = EXCLUDED.started_at,
		              completed_at = EXCLUDED.completed_at`

	_, err := r.db.ExecContext(ctx, query,
		p.UserID, string(p.GameMode), p.TaskID, string(p.Status), p.StartedAt, p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task progress: %w", err)
	}
	return nil
}

func (r *postgresProgressRepository) GetTask(ctx context.Context, userID string, mode models.GameMode, taskID string) (*models.TaskProgress, error) {
	query := `
		SELECT user_id, game_mode, task_id, status, started_at, completed_at
		FROM task_progress
		WHERE user_id = $1 AND game_mode = $2 AND task_id = $3`

	p := &models.TaskProgress{}
	err := r.db.QueryRowContext(ctx, query, userID, string(mode), taskID).Scan(
		&p.UserID, &p.GameMode, &p.TaskID, &p.Status, &p.StartedAt, &p.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskProgressNotFound
		}
		return nil, fmt.Errorf("failed to get task progress: %w", err)
	}
	return p, nil
}

func (r *postgresProgressRepository) ListTasks(ctx context.Context, userID string, mode models.GameMode) ([]*models.TaskProgress, error) {
	query := `
		SELECT user_id, game_mode, task_id, status, started_at, completed_at
		FROM task_progress
		WHERE user_id = $1 AND game_mode = $2
		ORDER BY task_id`

	rows, err := r.db.QueryContext(ctx, query, userID, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to list task progress: %w", err)
	}
	defer rows.Close()

	var out []*models.TaskProgress
	for rows.Next() {
		p := &models.TaskProgress{}
		if err := rows.Scan(&p.UserID, &p.GameMode, &p.TaskID, &p.Status, &p.StartedAt, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task progress row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *postgresProgressRepository) SetObjective(ctx context.Context, userID string, mode models.GameMode, o *models.ObjectiveProgress) error {
	query := `
		INSERT INTO objective_progress (user_id, game_mode, task_id, objective_id, completed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, game_mode, task_id, objective_id)
		DO UPDATE SET completed = EXCLUDED.completed`

	_, err := r.db.ExecContext(ctx, query, userID, string(mode), o.TaskID, o.ObjectiveID, o.Completed)
	if err != nil {
		return fmt.Errorf("failed to set objective progress: %w", err)
	}
	return nil
}

func (r *postgresProgressRepository) ListObjectives(ctx context.Context, userID string, mode models.GameMode, taskID string) ([]*models.ObjectiveProgress, error) {
	query := `
		SELECT task_id, objective_id, completed
		FROM objective_progress
		WHERE user_id = $1 AND game_mode = $2 AND task_id = $3
		ORDER BY objective_id`

	rows, err := r.db.QueryContext(ctx, query, userID, string(mode), taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list objective progress: %w", err)
	}
	defer rows.Close()

	var out []*models.ObjectiveProgress
	for rows.Next() {
		o := &models.ObjectiveProgress{}
		if err := rows.Scan(&o.TaskID, &o.ObjectiveID, &o.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan objective progress row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *postgresProgressRepository) UpsertHideout(ctx context.Context, p *models.HideoutProgress) error {
	query := `
		INSERT INTO hideout_progress (user_id, game_mode, module_id, level, max_level)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, game_mode, module_id)
		DO UPDATE SET level = EXCLUDED.level, max_level = EXCLUDED.max_level`

	_, err := r.db.ExecContext(ctx, query, p.UserID, string(p.GameMode), p.ModuleID, p.Level, p.MaxLevel)
	if err != nil {
		return fmt.Errorf("failed to upsert hideout progress: %w", err)
	}
	return nil
}

func (r *postgresProgressRepository) ListHideout(ctx context.Context, userID string, mode models.GameMode) ([]*models.HideoutProgress, error) {
	query := `
		SELECT user_id, game_mode, module_id, level, max_level
		FROM hideout_progress
		WHERE user_id = $1 AND game_mode = $2
		ORDER BY module_id`

	rows, err := r.db.QueryContext(ctx, query, userID, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to list hideout progress: %w", err)
	}
	defer rows.Close()

	var out []*models.HideoutProgress
	for rows.Next() {
		p := &models.HideoutProgress{}
		if err := rows.Scan(&p.UserID, &p.GameMode, &p.ModuleID, &p.Level, &p.MaxLevel); err != nil {
			return nil, fmt.Errorf("failed to scan hideout progress row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *postgresProgressRepository) UpsertItem(ctx context.Context, item *models.RequiredItem) error {
	query := `
		INSERT INTO item_progress (user_id, game_mode, item_id, name, quantity_needed, quantity_found, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, game_mode, item_id, source)
		DO UPDATE SET name = EXCLUDED.name,
		              quantity_needed = EXCLUDED.quantity_needed,
		              quantity_found = EXCLUDED.quantity_found`

	_, err := r.db.ExecContext(ctx, query,
		item.UserID, string(item.GameMode), item.ItemID, item.Name,
		item.QuantityNeeded, item.QuantityFound, string(item.Source),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item progress: %w", err)
	}
	return nil
}

func (r *postgresProgressRepository) ListItems(ctx context.Context, userID string, mode models.GameMode) ([]*models.RequiredItem, error) {
	query := `
		SELECT user_id, game_mode, item_id, name, quantity_needed, quantity_found, source
		FROM item_progress
		WHERE user_id = $1 AND game_mode = $2
		ORDER BY item_id, source`

	rows, err := r.db.QueryContext(ctx, query, userID, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to list item progress: %w", err)
	}
	defer rows.Close()

	var out []*models.RequiredItem
	for rows.Next() {
		item := &models.RequiredItem{}
		if err := rows.Scan(&item.UserID, &item.GameMode, &item.ItemID, &item.Name,
			&item.QuantityNeeded, &item.QuantityFound, &item.Source); err != nil {
			return nil, fmt.Errorf("failed to scan item progress row: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
