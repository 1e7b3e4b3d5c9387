package models

import "time"

// TaskStatus is the quest progression state machine:
// locked -> available -> active -> completed.
type TaskStatus string

const (
	TaskStatusLocked    TaskStatus = "locked"
	TaskStatusAvailable TaskStatus = "available"
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusLocked, TaskStatusAvailable, TaskStatusActive, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskProgress is one user's state for one quest in one game mode.
type TaskProgress struct {
	UserID      string              `json:"user_id"`
	GameMode    GameMode            `json:"game_mode"`
	TaskID      string              `json:"task_id"`
	Status      TaskStatus          `json:"status"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Objectives  []ObjectiveProgress `json:"objectives,omitempty"`
}

type ObjectiveProgress struct {
	TaskID      string `json:"task_id"`
	ObjectiveID string `json:"objective_id"`
	Completed   bool   `json:"completed"`
}

// HideoutProgress is the built level of one hideout module.
type HideoutProgress struct {
	UserID   string   `json:"user_id"`
	GameMode GameMode `json:"game_mode"`
	ModuleID string   `json:"module_id"`
	Level    int      `json:"level"`
	MaxLevel int      `json:"max_level"`
}

// ItemSource tells which side of the tracker wants an item.
type ItemSource string

const (
	ItemSourceTask    ItemSource = "task"
	ItemSourceHideout ItemSource = "hideout"
)

// RequiredItem tracks found-vs-needed counts for a single item.
type RequiredItem struct {
	UserID         string     `json:"user_id,omitempty"`
	GameMode       GameMode   `json:"game_mode,omitempty"`
	ItemID         string     `json:"item_id"`
	Name           string     `json:"name"`
	QuantityNeeded int        `json:"quantity_needed"`
	QuantityFound  int        `json:"quantity_found"`
	Source         ItemSource `json:"source,omitempty"`
}

// ProgressSummary backs the dashboard overview card.
type ProgressSummary struct {
	UserID        string             `json:"user_id"`
	GameMode      GameMode           `json:"game_mode"`
	TasksByStatus map[TaskStatus]int `json:"tasks_by_status"`
	HideoutBuilt  int                `json:"hideout_levels_built"`
	HideoutMax    int                `json:"hideout_levels_max"`
	ItemsFound    int                `json:"items_found"`
	ItemsNeeded   int                `json:"items_needed"`
	LastUpdated   time.Time          `json:"last_updated"`
}
