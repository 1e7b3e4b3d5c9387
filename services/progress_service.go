package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/adilbekov/raid-tracker/models"
	"github.com/adilbekov/raid-tracker/repositories"
)

type ProgressService interface {
	SetTaskStatus(ctx context.Context, userID string, mode models.GameMode, taskID string, status models.TaskStatus) (*models.TaskProgress, error)
	ListTasks(ctx context.Context, userID string, mode models.GameMode) ([]*models.TaskProgress, error)
	ToggleObjective(ctx context.Context, userID string, mode models.GameMode, taskID, objectiveID string, completed bool) error

	SetHideoutLevel(ctx context.Context, userID string, mode models.GameMode, moduleID string, level, maxLevel int) (*models.HideoutProgress, error)
	ListHideout(ctx context.Context, userID string, mode models.GameMode) ([]*models.HideoutProgress, error)

	UpdateItemFound(ctx context.Context, userID string, mode models.GameMode, item *models.RequiredItem) (*models.RequiredItem, error)
	AggregateRequiredItems(ctx context.Context, userID string, mode models.GameMode) ([]*models.RequiredItem, error)

	Summary(ctx context.Context, userID string, mode models.GameMode) (*models.ProgressSummary, error)
}

type progressService struct {
	progressRepo repositories.ProgressRepository
}

func NewProgressService(progressRepo repositories.ProgressRepository) ProgressService {
	return &progressService{progressRepo: progressRepo}
}

func (s *progressService) SetTaskStatus(ctx context.Context, userID string, mode models.GameMode, taskID string, status models.TaskStatus) (*models.TaskProgress, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}
	if !status.Valid() {
		return nil, ErrInvalidTaskStatus
	}
	if taskID == "" {
		return nil, ErrValidationFailed
	}

	now := time.Now()
	p := &models.TaskProgress{
		UserID:   userID,
		GameMode: mode,
		TaskID:   taskID,
		Status:   status,
	}

	// Carry timestamps forward from the previous row where it makes sense.
	prev, err := s.progressRepo.GetTask(ctx, userID, mode, taskID)
	if err != nil && !errors.Is(err, repositories.ErrTaskProgressNotFound) {
		return nil, err
	}
	if prev != nil {
		p.StartedAt = prev.StartedAt
	}

	switch status {
	case models.TaskStatusActive:
		if p.StartedAt == nil {
			p.StartedAt = &now
		}
	case models.TaskStatusCompleted:
		if p.StartedAt == nil {
			p.StartedAt = &now
		}
		p.CompletedAt = &now
	}

	if err := s.progressRepo.UpsertTask(ctx, p); err != nil {
		return nil, err
	}

	// Completing a task completes all of its recorded objectives.
	if status == models.TaskStatusCompleted {
		objectives, err := s.progressRepo.ListObjectives(ctx, userID, mode, taskID)
		if err != nil {
			return nil, err
		}
		for _, o := range objectives {
			if o.Completed {
				continue
			}
			o.Completed = true
			if err := s.progressRepo.SetObjective(ctx, userID, mode, o); err != nil {
				return nil, err
			}
		}
	}

	return p, nil
}

func (s *progressService) ListTasks(ctx context.Context, userID string, mode models.GameMode) ([]*models.TaskProgress, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}
	tasks, err := s.progressRepo.ListTasks(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		objectives, err := s.progressRepo.ListObjectives(ctx, userID, mode, t.TaskID)
		if err != nil {
			return nil, err
		}
		for _, o := range objectives {
			t.Objectives = append(t.Objectives, *o)
		}
	}
	return tasks, nil
}

func (s *progressService) ToggleObjective(ctx context.Context, userID string, mode models.GameMode, taskID, objectiveID string, completed bool) error {
	if !mode.Valid() {
		return ErrInvalidGameMode
	}
	if taskID == "" || objectiveID == "" {
		return ErrValidationFailed
	}
	return s.progressRepo.SetObjective(ctx, userID, mode, &models.ObjectiveProgress{
		TaskID:      taskID,
		ObjectiveID: objectiveID,
		Completed:   completed,
	})
}

func (s *progressService) SetHideoutLevel(ctx context.Context, userID string, mode models.GameMode, moduleID string, level, maxLevel int) (*models.HideoutProgress, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}
	if moduleID == "" {
		return nil, ErrValidationFailed
	}
	if level < 0 || maxLevel < 1 || level > maxLevel {
		return nil, ErrLevelOutOfRange
	}

	p := &models.HideoutProgress{
		UserID:   userID,
		GameMode: mode,
		ModuleID: moduleID,
		Level:    level,
		MaxLevel: maxLevel,
	}
	if err := s.progressRepo.UpsertHideout(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *progressService) ListHideout(ctx context.Context, userID string, mode models.GameMode) ([]*models.HideoutProgress, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}
	return s.progressRepo.ListHideout(ctx, userID, mode)
}

func (s *progressService) UpdateItemFound(ctx context.Context, userID string, mode models.GameMode, item *models.RequiredItem) (*models.RequiredItem, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}
	if item.ItemID == "" || item.Name == "" {
		return nil, ErrValidationFailed
	}
	if item.QuantityNeeded < 0 || item.QuantityFound < 0 {
		return nil, ErrQuantityNegative
	}
	if item.Source == "" {
		item.Source = models.ItemSourceTask
	}

	// Found count is capped at the needed count.
	if item.QuantityFound > item.QuantityNeeded {
		item.QuantityFound = item.QuantityNeeded
	}

	item.UserID = userID
	item.GameMode = mode
	if err := s.progressRepo.UpsertItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AggregateRequiredItems merges task-sourced and hideout-sourced rows for
// the same item into one entry with summed quantities, sorted by name.
func (s *progressService) AggregateRequiredItems(ctx context.Context, userID string, mode models.GameMode) ([]*models.RequiredItem, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}

	items, err := s.progressRepo.ListItems(ctx, userID, mode)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*models.RequiredItem)
	for _, item := range items {
		agg, ok := merged[item.ItemID]
		if !ok {
			merged[item.ItemID] = &models.RequiredItem{
				ItemID:         item.ItemID,
				Name:           item.Name,
				QuantityNeeded: item.QuantityNeeded,
				QuantityFound:  item.QuantityFound,
			}
			continue
		}
		agg.QuantityNeeded += item.QuantityNeeded
		agg.QuantityFound += item.QuantityFound
	}

	out := make([]*models.RequiredItem, 0, len(merged))
	for _, item := range merged {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *progressService) Summary(ctx context.Context, userID string, mode models.GameMode) (*models.ProgressSummary, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}

	tasks, err := s.progressRepo.ListTasks(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks for summary: %w", err)
	}
	hideout, err := s.progressRepo.ListHideout(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to load hideout for summary: %w", err)
	}
	items, err := s.progressRepo.ListItems(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to load items for summary: %w", err)
	}

	summary := &models.ProgressSummary{
		UserID:        userID,
		GameMode:      mode,
		TasksByStatus: make(map[models.TaskStatus]int),
		LastUpdated:   time.Now(),
	}
	for _, t := range tasks {
		summary.TasksByStatus[t.Status]++
	}
	for _, h := range hideout {
		summary.HideoutBuilt += h.Level
		summary.HideoutMax += h.MaxLevel
	}
	for _, item := range items {
		summary.ItemsFound += item.QuantityFound
		summary.ItemsNeeded += item.QuantityNeeded
	}
	return summary, nil
}
