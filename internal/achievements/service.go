// Package achievements manages the global task list and the capstone badge.
// The capstone is held only while the user's completed tasks cover the whole
// list, so growing the list can take a granted badge away again.
package achievements

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Service defines task and capstone operations.
type Service interface {
	CreateTask(ctx context.Context, input TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID string, input TaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	ListTasks(ctx context.Context) ([]models.Task, error)
	Overview(ctx context.Context, userID string) ([]TaskStatus, error)
	Claim(ctx context.Context, userID, taskID string) (*models.UserStats, error)
	Reconcile(ctx context.Context, userID string) (*models.UserStats, error)
}

type service struct {
	repo    Repository
	rewards gamification.Service
	logg    *logger.Logger
}

// TaskInput carries an admin-authored task definition.
type TaskInput struct {
	Title       string
	Description string
	Type        enums.TaskType
	Target      int
	RewardType  enums.RewardType
	RewardXP    int
	RewardBadge string
}

// TaskStatus pairs a task with one user's progress against it.
type TaskStatus struct {
	Task      models.Task `json:"task"`
	Progress  int         `json:"progress"`
	Claimed   bool        `json:"claimed"`
	Claimable bool        `json:"claimable"`
}

// ServiceParams wires achievement dependencies.
type ServiceParams struct {
	Repo    Repository
	Rewards gamification.Service
	Logger  *logger.Logger
}

// NewService wires the achievements service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "achievements repository required")
	}
	if params.Rewards == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gamification service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "achievements logger required")
	}
	return &service{repo: params.Repo, rewards: params.Rewards, logg: params.Logger}, nil
}

func validateTaskInput(input TaskInput) error {
	if input.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "task title required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid task type")
	}
	if input.Type != enums.TaskTypeOther && input.Target <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "task target must be positive")
	}
	if !input.RewardType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid reward type")
	}
	if input.RewardType == enums.RewardTypeXP && input.RewardXP <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "xp reward must be positive")
	}
	if input.RewardType == enums.RewardTypeBadge && input.RewardBadge == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "badge reward needs a badge id")
	}
	return nil
}

func (s *service) CreateTask(ctx context.Context, input TaskInput) (*models.Task, error) {
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}

	task := models.Task{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Target:      input.Target,
		RewardType:  input.RewardType,
		RewardXP:    input.RewardXP,
		RewardBadge: input.RewardBadge,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Set(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create task")
	}
	return &task, nil
}

// UpdateTask replaces a task definition. Claims already recorded against the
// old definition stay recorded.
func (s *service) UpdateTask(ctx context.Context, taskID string, input TaskInput) (*models.Task, error) {
	if taskID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task id required")
	}
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, taskID)
	if errors.Is(err, keytree.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load task")
	}

	task := models.Task{
		ID:          taskID,
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Target:      input.Target,
		RewardType:  input.RewardType,
		RewardXP:    input.RewardXP,
		RewardBadge: input.RewardBadge,
		CreatedAt:   existing.CreatedAt,
	}
	if err := s.repo.Set(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update task")
	}
	return &task, nil
}

func (s *service) DeleteTask(ctx context.Context, taskID string) error {
	if taskID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "task id required")
	}
	if err := s.repo.Delete(ctx, taskID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete task")
	}
	return nil
}

func (s *service) ListTasks(ctx context.Context) ([]models.Task, error) {
	byID, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tasks")
	}
	items := make([]models.Task, 0, len(byID))
	for id, task := range byID {
		task.ID = id
		items = append(items, task)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *service) Overview(ctx context.Context, userID string) ([]TaskStatus, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.rewards.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]TaskStatus, 0, len(tasks))
	for _, task := range tasks {
		claimed := containsTask(stats.CompletedTasks, task.ID)
		statuses = append(statuses, TaskStatus{
			Task:      task,
			Progress:  task.Progress(*stats),
			Claimed:   claimed,
			Claimable: !claimed && claimable(task, *stats),
		})
	}
	return statuses, nil
}

// Claim marks a task complete for the user and pays its reward, then
// reconciles the capstone.
func (s *service) Claim(ctx context.Context, userID, taskID string) (*models.UserStats, error) {
	if userID == "" || taskID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and task id required")
	}
	task, err := s.repo.Get(ctx, taskID)
	if errors.Is(err, keytree.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read task")
	}

	_, err = s.rewards.Mutate(ctx, userID, func(stats *models.UserStats) error {
		if containsTask(stats.CompletedTasks, task.ID) {
			return pkgerrors.New(pkgerrors.CodeConflict, "task already claimed")
		}
		if !claimable(*task, *stats) {
			return pkgerrors.New(pkgerrors.CodeValidation, "task target not reached")
		}
		stats.CompletedTasks = append(stats.CompletedTasks, task.ID)
		switch task.RewardType {
		case enums.RewardTypeXP:
			stats.XP += task.RewardXP
			stats.EcoPoints += task.RewardXP
		case enums.RewardTypeBadge:
			if !enums.ContainsBadge(stats.Badges, task.RewardBadge) {
				stats.Badges = append(stats.Badges, task.RewardBadge)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, userID)
}

// Reconcile recomputes the capstone badge from global task coverage. An empty
// task list is treated as still loading and never grants the badge.
func (s *service) Reconcile(ctx context.Context, userID string) (*models.UserStats, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	byID, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tasks")
	}
	if len(byID) == 0 {
		stats, err := s.rewards.GetStats(ctx, userID)
		if err != nil {
			return nil, err
		}
		return stats, nil
	}

	return s.rewards.Mutate(ctx, userID, func(stats *models.UserStats) error {
		covered := true
		for id := range byID {
			if !containsTask(stats.CompletedTasks, id) {
				covered = false
				break
			}
		}
		held := enums.ContainsBadge(stats.Badges, enums.BadgeSierraMadre)
		switch {
		case covered && !held:
			stats.Badges = append(stats.Badges, enums.BadgeSierraMadre)
		case !covered && held:
			stats.Badges = removeBadge(stats.Badges, enums.BadgeSierraMadre)
		}
		return nil
	})
}

func claimable(task models.Task, stats models.UserStats) bool {
	if task.Type == enums.TaskTypeOther {
		return true
	}
	return task.Satisfied(stats)
}

func containsTask(completed []string, taskID string) bool {
	for _, id := range completed {
		if id == taskID {
			return true
		}
	}
	return false
}

func removeBadge(badges []string, id string) []string {
	kept := badges[:0]
	for _, held := range badges {
		if enums.EqualBadge(held, id) {
			continue
		}
		kept = append(kept, held)
	}
	return kept
}
