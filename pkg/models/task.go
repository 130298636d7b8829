package models

import (
	"time"

	"github.com/ecoforge/ecoforge-backend/pkg/enums"
)

// Task is a global challenge every user can claim once. Progress is measured
// against the user's stat counters; the reward pays XP or a badge.
type Task struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Type        enums.TaskType   `json:"type"`
	Target      int              `json:"target"`
	RewardType  enums.RewardType `json:"rewardType"`
	RewardXP    int              `json:"rewardXp,omitempty"`
	RewardBadge string           `json:"rewardBadge,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Progress returns the user's current count for this task's type.
func (t Task) Progress(stats UserStats) int {
	switch t.Type {
	case enums.TaskTypeRecycle:
		return stats.RecyclingCount
	case enums.TaskTypeDonate:
		return stats.DonationCount
	case enums.TaskTypeProject:
		return stats.ProjectCount
	case enums.TaskTypeXP:
		return stats.XP
	}
	return 0
}

// Satisfied reports whether the user's counters meet the target.
func (t Task) Satisfied(stats UserStats) bool {
	return t.Progress(stats) >= t.Target
}
