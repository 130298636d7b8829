package enums

import "fmt"

// TaskType is the progress source a global task measures against.
type TaskType string

const (
	TaskTypeRecycle TaskType = "recycle"
	TaskTypeDonate  TaskType = "donate"
	TaskTypeProject TaskType = "project"
	TaskTypeXP      TaskType = "xp"
	TaskTypeOther   TaskType = "other"
)

var validTaskTypes = []TaskType{
	TaskTypeRecycle,
	TaskTypeDonate,
	TaskTypeProject,
	TaskTypeXP,
	TaskTypeOther,
}

// IsValid reports whether the value is a known TaskType.
func (t TaskType) IsValid() bool {
	for _, candidate := range validTaskTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaskType converts raw input into a TaskType.
func ParseTaskType(value string) (TaskType, error) {
	for _, candidate := range validTaskTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task type %q", value)
}

// RewardType is what a claimed task pays out.
type RewardType string

const (
	RewardTypeXP    RewardType = "xp"
	RewardTypeBadge RewardType = "badge"
)

// IsValid reports whether the value is a known RewardType.
func (r RewardType) IsValid() bool {
	return r == RewardTypeXP || r == RewardTypeBadge
}

// ParseRewardType converts raw input into a RewardType.
func ParseRewardType(value string) (RewardType, error) {
	switch RewardType(value) {
	case RewardTypeXP:
		return RewardTypeXP, nil
	case RewardTypeBadge:
		return RewardTypeBadge, nil
	}
	return "", fmt.Errorf("invalid reward type %q", value)
}
