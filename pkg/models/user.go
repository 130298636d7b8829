package models

import (
	"encoding/json"
	"fmt"
)

// UserProfile is the subset of a user node the API serves back to clients.
// The node also carries profile fields written by other systems; services
// must never overwrite the whole node, only the keys they own.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	UserStats
}

// UserStats holds the gamification counters embedded in a user node.
type UserStats struct {
	XP              int      `json:"xp"`
	Level           int      `json:"level"`
	EcoPoints       int      `json:"ecoPoints"`
	RecyclingCount  int      `json:"recyclingCount"`
	DonationCount   int      `json:"donationCount"`
	ProjectCount    int      `json:"projectCount"`
	Badges          []string `json:"badges,omitempty"`
	CompletedTasks  []string `json:"completedTasks,omitempty"`
	EquippedBorder  string   `json:"equippedBorder,omitempty"`
	UnlockedBorders []string `json:"unlockedBorders,omitempty"`
}

var statKeys = []string{
	"xp", "level", "ecoPoints",
	"recyclingCount", "donationCount", "projectCount",
	"badges", "completedTasks",
	"equippedBorder", "unlockedBorders",
}

// StatsFromNode extracts the stat counters from a raw user node. Keys the
// stats do not own are left untouched in raw.
func StatsFromNode(raw map[string]any) (UserStats, error) {
	var stats UserStats
	if raw == nil {
		return stats, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return stats, fmt.Errorf("encode user node: %w", err)
	}
	if err := json.Unmarshal(encoded, &stats); err != nil {
		return stats, fmt.Errorf("decode user stats: %w", err)
	}
	return stats, nil
}

// MergeInto writes the stat counters back into raw, preserving every key the
// stats do not own. The returned map is raw itself, allocated when nil.
func (s UserStats) MergeInto(raw map[string]any) (map[string]any, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	encoded, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode user stats: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, fmt.Errorf("decode user stats: %w", err)
	}
	for _, key := range statKeys {
		if value, ok := fields[key]; ok {
			raw[key] = value
		} else {
			delete(raw, key)
		}
	}
	return raw, nil
}
