package enums

import "fmt"

// ProjectStatus distinguishes builds in progress from shared ones.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// IsValid reports whether the value is a known ProjectStatus.
func (p ProjectStatus) IsValid() bool {
	return p == ProjectStatusActive || p == ProjectStatusCompleted
}

// Visibility controls who can see a completed project.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// IsValid reports whether the value is a known Visibility.
func (v Visibility) IsValid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// ParseVisibility converts raw input into a Visibility.
func ParseVisibility(value string) (Visibility, error) {
	switch Visibility(value) {
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	case VisibilityPublic:
		return VisibilityPublic, nil
	}
	return "", fmt.Errorf("invalid visibility %q", value)
}
