package enums

import "fmt"

// NotificationSeverity classifies a notification for client rendering.
type NotificationSeverity string

const (
	NotificationSeverityInfo    NotificationSeverity = "info"
	NotificationSeveritySuccess NotificationSeverity = "success"
	NotificationSeverityWarning NotificationSeverity = "warning"
	NotificationSeverityError   NotificationSeverity = "error"
)

var validNotificationSeverities = []NotificationSeverity{
	NotificationSeverityInfo,
	NotificationSeveritySuccess,
	NotificationSeverityWarning,
	NotificationSeverityError,
}

// IsValid reports whether the value is a known NotificationSeverity.
func (n NotificationSeverity) IsValid() bool {
	for _, candidate := range validNotificationSeverities {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationSeverity converts raw input into a NotificationSeverity.
func ParseNotificationSeverity(value string) (NotificationSeverity, error) {
	for _, candidate := range validNotificationSeverities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification severity %q", value)
}
