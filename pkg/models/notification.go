package models

import (
	"time"

	"github.com/ecoforge/ecoforge-backend/pkg/enums"
)

// Notification is a per-user message pushed under notifications/{userId}.
type Notification struct {
	ID       string                     `json:"id,omitempty"`
	Title    string                     `json:"title"`
	Body     string                     `json:"body,omitempty"`
	Severity enums.NotificationSeverity `json:"severity"`
	// RelatedID links back to the entity the message is about.
	RelatedID string    `json:"relatedId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
