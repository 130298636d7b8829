package notifications

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Service defines per-user notification operations.
type Service interface {
	Notify(ctx context.Context, userID string, input NotifyInput) error
	List(ctx context.Context, params ListParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NotifyInput carries the message to append. RelatedID points at the entity
// the message is about, such as a request or project.
type NotifyInput struct {
	Title     string
	Body      string
	Severity  string
	RelatedID string
}

// ListParams filters a user's notification feed.
type ListParams struct {
	UserID     string
	UnreadOnly bool
}

// ServiceParams wires notification dependencies.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// NewService wires notifications dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func parseSeverity(value string) (enums.NotificationSeverity, error) {
	if value == "" {
		return enums.NotificationSeverityInfo, nil
	}
	return enums.ParseNotificationSeverity(value)
}

func (s *service) Notify(ctx context.Context, userID string, input NotifyInput) error {
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification title required")
	}
	severity, err := parseSeverity(input.Severity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid severity")
	}

	notification := models.Notification{
		Title:     input.Title,
		Body:      input.Body,
		Severity:  severity,
		RelatedID: input.RelatedID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.repo.Append(ctx, userID, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append notification")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Notification, error) {
	if params.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	byID, err := s.repo.List(ctx, params.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	items := make([]models.Notification, 0, len(byID))
	for id, item := range byID {
		if params.UnreadOnly && item.Read {
			continue
		}
		item.ID = id
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" || notificationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and notification id required")
	}
	err := s.repo.MarkRead(ctx, userID, notificationID)
	if errors.Is(err, keytree.ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

// MarkAllRead flags every unread notification for the user and returns how
// many were flipped.
func (s *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	byID, err := s.repo.List(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	flipped := 0
	for id, item := range byID {
		if item.Read {
			continue
		}
		if err := s.repo.MarkRead(ctx, userID, id); err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, userID), "notifications.mark_all failed", err)
			continue
		}
		flipped++
	}
	return flipped, nil
}

// PurgeOlderThan deletes notifications created before the cutoff across all
// users and returns how many were removed.
func (s *service) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	userIDs, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	purged := 0
	for _, userID := range userIDs {
		byID, err := s.repo.List(ctx, userID)
		if err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, userID), "notifications.purge list failed", err)
			continue
		}
		for id, item := range byID {
			if !olderThan(item, cutoff) {
				continue
			}
			if err := s.repo.Delete(ctx, userID, id); err != nil {
				s.logg.Error(s.logg.WithUserID(ctx, userID), "notifications.purge delete failed", err)
				continue
			}
			purged++
		}
	}
	return purged, nil
}
