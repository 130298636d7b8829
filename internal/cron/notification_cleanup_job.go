package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoforge/ecoforge-backend/internal/notifications"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

const notificationRetentionDays = 30

// NotificationCleanupJobParams configure the retention sweep.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications notifications.Service
	Retention     int
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = notificationRetentionDays
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		notifier:  params.Notifications,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	notifier  notifications.Service
	retention int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	purged, err := j.notifier.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"purged":         purged,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
