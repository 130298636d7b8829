package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecoforge/ecoforge-backend/api/middleware"
	"github.com/ecoforge/ecoforge-backend/api/responses"
	"github.com/ecoforge/ecoforge-backend/internal/notifications"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

// ListNotifications returns the caller's feed, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		params := notifications.ListParams{UserID: middleware.UserIDFromContext(r.Context())}

		if unread := strings.TrimSpace(r.URL.Query().Get("unreadOnly")); unread != "" {
			value, err := strconv.ParseBool(unread)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unreadOnly value"))
				return
			}
			params.UnreadOnly = value
		}

		feed, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feed)
	}
}

// MarkAllNotificationsRead flags the caller's entire feed as read.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		count, err := svc.MarkAllRead(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"read": count})
	}
}

// MarkNotificationRead flags one notification as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		notificationID := strings.TrimSpace(chi.URLParam(r, "notificationId"))
		if notificationID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "notification id required"))
			return
		}

		if err := svc.MarkRead(r.Context(), middleware.UserIDFromContext(r.Context()), notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}
