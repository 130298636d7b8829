package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecoforge/ecoforge-backend/internal/notifications"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

type testNotificationsService struct {
	notifications.Service
	listFn     func(ctx context.Context, params notifications.ListParams) ([]models.Notification, error)
	markReadFn func(ctx context.Context, userID, notificationID string) error
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) ([]models.Notification, error) {
	return s.listFn(ctx, params)
}

func (s *testNotificationsService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.markReadFn(ctx, userID, notificationID)
}

func TestListNotificationsUnreadFilter(t *testing.T) {
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) ([]models.Notification, error) {
			if params.UserID != "user-1" {
				t.Fatalf("unexpected user %s", params.UserID)
			}
			if !params.UnreadOnly {
				t.Fatal("expected unread filter")
			}
			return []models.Notification{{ID: "n1", Title: "Request approved"}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unreadOnly=true", nil)
	req = asUser(req, "user-1")

	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data []models.Notification `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].ID != "n1" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, userID, notificationID string) error {
			called = true
			if userID != "user-1" || notificationID != "n1" {
				t.Fatalf("unexpected args %s %s", userID, notificationID)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/n1/read", nil)
	req = asUser(req, "user-1")
	req = addRouteParam(req, "notificationId", "n1")

	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestMarkNotificationReadMissingID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications//read", nil)
	req = asUser(req, "user-1")
	req = addRouteParam(req, "notificationId", "")

	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
