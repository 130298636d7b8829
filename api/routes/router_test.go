package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/ecoforge/ecoforge-backend/pkg/auth"
	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Open(ctx context.Context, accessID, userID string) error {
	return nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "ecoforge-test",
			ExpirationMinutes: 5,
		},
	}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(Deps{
		Config:   testConfig(),
		Logger:   logg,
		Sessions: stubSessionManager{},
		Hub:      keytree.NewHub(logg, 1),
	})
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, resp.Code)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminRoutesRejectMembers(t *testing.T) {
	cfg := testConfig()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.NewString(),
		Role:   enums.MemberRoleUser,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	router := testRouter(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/tasks/task-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
