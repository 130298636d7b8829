package middleware

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
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

type stubChecker struct {
	present bool
	err     error
	seenID  string
}

func (s *stubChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	s.seenID = accessID
	return s.present, s.err
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "ecoforge-test",
		ExpirationMinutes: 5,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, userID, jti string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.MemberRoleUser,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func authTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestAuthSeedsContext(t *testing.T) {
	cfg := testJWTConfig()
	jti := uuid.NewString()
	token := mintToken(t, cfg, "user-1", jti)
	checker := &stubChecker{present: true}

	var gotUser, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	Auth(cfg, checker, authTestLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotUser != "user-1" {
		t.Fatalf("unexpected user %q", gotUser)
	}
	if gotRole != string(enums.MemberRoleUser) {
		t.Fatalf("unexpected role %q", gotRole)
	}
	if checker.seenID != jti {
		t.Fatalf("session checked with %q, want %q", checker.seenID, jti)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	resp := httptest.NewRecorder()

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	Auth(testJWTConfig(), &stubChecker{present: true}, authTestLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if called {
		t.Fatal("next handler should not run")
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testJWTConfig()
	token := mintToken(t, cfg, "user-1", uuid.NewString())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	Auth(cfg, &stubChecker{present: false}, authTestLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	cfg := testJWTConfig()
	otherCfg := cfg
	otherCfg.Secret = "other-secret"
	token := mintToken(t, otherCfg, "user-1", uuid.NewString())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	Auth(cfg, &stubChecker{present: true}, authTestLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
