package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ecoforge/ecoforge-backend/api/responses"
	pkgAuth "github.com/ecoforge/ecoforge-backend/pkg/auth"
	"github.com/ecoforge/ecoforge-backend/pkg/config"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

// SessionManager opens and revokes token-bound sessions.
type SessionManager interface {
	Open(ctx context.Context, accessID, userID string) error
	Revoke(ctx context.Context, accessID string) error
}

// OpenSession activates a session for a token minted by the identity
// collaborator. The token is verified against the shared secret; its JTI
// becomes the session key every authenticated route checks.
func OpenSession(cfg config.JWTConfig, sessions SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		token := bearerToken(r)
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		claims, err := pkgAuth.ParseAccessToken(cfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		if claims.ID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		if err := sessions.Open(r.Context(), claims.ID, claims.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"userId": claims.UserID,
			"role":   string(claims.Role),
		})
	}
}

// CloseSession revokes the caller's session. The bearer token stays valid
// until expiry but no longer passes the session presence check.
func CloseSession(cfg config.JWTConfig, sessions SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		token := bearerToken(r)
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		claims, err := pkgAuth.ParseAccessToken(cfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}

		if err := sessions.Revoke(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
