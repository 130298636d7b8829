package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecoforge/ecoforge-backend/api/middleware"
	"github.com/ecoforge/ecoforge-backend/api/responses"
	"github.com/ecoforge/ecoforge-backend/api/validators"
	"github.com/ecoforge/ecoforge-backend/internal/achievements"
	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

// GetMyStats reconciles badge coverage and returns the caller's progression.
func GetMyStats(evaluator achievements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if evaluator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())

		reconciled, err := evaluator.Reconcile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reconciled)
	}
}

type unlockBorderRequest struct {
	Cost int `json:"cost" validate:"gte=0"`
}

// UnlockBorder spends eco points on a cosmetic profile border.
func UnlockBorder(svc gamification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		borderID := strings.TrimSpace(chi.URLParam(r, "borderId"))
		if borderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "border id required"))
			return
		}

		var body unlockBorderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.UnlockBorder(r.Context(), middleware.UserIDFromContext(r.Context()), borderID, body.Cost)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// EquipBorder sets an unlocked border as the active one.
func EquipBorder(svc gamification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		borderID := strings.TrimSpace(chi.URLParam(r, "borderId"))
		if borderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "border id required"))
			return
		}

		stats, err := svc.EquipBorder(r.Context(), middleware.UserIDFromContext(r.Context()), borderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
