package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecoforge/ecoforge-backend/api/middleware"
	"github.com/ecoforge/ecoforge-backend/api/responses"
	"github.com/ecoforge/ecoforge-backend/api/validators"
	"github.com/ecoforge/ecoforge-backend/internal/achievements"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

// ListTasks returns every task with the caller's progress and claim state.
func ListTasks(svc achievements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievements service unavailable"))
			return
		}

		overview, err := svc.Overview(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// ClaimTask collects the reward for a satisfied task.
func ClaimTask(svc achievements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievements service unavailable"))
			return
		}

		taskID := strings.TrimSpace(chi.URLParam(r, "taskId"))
		if taskID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "task id required"))
			return
		}

		stats, err := svc.Claim(r.Context(), middleware.UserIDFromContext(r.Context()), taskID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

type createTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Type        string `json:"type" validate:"required"`
	Target      int    `json:"target" validate:"gte=0"`
	RewardType  string `json:"rewardType" validate:"required"`
	RewardXP    int    `json:"rewardXp" validate:"gte=0"`
	RewardBadge string `json:"rewardBadge"`
}

// CreateTask defines a new claimable task. Admin only.
func CreateTask(svc achievements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievements service unavailable"))
			return
		}

		var body createTaskRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		taskType, err := enums.ParseTaskType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid task type"))
			return
		}
		rewardType, err := enums.ParseRewardType(body.RewardType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward type"))
			return
		}

		task, err := svc.CreateTask(r.Context(), achievements.TaskInput{
			Title:       body.Title,
			Description: body.Description,
			Type:        taskType,
			Target:      body.Target,
			RewardType:  rewardType,
			RewardXP:    body.RewardXP,
			RewardBadge: body.RewardBadge,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, task)
	}
}

// UpdateTask replaces a task definition. Admin only.
func UpdateTask(svc achievements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievements service unavailable"))
			return
		}

		taskID := strings.TrimSpace(chi.URLParam(r, "taskId"))
		if taskID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "task id required"))
			return
		}

		var body createTaskRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		taskType, err := enums.ParseTaskType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid task type"))
			return
		}
		rewardType, err := enums.ParseRewardType(body.RewardType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward type"))
			return
		}

		task, err := svc.UpdateTask(r.Context(), taskID, achievements.TaskInput{
			Title:       body.Title,
			Description: body.Description,
			Type:        taskType,
			Target:      body.Target,
			RewardType:  rewardType,
			RewardXP:    body.RewardXP,
			RewardBadge: body.RewardBadge,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, task)
	}
}

// DeleteTask removes a task definition. Admin only.
func DeleteTask(svc achievements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievements service unavailable"))
			return
		}

		taskID := strings.TrimSpace(chi.URLParam(r, "taskId"))
		if taskID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "task id required"))
			return
		}

		if err := svc.DeleteTask(r.Context(), taskID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
