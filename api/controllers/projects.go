package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecoforge/ecoforge-backend/api/middleware"
	"github.com/ecoforge/ecoforge-backend/api/responses"
	"github.com/ecoforge/ecoforge-backend/api/validators"
	"github.com/ecoforge/ecoforge-backend/internal/projects"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

type materialRequest struct {
	Name   string `json:"name" validate:"required"`
	Unit   string `json:"unit"`
	Needed int    `json:"needed" validate:"required,gt=0"`
}

type createProjectRequest struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Materials   []materialRequest `json:"materials" validate:"dive"`
}

// CreateProject opens a new project in the preparation stage.
func CreateProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		var body createProjectRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		materials := make([]projects.MaterialInput, 0, len(body.Materials))
		for _, m := range body.Materials {
			materials = append(materials, projects.MaterialInput{Name: m.Name, Unit: m.Unit, Needed: m.Needed})
		}

		project, err := svc.Create(r.Context(), projects.CreateInput{
			AuthorID:    middleware.UserIDFromContext(r.Context()),
			Title:       body.Title,
			Description: body.Description,
			Materials:   materials,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, project)
	}
}

// GetProject fetches one project.
func GetProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		if projectID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project id required"))
			return
		}

		project, err := svc.Get(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

// ListProjects returns the caller's projects, or the public gallery with
// scope=public.
func ListProjects(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		params := projects.ListParams{AuthorID: middleware.UserIDFromContext(r.Context())}
		if strings.TrimSpace(r.URL.Query().Get("scope")) == "public" {
			params = projects.ListParams{PublicOnly: true}
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DeleteProject removes a completed project.
func DeleteProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		if projectID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project id required"))
			return
		}

		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), projectID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// AddMaterial appends a material requirement during preparation.
func AddMaterial(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		if projectID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project id required"))
			return
		}

		var body materialRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.AddMaterial(r.Context(), projects.AddMaterialInput{
			ActorID:   middleware.UserIDFromContext(r.Context()),
			ProjectID: projectID,
			Name:      body.Name,
			Unit:      body.Unit,
			Needed:    body.Needed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, project)
	}
}

type updateMaterialRequest struct {
	Delta    int    `json:"delta"`
	Evidence string `json:"evidence"`
}

// UpdateMaterial credits acquired quantity or attaches completion evidence.
func UpdateMaterial(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		materialID := strings.TrimSpace(chi.URLParam(r, "materialId"))
		if projectID == "" || materialID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project and material ids required"))
			return
		}

		var body updateMaterialRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.UpdateMaterial(r.Context(), projects.UpdateMaterialInput{
			ActorID:    middleware.UserIDFromContext(r.Context()),
			ProjectID:  projectID,
			MaterialID: materialID,
			Delta:      body.Delta,
			Evidence:   body.Evidence,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

// DeleteMaterial removes a requirement during preparation.
func DeleteMaterial(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		materialID := strings.TrimSpace(chi.URLParam(r, "materialId"))
		if projectID == "" || materialID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project and material ids required"))
			return
		}

		project, err := svc.DeleteMaterial(r.Context(), middleware.UserIDFromContext(r.Context()), projectID, materialID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

type addStepRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

// AddStep appends a build instruction during construction.
func AddStep(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		if projectID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project id required"))
			return
		}

		var body addStepRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.AddStep(r.Context(), projects.AddStepInput{
			ActorID:     middleware.UserIDFromContext(r.Context()),
			ProjectID:   projectID,
			Title:       body.Title,
			Description: body.Description,
			Images:      body.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, project)
	}
}

type editStepRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Images      []string `json:"images"`
}

// EditStep updates a step's text or images.
func EditStep(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		stepID := strings.TrimSpace(chi.URLParam(r, "stepId"))
		if projectID == "" || stepID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project and step ids required"))
			return
		}

		var body editStepRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.EditStep(r.Context(), projects.EditStepInput{
			ActorID:     middleware.UserIDFromContext(r.Context()),
			ProjectID:   projectID,
			StepID:      stepID,
			Title:       body.Title,
			Description: body.Description,
			Images:      body.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

// DeleteStep removes a step and renumbers the remainder.
func DeleteStep(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		stepID := strings.TrimSpace(chi.URLParam(r, "stepId"))
		if projectID == "" || stepID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project and step ids required"))
			return
		}

		project, err := svc.DeleteStep(r.Context(), middleware.UserIDFromContext(r.Context()), projectID, stepID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

// AdvanceProject moves a project to its next workflow stage. Preparation
// advances to construction once every material is satisfied; construction
// advances to share once at least one step exists.
func AdvanceProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		if projectID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project id required"))
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())

		current, err := svc.Get(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var project *models.Project
		switch current.WorkflowStage {
		case enums.StagePreparation:
			project, err = svc.AdvanceToConstruction(r.Context(), actorID, projectID)
		case enums.StageConstruction:
			project, err = svc.AdvanceToShare(r.Context(), actorID, projectID)
		default:
			err = pkgerrors.New(pkgerrors.CodeStateConflict, "project cannot advance from its current stage")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

type shareProjectRequest struct {
	Visibility  string   `json:"visibility" validate:"required,oneof=private public"`
	FinalImages []string `json:"finalImages"`
}

// ShareProject finalizes the project and pays completion rewards.
func ShareProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		if projectID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project id required"))
			return
		}

		var body shareProjectRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visibility, err := enums.ParseVisibility(body.Visibility)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visibility"))
			return
		}

		project, err := svc.Share(r.Context(), projects.ShareInput{
			ActorID:     middleware.UserIDFromContext(r.Context()),
			ProjectID:   projectID,
			Visibility:  visibility,
			FinalImages: body.FinalImages,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

type privacyRequest struct {
	Visibility string `json:"visibility" validate:"required,oneof=private public"`
}

// EditProjectPrivacy toggles visibility on a completed project.
func EditProjectPrivacy(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID := strings.TrimSpace(chi.URLParam(r, "projectId"))
		if projectID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project id required"))
			return
		}

		var body privacyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visibility, err := enums.ParseVisibility(body.Visibility)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visibility"))
			return
		}

		project, err := svc.EditPrivacy(r.Context(), middleware.UserIDFromContext(r.Context()), projectID, visibility)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}
