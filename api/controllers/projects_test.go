package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ecoforge/ecoforge-backend/internal/projects"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

type testProjectsService struct {
	projects.Service
	getFn          func(ctx context.Context, projectID string) (*models.Project, error)
	constructionFn func(ctx context.Context, actorID, projectID string) (*models.Project, error)
	shareStageFn   func(ctx context.Context, actorID, projectID string) (*models.Project, error)
	shareFn        func(ctx context.Context, input projects.ShareInput) (*models.Project, error)
}

func (s *testProjectsService) Get(ctx context.Context, projectID string) (*models.Project, error) {
	return s.getFn(ctx, projectID)
}

func (s *testProjectsService) AdvanceToConstruction(ctx context.Context, actorID, projectID string) (*models.Project, error) {
	return s.constructionFn(ctx, actorID, projectID)
}

func (s *testProjectsService) AdvanceToShare(ctx context.Context, actorID, projectID string) (*models.Project, error) {
	return s.shareStageFn(ctx, actorID, projectID)
}

func (s *testProjectsService) Share(ctx context.Context, input projects.ShareInput) (*models.Project, error) {
	return s.shareFn(ctx, input)
}

func TestAdvanceProjectFromPreparation(t *testing.T) {
	svc := &testProjectsService{
		getFn: func(ctx context.Context, projectID string) (*models.Project, error) {
			return &models.Project{ID: projectID, WorkflowStage: enums.StagePreparation}, nil
		},
		constructionFn: func(ctx context.Context, actorID, projectID string) (*models.Project, error) {
			if actorID != "builder-1" {
				t.Fatalf("unexpected actor %s", actorID)
			}
			return &models.Project{ID: projectID, WorkflowStage: enums.StageConstruction}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/advance", nil)
	req = asUser(req, "builder-1")
	req = addRouteParam(req, "projectId", "p1")

	resp := httptest.NewRecorder()
	AdvanceProject(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestAdvanceProjectFromConstruction(t *testing.T) {
	advanced := false
	svc := &testProjectsService{
		getFn: func(ctx context.Context, projectID string) (*models.Project, error) {
			return &models.Project{ID: projectID, WorkflowStage: enums.StageConstruction}, nil
		},
		shareStageFn: func(ctx context.Context, actorID, projectID string) (*models.Project, error) {
			advanced = true
			return &models.Project{ID: projectID, WorkflowStage: enums.StageShare}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/advance", nil)
	req = asUser(req, "builder-1")
	req = addRouteParam(req, "projectId", "p1")

	resp := httptest.NewRecorder()
	AdvanceProject(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !advanced {
		t.Fatal("expected advance to share stage")
	}
}

func TestAdvanceProjectAtShareStageConflicts(t *testing.T) {
	svc := &testProjectsService{
		getFn: func(ctx context.Context, projectID string) (*models.Project, error) {
			return &models.Project{ID: projectID, WorkflowStage: enums.StageShare}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/advance", nil)
	req = asUser(req, "builder-1")
	req = addRouteParam(req, "projectId", "p1")

	resp := httptest.NewRecorder()
	AdvanceProject(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestShareProjectRejectsBadVisibility(t *testing.T) {
	body := strings.NewReader(`{"visibility":"friends"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/share", body)
	req = asUser(req, "builder-1")
	req = addRouteParam(req, "projectId", "p1")

	resp := httptest.NewRecorder()
	ShareProject(&testProjectsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestShareProjectPassesVisibility(t *testing.T) {
	svc := &testProjectsService{
		shareFn: func(ctx context.Context, input projects.ShareInput) (*models.Project, error) {
			if input.Visibility != enums.VisibilityPublic {
				t.Fatalf("unexpected visibility %s", input.Visibility)
			}
			if len(input.FinalImages) != 1 {
				t.Fatalf("unexpected images %v", input.FinalImages)
			}
			return &models.Project{ID: input.ProjectID}, nil
		},
	}

	body := strings.NewReader(`{"visibility":"public","finalImages":["done.jpg"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/share", body)
	req = asUser(req, "builder-1")
	req = addRouteParam(req, "projectId", "p1")

	resp := httptest.NewRecorder()
	ShareProject(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
