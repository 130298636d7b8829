// Package projects drives the three-stage build workflow. The stage field is
// a one-way ratchet: Preparation, then Construction, then Share, each
// advancement gated on completion of the stage's sub-entities.
package projects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	"github.com/ecoforge/ecoforge-backend/internal/quantity"
	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Service defines project workflow operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Project, error)
	Get(ctx context.Context, projectID string) (*models.Project, error)
	List(ctx context.Context, params ListParams) ([]models.Project, error)
	Delete(ctx context.Context, actorID, projectID string) error

	AddMaterial(ctx context.Context, input AddMaterialInput) (*models.Project, error)
	UpdateMaterial(ctx context.Context, input UpdateMaterialInput) (*models.Project, error)
	DeleteMaterial(ctx context.Context, actorID, projectID, materialID string) (*models.Project, error)
	CreditMatchingMaterial(ctx context.Context, projectID, title string, qty int) (string, error)

	AddStep(ctx context.Context, input AddStepInput) (*models.Project, error)
	EditStep(ctx context.Context, input EditStepInput) (*models.Project, error)
	DeleteStep(ctx context.Context, actorID, projectID, stepID string) (*models.Project, error)

	AdvanceToConstruction(ctx context.Context, actorID, projectID string) (*models.Project, error)
	AdvanceToShare(ctx context.Context, actorID, projectID string) (*models.Project, error)
	Share(ctx context.Context, input ShareInput) (*models.Project, error)
	EditPrivacy(ctx context.Context, actorID, projectID string, visibility enums.Visibility) (*models.Project, error)
}

type service struct {
	repo    Repository
	ledger  quantity.Ledger
	rewards gamification.Service
	cfg     config.RewardsConfig
	logg    *logger.Logger
}

// CreateInput carries a new project with its initial material requirements.
type CreateInput struct {
	AuthorID    string
	Title       string
	Description string
	Materials   []MaterialInput
}

// MaterialInput describes one material requirement.
type MaterialInput struct {
	Name   string
	Unit   string
	Needed int
}

// UpdateMaterialInput adds quantity and optionally evidence to a material.
// A zero delta with evidence replaces the photo on a completed material.
type UpdateMaterialInput struct {
	ActorID    string
	ProjectID  string
	MaterialID string
	Delta      int
	Evidence   string
}

// AddStepInput appends a build instruction at the next step number.
type AddStepInput struct {
	ActorID     string
	ProjectID   string
	Title       string
	Description string
	Images      []string
}

// EditStepInput updates a step's text or images.
type EditStepInput struct {
	ActorID     string
	ProjectID   string
	StepID      string
	Title       *string
	Description *string
	Images      []string
}

// ShareInput finalizes a project from the share stage.
type ShareInput struct {
	ActorID     string
	ProjectID   string
	Visibility  enums.Visibility
	FinalImages []string
}

// ListParams filters project listings.
type ListParams struct {
	AuthorID   string
	PublicOnly bool
}

// ServiceParams wires project workflow dependencies.
type ServiceParams struct {
	Repo    Repository
	Ledger  quantity.Ledger
	Rewards gamification.Service
	Config  config.RewardsConfig
	Logger  *logger.Logger
}

// NewService wires the project workflow service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "projects repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quantity ledger required")
	}
	if params.Rewards == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gamification service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "projects logger required")
	}
	return &service{
		repo:    params.Repo,
		ledger:  params.Ledger,
		rewards: params.Rewards,
		cfg:     params.Config,
		logg:    params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Project, error) {
	if input.AuthorID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author id required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}

	materials := map[string]models.Material{}
	for _, m := range input.Materials {
		if m.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "material name required")
		}
		if m.Needed <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "material needed must be positive")
		}
		id := uuid.NewString()
		materials[id] = models.Material{ID: id, Name: m.Name, Unit: m.Unit, Needed: m.Needed}
	}

	project := models.Project{
		ID:            uuid.NewString(),
		AuthorID:      input.AuthorID,
		Title:         input.Title,
		Description:   input.Description,
		Status:        enums.ProjectStatusActive,
		Visibility:    enums.VisibilityPrivate,
		WorkflowStage: enums.StagePreparation,
		Materials:     materials,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create project")
	}
	return &project, nil
}

// Get loads a project and repairs any material whose completion flag lags its
// acquired count. The two fields are written from different code paths, so a
// reader can observe them out of order; every load self-heals.
func (s *service) Get(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.autoCompleteScan(ctx, project)
	return project, nil
}

func (s *service) load(ctx context.Context, projectID string) (*models.Project, error) {
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	project, err := s.repo.Get(ctx, projectID)
	if errors.Is(err, keytree.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read project")
	}
	return project, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Project, error) {
	byID, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list projects")
	}

	items := make([]models.Project, 0, len(byID))
	for id, project := range byID {
		project.ID = id
		if params.AuthorID != "" && project.AuthorID != params.AuthorID {
			continue
		}
		if params.PublicOnly && project.Visibility != enums.VisibilityPublic {
			continue
		}
		items = append(items, project)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *service) Delete(ctx context.Context, actorID, projectID string) error {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	if project.AuthorID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author can delete a project")
	}
	if project.Status != enums.ProjectStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed projects can be deleted")
	}
	if err := s.repo.Delete(ctx, projectID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete project")
	}
	return nil
}

func (s *service) AddMaterial(ctx context.Context, input AddMaterialInput) (*models.Project, error) {
	project, err := s.authorAtStage(ctx, input.ActorID, input.ProjectID, enums.StagePreparation)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material name required")
	}
	if input.Needed <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material needed must be positive")
	}

	material := models.Material{
		ID:     uuid.NewString(),
		Name:   input.Name,
		Unit:   input.Unit,
		Needed: input.Needed,
	}
	if err := s.repo.SetMaterial(ctx, project.ID, material); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add material")
	}
	return s.Get(ctx, project.ID)
}

func (s *service) UpdateMaterial(ctx context.Context, input UpdateMaterialInput) (*models.Project, error) {
	project, err := s.authorAtStage(ctx, input.ActorID, input.ProjectID, enums.StagePreparation)
	if err != nil {
		return nil, err
	}
	material, ok := project.Materials[input.MaterialID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}

	next := material.Acquired + input.Delta
	if next < 0 {
		next = 0
	}
	if next > material.Needed {
		next = material.Needed
	}

	// Completion needs proof of possession before anything is written.
	evidence := input.Evidence
	if evidence == "" {
		evidence = material.EvidenceImage
	}
	if next >= material.Needed && evidence == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "evidence photo required to complete a material")
	}

	if input.Delta != 0 {
		_, err := s.ledger.Adjust(ctx, AcquiredPath(project.ID, input.MaterialID), input.Delta, quantity.Options{
			Max:    material.Needed,
			HasMax: true,
		})
		if err != nil {
			return nil, err
		}
	}

	fields := map[string]any{"is_completed": next >= material.Needed}
	if input.Evidence != "" {
		fields["evidence_image"] = input.Evidence
	}
	if err := s.repo.UpdateMaterial(ctx, project.ID, input.MaterialID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update material")
	}
	return s.Get(ctx, project.ID)
}

func (s *service) DeleteMaterial(ctx context.Context, actorID, projectID, materialID string) (*models.Project, error) {
	project, err := s.authorAtStage(ctx, actorID, projectID, enums.StagePreparation)
	if err != nil {
		return nil, err
	}
	if _, ok := project.Materials[materialID]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	if err := s.repo.DeleteMaterial(ctx, projectID, materialID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete material")
	}
	return s.Get(ctx, projectID)
}

// CreditMatchingMaterial resolves a request title against the project's
// materials and credits the matched material's acquired count, capped at its
// needed amount. A miss returns an empty id with no error; the completion
// flag is left to the next load's self-heal pass.
func (s *service) CreditMatchingMaterial(ctx context.Context, projectID, title string, qty int) (string, error) {
	if qty <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	project, err := s.load(ctx, projectID)
	if err != nil {
		return "", err
	}
	materialID := MatchMaterial(title, project.Materials)
	if materialID == "" {
		return "", nil
	}
	material := project.Materials[materialID]
	_, err = s.ledger.Adjust(ctx, AcquiredPath(projectID, materialID), qty, quantity.Options{
		Max:    material.Needed,
		HasMax: true,
	})
	if err != nil {
		return "", err
	}
	return materialID, nil
}

func (s *service) AddStep(ctx context.Context, input AddStepInput) (*models.Project, error) {
	project, err := s.authorAtStage(ctx, input.ActorID, input.ProjectID, enums.StageConstruction)
	if err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "step title required")
	}

	step := models.Step{
		ID:          uuid.NewString(),
		StepNumber:  len(project.Steps) + 1,
		Title:       input.Title,
		Description: input.Description,
		Images:      input.Images,
	}
	if err := s.repo.SetStep(ctx, project.ID, step); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add step")
	}
	return s.Get(ctx, project.ID)
}

func (s *service) EditStep(ctx context.Context, input EditStepInput) (*models.Project, error) {
	project, err := s.authorAtStage(ctx, input.ActorID, input.ProjectID, enums.StageConstruction)
	if err != nil {
		return nil, err
	}
	if _, ok := project.Steps[input.StepID]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "step not found")
	}

	fields := map[string]any{}
	if input.Title != nil {
		if *input.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "step title required")
		}
		fields["title"] = *input.Title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Images != nil {
		fields["images"] = input.Images
	}
	if len(fields) == 0 {
		return project, nil
	}
	if err := s.repo.UpdateStep(ctx, project.ID, input.StepID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update step")
	}
	return s.Get(ctx, project.ID)
}

// DeleteStep removes a step and renumbers the remainder so step numbers stay
// contiguous from 1.
func (s *service) DeleteStep(ctx context.Context, actorID, projectID, stepID string) (*models.Project, error) {
	project, err := s.authorAtStage(ctx, actorID, projectID, enums.StageConstruction)
	if err != nil {
		return nil, err
	}
	if _, ok := project.Steps[stepID]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "step not found")
	}
	if err := s.repo.DeleteStep(ctx, projectID, stepID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete step")
	}

	remaining := make([]models.Step, 0, len(project.Steps)-1)
	for id, step := range project.Steps {
		if id == stepID {
			continue
		}
		step.ID = id
		remaining = append(remaining, step)
	}
	sort.Slice(remaining, func(i, j int) bool {
		if remaining[i].StepNumber == remaining[j].StepNumber {
			return remaining[i].ID < remaining[j].ID
		}
		return remaining[i].StepNumber < remaining[j].StepNumber
	})
	for index, step := range remaining {
		number := index + 1
		if step.StepNumber == number {
			continue
		}
		if err := s.repo.UpdateStep(ctx, projectID, step.ID, map[string]any{"step_number": number}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "renumber step")
		}
	}
	return s.Get(ctx, projectID)
}

func (s *service) AdvanceToConstruction(ctx context.Context, actorID, projectID string) (*models.Project, error) {
	return s.advance(ctx, actorID, projectID, enums.StagePreparation)
}

func (s *service) AdvanceToShare(ctx context.Context, actorID, projectID string) (*models.Project, error) {
	return s.advance(ctx, actorID, projectID, enums.StageConstruction)
}

func (s *service) advance(ctx context.Context, actorID, projectID string, from enums.WorkflowStage) (*models.Project, error) {
	project, err := s.authorAtStage(ctx, actorID, projectID, from)
	if err != nil {
		return nil, err
	}
	s.autoCompleteScan(ctx, project)

	switch from {
	case enums.StagePreparation:
		if err := preparationGate(project); err != nil {
			return nil, err
		}
	case enums.StageConstruction:
		if err := constructionGate(project); err != nil {
			return nil, err
		}
	}

	next, ok := from.Next()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no further stage")
	}
	if err := s.repo.Update(ctx, projectID, map[string]any{"workflow_stage": int(next)}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance stage")
	}
	return s.Get(ctx, projectID)
}

// Share finalizes the project and pays out project-level rewards exactly
// once. Reward failures are logged, not unwound; the completed status is the
// source of truth.
func (s *service) Share(ctx context.Context, input ShareInput) (*models.Project, error) {
	project, err := s.authorAtStage(ctx, input.ActorID, input.ProjectID, enums.StageShare)
	if err != nil {
		return nil, err
	}
	if project.Status == enums.ProjectStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project already shared")
	}
	if !input.Visibility.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid visibility")
	}
	if input.Visibility == enums.VisibilityPublic && len(input.FinalImages) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a public project needs at least one final image")
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"status":      string(enums.ProjectStatusCompleted),
		"visibility":  string(input.Visibility),
		"completedAt": now.Format(time.RFC3339Nano),
	}
	if len(input.FinalImages) > 0 {
		fields["final_images"] = input.FinalImages
	}
	if err := s.repo.Update(ctx, project.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "share project")
	}

	s.payShareRewards(ctx, project)
	return s.Get(ctx, project.ID)
}

func (s *service) payShareRewards(ctx context.Context, project *models.Project) {
	ctx = s.logg.WithProjectID(ctx, project.ID)

	if _, err := s.rewards.AwardXP(ctx, project.AuthorID, s.cfg.ProjectXP); err != nil {
		s.logg.Error(ctx, "projects.share xp award failed", err)
	}
	if _, err := s.rewards.IncrementAction(ctx, project.AuthorID, gamification.IncrementInput{
		Kind:  enums.ActionProject,
		Count: 1,
	}); err != nil {
		s.logg.Error(ctx, "projects.share project count failed", err)
	}

	recycled := 0
	for _, material := range project.Materials {
		recycled += material.EffectiveQuantity()
	}
	if recycled > 0 {
		if _, err := s.rewards.IncrementAction(ctx, project.AuthorID, gamification.IncrementInput{
			Kind:  enums.ActionRecycle,
			Count: recycled,
		}); err != nil {
			s.logg.Error(ctx, "projects.share recycle count failed", err)
		}
	}
}

func (s *service) EditPrivacy(ctx context.Context, actorID, projectID string, visibility enums.Visibility) (*models.Project, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.AuthorID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author can change visibility")
	}
	if project.Status != enums.ProjectStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "visibility can only change after completion")
	}
	if !visibility.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid visibility")
	}
	if visibility == enums.VisibilityPublic && len(project.FinalImages) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a public project needs at least one final image")
	}
	if err := s.repo.Update(ctx, projectID, map[string]any{"visibility": string(visibility)}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update visibility")
	}
	return s.Get(ctx, projectID)
}

func (s *service) authorAtStage(ctx context.Context, actorID, projectID string, stage enums.WorkflowStage) (*models.Project, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.AuthorID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author can modify a project")
	}
	if project.WorkflowStage != stage {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("project is in the %s stage", project.WorkflowStage))
	}
	return project, nil
}

// autoCompleteScan forces is_completed on any material whose acquired count
// already meets its needed amount. Mutates the in-memory project too so
// callers see the repaired view.
func (s *service) autoCompleteScan(ctx context.Context, project *models.Project) {
	for id, material := range project.Materials {
		if !material.Satisfied() || material.IsCompleted {
			continue
		}
		if err := s.repo.UpdateMaterial(ctx, project.ID, id, map[string]any{"is_completed": true}); err != nil {
			s.logg.Error(s.logg.WithProjectID(ctx, project.ID), "projects.autocomplete repair failed", err)
			continue
		}
		material.IsCompleted = true
		project.Materials[id] = material
	}
}

func preparationGate(project *models.Project) error {
	if len(project.Materials) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "at least one material is required")
	}
	for _, material := range project.Materials {
		if !material.IsCompleted || material.EvidenceImage == "" {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("material %q is not complete with evidence", material.Name))
		}
	}
	return nil
}

func constructionGate(project *models.Project) error {
	if len(project.Steps) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "at least one step is required")
	}
	for _, step := range project.Steps {
		if len(step.Images) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("step %d has no image", step.StepNumber))
		}
	}
	return nil
}

// AddMaterialInput describes a material added while still in preparation.
type AddMaterialInput struct {
	ActorID   string
	ProjectID string
	Name      string
	Unit      string
	Needed    int
}
