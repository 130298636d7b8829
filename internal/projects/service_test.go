package projects

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	"github.com/ecoforge/ecoforge-backend/internal/quantity"
	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

func testRewardsConfig() config.RewardsConfig {
	return config.RewardsConfig{
		RecycleXP:       10,
		DonateXP:        20,
		ProjectXP:       50,
		XPPerLevel:      100,
		RecycleBadgeAt:  10,
		DonationBadgeAt: 5,
		CapstoneLevelAt: 5,
	}
}

func newTestService(t *testing.T) (Service, gamification.Service, *keytree.MemoryStore) {
	t.Helper()
	store := keytree.NewMemoryStore()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	ledger, err := quantity.NewLedger(store, logg)
	require.NoError(t, err)
	rewards, err := gamification.NewService(gamification.ServiceParams{
		Repo:    gamification.NewRepository(store),
		Rewards: testRewardsConfig(),
		Logger:  logg,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(store),
		Ledger:  ledger,
		Rewards: rewards,
		Config:  testRewardsConfig(),
		Logger:  logg,
	})
	require.NoError(t, err)
	return svc, rewards, store
}

func createProject(t *testing.T, svc Service, materials ...MaterialInput) string {
	t.Helper()
	project, err := svc.Create(context.Background(), CreateInput{
		AuthorID:  "author",
		Title:     "Bottle Greenhouse",
		Materials: materials,
	})
	require.NoError(t, err)
	return project.ID
}

func materialID(t *testing.T, svc Service, projectID string) string {
	t.Helper()
	project, err := svc.Get(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, project.Materials, 1)
	for id := range project.Materials {
		return id
	}
	return ""
}

func TestUpdateMaterialRequiresEvidenceAtCompletion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "bottles", Unit: "pcs", Needed: 5})
	mid := materialID(t, svc, projectID)

	// Completing without a photo is refused before anything is written.
	_, err := svc.UpdateMaterial(ctx, UpdateMaterialInput{
		ActorID: "author", ProjectID: projectID, MaterialID: mid, Delta: 5,
	})
	require.Error(t, err)

	project, err := svc.Get(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, project.Materials[mid].Acquired, "refused mutation must not write")

	project, err = svc.UpdateMaterial(ctx, UpdateMaterialInput{
		ActorID: "author", ProjectID: projectID, MaterialID: mid, Delta: 5, Evidence: "img://proof",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, project.Materials[mid].Acquired)
	assert.True(t, project.Materials[mid].IsCompleted)
	assert.Equal(t, "img://proof", project.Materials[mid].EvidenceImage)
}

func TestUpdateMaterialClampsToNeeded(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "bottles", Needed: 5})
	mid := materialID(t, svc, projectID)

	project, err := svc.UpdateMaterial(ctx, UpdateMaterialInput{
		ActorID: "author", ProjectID: projectID, MaterialID: mid, Delta: 9, Evidence: "img://proof",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, project.Materials[mid].Acquired)
}

func TestUpdateMaterialZeroDeltaReplacesPhoto(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "bottles", Needed: 2})
	mid := materialID(t, svc, projectID)

	_, err := svc.UpdateMaterial(ctx, UpdateMaterialInput{
		ActorID: "author", ProjectID: projectID, MaterialID: mid, Delta: 2, Evidence: "img://old",
	})
	require.NoError(t, err)

	project, err := svc.UpdateMaterial(ctx, UpdateMaterialInput{
		ActorID: "author", ProjectID: projectID, MaterialID: mid, Delta: 0, Evidence: "img://new",
	})
	require.NoError(t, err)
	assert.Equal(t, "img://new", project.Materials[mid].EvidenceImage)
	assert.Equal(t, 2, project.Materials[mid].Acquired)
}

func TestAutoCompleteScanRepairsFlag(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "bottles", Needed: 3})
	mid := materialID(t, svc, projectID)

	// An approval credited acquired without touching the flag.
	require.NoError(t, store.Set(ctx, AcquiredPath(projectID, mid), 3))

	project, err := svc.Get(ctx, projectID)
	require.NoError(t, err)
	assert.True(t, project.Materials[mid].IsCompleted, "load must self-heal the completion flag")

	var persisted bool
	require.NoError(t, store.Get(ctx, keytree.Join(Path(projectID), "materials", mid, "is_completed"), &persisted))
	assert.True(t, persisted)
}

func TestAdvanceToConstructionGate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "bottles", Needed: 2})
	mid := materialID(t, svc, projectID)

	// Incomplete material blocks the advance and the stage stays put.
	_, err := svc.AdvanceToConstruction(ctx, "author", projectID)
	require.Error(t, err)
	project, err := svc.Get(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, enums.StagePreparation, project.WorkflowStage)

	_, err = svc.UpdateMaterial(ctx, UpdateMaterialInput{
		ActorID: "author", ProjectID: projectID, MaterialID: mid, Delta: 2, Evidence: "img://proof",
	})
	require.NoError(t, err)

	project, err = svc.AdvanceToConstruction(ctx, "author", projectID)
	require.NoError(t, err)
	assert.Equal(t, enums.StageConstruction, project.WorkflowStage)

	// One-way ratchet: materials are read-only past preparation.
	_, err = svc.UpdateMaterial(ctx, UpdateMaterialInput{
		ActorID: "author", ProjectID: projectID, MaterialID: mid, Delta: 1,
	})
	require.Error(t, err)
}

func TestAdvanceRequiresAtLeastOneMaterial(t *testing.T) {
	svc, _, _ := newTestService(t)
	projectID := createProject(t, svc)

	_, err := svc.AdvanceToConstruction(context.Background(), "author", projectID)
	require.Error(t, err)
}

func advanceToConstruction(t *testing.T, svc Service, projectID, mid string) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.UpdateMaterial(ctx, UpdateMaterialInput{
		ActorID: "author", ProjectID: projectID, MaterialID: mid, Delta: 5, Evidence: "img://proof",
	})
	require.NoError(t, err)
	_, err = svc.AdvanceToConstruction(ctx, "author", projectID)
	require.NoError(t, err)
}

func TestStepsRenumberOnDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "bottles", Needed: 5})
	advanceToConstruction(t, svc, projectID, materialID(t, svc, projectID))

	titles := []string{"cut", "glue", "paint"}
	for _, title := range titles {
		_, err := svc.AddStep(ctx, AddStepInput{
			ActorID: "author", ProjectID: projectID, Title: title, Images: []string{"img://" + title},
		})
		require.NoError(t, err)
	}

	project, err := svc.Get(ctx, projectID)
	require.NoError(t, err)
	var middle string
	for id, step := range project.Steps {
		if step.StepNumber == 2 {
			middle = id
		}
	}
	require.NotEmpty(t, middle)

	project, err = svc.DeleteStep(ctx, "author", projectID, middle)
	require.NoError(t, err)
	require.Len(t, project.Steps, 2)

	numbers := map[int]string{}
	for _, step := range project.Steps {
		numbers[step.StepNumber] = step.Title
	}
	assert.Equal(t, "cut", numbers[1])
	assert.Equal(t, "paint", numbers[2], "later steps shift down to stay contiguous")
}

func TestAdvanceToShareGate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "bottles", Needed: 5})
	advanceToConstruction(t, svc, projectID, materialID(t, svc, projectID))

	// No steps yet.
	_, err := svc.AdvanceToShare(ctx, "author", projectID)
	require.Error(t, err)

	_, err = svc.AddStep(ctx, AddStepInput{ActorID: "author", ProjectID: projectID, Title: "assemble"})
	require.NoError(t, err)

	// Step without an image still blocks.
	_, err = svc.AdvanceToShare(ctx, "author", projectID)
	require.Error(t, err)

	project, err := svc.Get(ctx, projectID)
	require.NoError(t, err)
	var stepID string
	for id := range project.Steps {
		stepID = id
	}
	_, err = svc.EditStep(ctx, EditStepInput{
		ActorID: "author", ProjectID: projectID, StepID: stepID, Images: []string{"img://assembly"},
	})
	require.NoError(t, err)

	project, err = svc.AdvanceToShare(ctx, "author", projectID)
	require.NoError(t, err)
	assert.Equal(t, enums.StageShare, project.WorkflowStage)
}

func shareReady(t *testing.T, svc Service) string {
	t.Helper()
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "bottles", Needed: 5})
	advanceToConstruction(t, svc, projectID, materialID(t, svc, projectID))
	_, err := svc.AddStep(ctx, AddStepInput{
		ActorID: "author", ProjectID: projectID, Title: "assemble", Images: []string{"img://a"},
	})
	require.NoError(t, err)
	_, err = svc.AdvanceToShare(ctx, "author", projectID)
	require.NoError(t, err)
	return projectID
}

func TestSharePaysRewardsOnce(t *testing.T) {
	svc, rewards, _ := newTestService(t)
	ctx := context.Background()
	projectID := shareReady(t, svc)

	// Public sharing needs a final image.
	_, err := svc.Share(ctx, ShareInput{
		ActorID: "author", ProjectID: projectID, Visibility: enums.VisibilityPublic,
	})
	require.Error(t, err)

	project, err := svc.Share(ctx, ShareInput{
		ActorID: "author", ProjectID: projectID,
		Visibility: enums.VisibilityPublic, FinalImages: []string{"img://done"},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ProjectStatusCompleted, project.Status)
	require.NotNil(t, project.CompletedAt)

	stats, err := rewards.GetStats(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ProjectCount)
	assert.Equal(t, 5, stats.RecyclingCount)
	// Flat project bonus plus 10 XP per recycled unit.
	assert.Equal(t, 100, stats.XP)

	_, err = svc.Share(ctx, ShareInput{
		ActorID: "author", ProjectID: projectID,
		Visibility: enums.VisibilityPublic, FinalImages: []string{"img://done"},
	})
	require.Error(t, err, "second share must not pay rewards again")
}

func TestEditPrivacyOnlyAfterCompletion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := shareReady(t, svc)

	_, err := svc.EditPrivacy(ctx, "author", projectID, enums.VisibilityPublic)
	require.Error(t, err, "privacy is locked until completion")

	_, err = svc.Share(ctx, ShareInput{
		ActorID: "author", ProjectID: projectID,
		Visibility: enums.VisibilityPrivate,
	})
	require.NoError(t, err)

	_, err = svc.EditPrivacy(ctx, "author", projectID, enums.VisibilityPublic)
	require.Error(t, err, "going public still needs a final image")

	project, err := svc.EditPrivacy(ctx, "author", projectID, enums.VisibilityPrivate)
	require.NoError(t, err)
	assert.Equal(t, enums.VisibilityPrivate, project.Visibility)
}

func TestDeleteOnlyAfterCompletion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := shareReady(t, svc)

	require.Error(t, svc.Delete(ctx, "author", projectID))

	_, err := svc.Share(ctx, ShareInput{ActorID: "author", ProjectID: projectID, Visibility: enums.VisibilityPrivate})
	require.NoError(t, err)

	require.Error(t, svc.Delete(ctx, "stranger", projectID))
	require.NoError(t, svc.Delete(ctx, "author", projectID))
}

func TestCreditMatchingMaterial(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	projectID := createProject(t, svc, MaterialInput{Name: "plastic bottles", Needed: 5})
	mid := materialID(t, svc, projectID)

	matched, err := svc.CreditMatchingMaterial(ctx, projectID, "plastic", 2)
	require.NoError(t, err)
	assert.Equal(t, mid, matched)

	// A miss is silent.
	matched, err = svc.CreditMatchingMaterial(ctx, projectID, "copper wire", 2)
	require.NoError(t, err)
	assert.Empty(t, matched)

	// Credits clamp at needed.
	_, err = svc.CreditMatchingMaterial(ctx, projectID, "plastic", 99)
	require.NoError(t, err)
	project, err := svc.Get(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 5, project.Materials[mid].Acquired)
	assert.True(t, project.Materials[mid].IsCompleted, "self-heal marks satisfied material complete")
}
