package cron

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	"github.com/ecoforge/ecoforge-backend/internal/projects"
	"github.com/ecoforge/ecoforge-backend/internal/quantity"
	"github.com/ecoforge/ecoforge-backend/internal/requests"
	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

func TestMaterialBackfillRepairsMissedCredits(t *testing.T) {
	store := keytree.NewMemoryStore()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ctx := context.Background()

	ledger, err := quantity.NewLedger(store, logg)
	require.NoError(t, err)
	rewards, err := gamification.NewService(gamification.ServiceParams{
		Repo:    gamification.NewRepository(store),
		Rewards: config.RewardsConfig{RecycleXP: 10, DonateXP: 20, XPPerLevel: 100, RecycleBadgeAt: 10, DonationBadgeAt: 5, CapstoneLevelAt: 5},
		Logger:  logg,
	})
	require.NoError(t, err)
	projectSvc, err := projects.NewService(projects.ServiceParams{
		Repo: projects.NewRepository(store), Ledger: ledger, Rewards: rewards,
		Config: config.RewardsConfig{ProjectXP: 50}, Logger: logg,
	})
	require.NoError(t, err)

	project, err := projectSvc.Create(ctx, projects.CreateInput{
		AuthorID: "builder", Title: "Greenhouse",
		Materials: []projects.MaterialInput{{Name: "plastic bottles", Needed: 6}},
	})
	require.NoError(t, err)

	// An approval that debited the donation but never credited the material.
	requestRepo := requests.NewRepository(store)
	require.NoError(t, requestRepo.Create(ctx, models.Request{
		ID: "r1", DonationID: "d1", RequesterID: "builder", OwnerID: "owner",
		Title: "plastic", Status: enums.RequestStatusApproved, Quantity: 4,
		ProjectID: project.ID,
	}))
	// Already reconciled; must be skipped.
	require.NoError(t, requestRepo.Create(ctx, models.Request{
		ID: "r2", DonationID: "d1", RequesterID: "builder", OwnerID: "owner",
		Title: "plastic", Status: enums.RequestStatusApproved, Quantity: 2,
		ProjectID: project.ID, MaterialBackfilled: true,
	}))
	// Pending requests never credit.
	require.NoError(t, requestRepo.Create(ctx, models.Request{
		ID: "r3", DonationID: "d1", RequesterID: "builder", OwnerID: "owner",
		Title: "plastic", Status: enums.RequestStatusPending, Quantity: 2,
		ProjectID: project.ID,
	}))

	job, err := NewMaterialBackfillJob(MaterialBackfillJobParams{
		Logger: logg, Requests: requestRepo, Projects: projectSvc,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(ctx))

	reloaded, err := projectSvc.Get(ctx, project.ID)
	require.NoError(t, err)
	for _, material := range reloaded.Materials {
		assert.Equal(t, 4, material.Acquired, "only the unreconciled approval credits")
	}

	repaired, err := requestRepo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, repaired.MaterialBackfilled)

	// A second sweep finds nothing to do.
	require.NoError(t, job.Run(ctx))
	reloaded, err = projectSvc.Get(ctx, project.ID)
	require.NoError(t, err)
	for _, material := range reloaded.Materials {
		assert.Equal(t, 4, material.Acquired)
	}
}

func TestBackfillLeavesUnmatchedForLaterSweep(t *testing.T) {
	store := keytree.NewMemoryStore()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ctx := context.Background()

	ledger, err := quantity.NewLedger(store, logg)
	require.NoError(t, err)
	rewards, err := gamification.NewService(gamification.ServiceParams{
		Repo:    gamification.NewRepository(store),
		Rewards: config.RewardsConfig{RecycleXP: 10, DonateXP: 20, XPPerLevel: 100, RecycleBadgeAt: 10, DonationBadgeAt: 5, CapstoneLevelAt: 5},
		Logger:  logg,
	})
	require.NoError(t, err)
	projectSvc, err := projects.NewService(projects.ServiceParams{
		Repo: projects.NewRepository(store), Ledger: ledger, Rewards: rewards,
		Config: config.RewardsConfig{ProjectXP: 50}, Logger: logg,
	})
	require.NoError(t, err)

	project, err := projectSvc.Create(ctx, projects.CreateInput{
		AuthorID: "builder", Title: "Greenhouse",
		Materials: []projects.MaterialInput{{Name: "copper wire", Needed: 6}},
	})
	require.NoError(t, err)

	requestRepo := requests.NewRepository(store)
	require.NoError(t, requestRepo.Create(ctx, models.Request{
		ID: "r1", DonationID: "d1", RequesterID: "builder", OwnerID: "owner",
		Title: "plastic", Status: enums.RequestStatusApproved, Quantity: 4,
		ProjectID: project.ID,
	}))

	job, err := NewMaterialBackfillJob(MaterialBackfillJobParams{
		Logger: logg, Requests: requestRepo, Projects: projectSvc,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(ctx))

	kept, err := requestRepo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, kept.MaterialBackfilled, "no match keeps the flag unset for retry")
}
