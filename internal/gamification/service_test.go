package gamification

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

func testRewards() config.RewardsConfig {
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

func newTestService(t *testing.T) (Service, *keytree.MemoryStore) {
	t.Helper()
	store := keytree.NewMemoryStore()
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(store),
		Rewards: testRewards(),
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, store
}

func TestAwardXPDerivesLevel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stats, err := svc.AwardXP(ctx, "u1", 90)
	require.NoError(t, err)
	assert.Equal(t, 90, stats.XP)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 90, stats.EcoPoints)

	stats, err = svc.AwardXP(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.XP)
	assert.Equal(t, 2, stats.Level, "level is 1 + xp/100")
}

func TestIncrementActionCreditsPerKindXP(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stats, err := svc.IncrementAction(ctx, "u1", IncrementInput{Kind: enums.ActionRecycle, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.RecyclingCount)
	assert.Equal(t, 30, stats.XP)

	stats, err = svc.IncrementAction(ctx, "u1", IncrementInput{Kind: enums.ActionDonate, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DonationCount)
	assert.Equal(t, 50, stats.XP)

	// Project completions move the counter only.
	stats, err = svc.IncrementAction(ctx, "u1", IncrementInput{Kind: enums.ActionProject, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ProjectCount)
	assert.Equal(t, 50, stats.XP)
}

func TestIncrementActionCustomXPOverrides(t *testing.T) {
	svc, _ := newTestService(t)
	custom := 7

	stats, err := svc.IncrementAction(context.Background(), "u1", IncrementInput{
		Kind:     enums.ActionRecycle,
		Count:    2,
		CustomXP: &custom,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RecyclingCount)
	assert.Equal(t, 7, stats.XP)
}

func TestThresholdBadges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stats, err := svc.IncrementAction(ctx, "u1", IncrementInput{Kind: enums.ActionRecycle, Count: 9})
	require.NoError(t, err)
	assert.False(t, enums.ContainsBadge(stats.Badges, enums.BadgeEcoWarrior))

	stats, err = svc.IncrementAction(ctx, "u1", IncrementInput{Kind: enums.ActionRecycle, Count: 1})
	require.NoError(t, err)
	assert.True(t, enums.ContainsBadge(stats.Badges, enums.BadgeEcoWarrior))

	stats, err = svc.IncrementAction(ctx, "u1", IncrementInput{Kind: enums.ActionDonate, Count: 5})
	require.NoError(t, err)
	assert.True(t, enums.ContainsBadge(stats.Badges, enums.BadgeGenerousSoul))
}

func TestBadgeUnionIsCaseInsensitive(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// A historic client wrote the badge with different casing.
	require.NoError(t, store.Set(ctx, "users/u1", map[string]any{
		"displayName":    "Ada",
		"recyclingCount": 9,
		"badges":         []string{"Eco_Warrior"},
	}))

	stats, err := svc.IncrementAction(ctx, "u1", IncrementInput{Kind: enums.ActionRecycle, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Eco_Warrior"}, stats.Badges, "existing casing must not duplicate")
}

func TestStatsMutationPreservesProfileFields(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "users/u1", map[string]any{
		"displayName": "Ada",
		"avatarUrl":   "https://example.test/a.png",
		"xp":          40,
	}))

	_, err := svc.AwardXP(ctx, "u1", 10)
	require.NoError(t, err)

	raw := map[string]any{}
	require.NoError(t, store.Get(ctx, "users/u1", &raw))
	assert.Equal(t, "Ada", raw["displayName"])
	assert.Equal(t, "https://example.test/a.png", raw["avatarUrl"])
	assert.EqualValues(t, 50, raw["xp"])
}

func TestCapstoneLevelThreshold(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.AwardXP(context.Background(), "u1", 400)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Level)
	assert.True(t, enums.ContainsBadge(stats.Badges, enums.BadgeSierraMadre))
}

func TestBorderUnlockAndEquip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AwardXP(ctx, "u1", 100)
	require.NoError(t, err)

	_, err = svc.EquipBorder(ctx, "u1", "forest")
	require.Error(t, err, "cannot equip a locked border")

	stats, err := svc.UnlockBorder(ctx, "u1", "forest", 60)
	require.NoError(t, err)
	assert.Equal(t, 40, stats.EcoPoints)
	assert.Contains(t, stats.UnlockedBorders, "forest")

	_, err = svc.UnlockBorder(ctx, "u1", "forest", 60)
	require.Error(t, err, "double unlock must fail")

	stats, err = svc.EquipBorder(ctx, "u1", "forest")
	require.NoError(t, err)
	assert.Equal(t, "forest", stats.EquippedBorder)

	_, err = svc.UnlockBorder(ctx, "u1", "ocean", 100)
	require.Error(t, err, "cannot spend more eco points than held")
}

func TestMutateSurfacesCodedErrors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Mutate(context.Background(), "u1", func(stats *models.UserStats) error {
		return assert.AnError
	})
	require.Error(t, err)
}
