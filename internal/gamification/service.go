// Package gamification keeps the per-user reward ledger: experience points,
// derived level, activity counters, badges and cosmetic borders.
package gamification

import (
	"context"

	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Service defines reward ledger operations.
type Service interface {
	GetStats(ctx context.Context, userID string) (*models.UserStats, error)
	AwardXP(ctx context.Context, userID string, amount int) (*models.UserStats, error)
	IncrementAction(ctx context.Context, userID string, input IncrementInput) (*models.UserStats, error)
	UnlockBorder(ctx context.Context, userID, borderID string, cost int) (*models.UserStats, error)
	EquipBorder(ctx context.Context, userID, borderID string) (*models.UserStats, error)
	Mutate(ctx context.Context, userID string, mutate func(*models.UserStats) error) (*models.UserStats, error)
}

type service struct {
	repo    Repository
	rewards config.RewardsConfig
	logg    *logger.Logger
}

// ServiceParams wires gamification dependencies.
type ServiceParams struct {
	Repo    Repository
	Rewards config.RewardsConfig
	Logger  *logger.Logger
}

// NewService wires the gamification service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gamification repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gamification logger required")
	}
	if params.Rewards.XPPerLevel <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "xp per level must be positive")
	}
	return &service{repo: params.Repo, rewards: params.Rewards, logg: params.Logger}, nil
}

func (s *service) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	stats, err := s.repo.GetStats(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read user stats")
	}
	s.normalize(&stats)
	return &stats, nil
}

func (s *service) AwardXP(ctx context.Context, userID string, amount int) (*models.UserStats, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if amount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "xp amount must not be negative")
	}
	return s.Mutate(ctx, userID, func(stats *models.UserStats) error {
		s.credit(stats, amount)
		return nil
	})
}

// IncrementInput describes an activity counter bump. CustomXP, when set,
// replaces the per-kind XP credit.
type IncrementInput struct {
	Kind     enums.ActionKind
	Count    int
	CustomXP *int
}

// IncrementAction bumps an activity counter and credits the XP that activity
// pays. Project completions pay nothing here unless CustomXP is supplied;
// their flat bonus goes through AwardXP.
func (s *service) IncrementAction(ctx context.Context, userID string, input IncrementInput) (*models.UserStats, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid action kind")
	}
	if input.Count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count must be positive")
	}
	return s.Mutate(ctx, userID, func(stats *models.UserStats) error {
		xp := 0
		switch input.Kind {
		case enums.ActionRecycle:
			stats.RecyclingCount += input.Count
			xp = s.rewards.RecycleXP * input.Count
		case enums.ActionDonate:
			stats.DonationCount += input.Count
			xp = s.rewards.DonateXP * input.Count
		case enums.ActionProject:
			stats.ProjectCount += input.Count
		}
		if input.CustomXP != nil {
			xp = *input.CustomXP
		}
		if xp > 0 {
			s.credit(stats, xp)
		}
		return nil
	})
}

func (s *service) UnlockBorder(ctx context.Context, userID, borderID string, cost int) (*models.UserStats, error) {
	if userID == "" || borderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and border id required")
	}
	if cost < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "border cost must not be negative")
	}
	return s.Mutate(ctx, userID, func(stats *models.UserStats) error {
		for _, held := range stats.UnlockedBorders {
			if held == borderID {
				return pkgerrors.New(pkgerrors.CodeConflict, "border already unlocked")
			}
		}
		if stats.EcoPoints < cost {
			return pkgerrors.New(pkgerrors.CodeValidation, "not enough eco points")
		}
		stats.EcoPoints -= cost
		stats.UnlockedBorders = append(stats.UnlockedBorders, borderID)
		return nil
	})
}

func (s *service) EquipBorder(ctx context.Context, userID, borderID string) (*models.UserStats, error) {
	if userID == "" || borderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and border id required")
	}
	return s.Mutate(ctx, userID, func(stats *models.UserStats) error {
		for _, held := range stats.UnlockedBorders {
			if held == borderID {
				stats.EquippedBorder = borderID
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "border not unlocked")
	})
}

// Mutate runs an arbitrary stat mutation inside the user-node transaction and
// re-derives level and threshold badges afterwards.
func (s *service) Mutate(ctx context.Context, userID string, mutate func(*models.UserStats) error) (*models.UserStats, error) {
	updated, err := s.repo.TransactStats(ctx, userID, func(stats *models.UserStats) error {
		if err := mutate(stats); err != nil {
			return err
		}
		s.normalize(stats)
		return nil
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil {
			return nil, coded
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user stats")
	}
	return &updated, nil
}

// credit adds XP. Eco points accrue alongside XP one for one and are spent
// independently on cosmetics.
func (s *service) credit(stats *models.UserStats, amount int) {
	stats.XP += amount
	stats.EcoPoints += amount
}

// normalize re-derives level from XP and appends any threshold badge the
// counters now satisfy. Badges are never removed here; the badge set is
// append-only aside from capstone reconciliation.
func (s *service) normalize(stats *models.UserStats) {
	stats.Level = 1 + stats.XP/s.rewards.XPPerLevel

	if stats.RecyclingCount >= s.rewards.RecycleBadgeAt && !enums.ContainsBadge(stats.Badges, enums.BadgeEcoWarrior) {
		stats.Badges = append(stats.Badges, enums.BadgeEcoWarrior)
	}
	if stats.DonationCount >= s.rewards.DonationBadgeAt && !enums.ContainsBadge(stats.Badges, enums.BadgeGenerousSoul) {
		stats.Badges = append(stats.Badges, enums.BadgeGenerousSoul)
	}
	// The capstone is also managed by the achievement evaluator; both paths
	// union the same id, so reaching the level threshold stays idempotent.
	if stats.Level >= s.rewards.CapstoneLevelAt && !enums.ContainsBadge(stats.Badges, enums.BadgeSierraMadre) {
		stats.Badges = append(stats.Badges, enums.BadgeSierraMadre)
	}
}
