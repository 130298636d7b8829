package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/ecoforge/ecoforge-backend/internal/projects"
	"github.com/ecoforge/ecoforge-backend/internal/requests"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

const defaultBackfillBatch = 200

// MaterialBackfillJobParams configure the reconciliation sweep.
type MaterialBackfillJobParams struct {
	Logger    *logger.Logger
	Requests  requests.Repository
	Projects  projects.Service
	BatchSize int
}

// NewMaterialBackfillJob builds the job that repairs material credits lost to
// best-effort approval failures. It re-runs the matcher for every approved
// request still missing its backfill flag.
func NewMaterialBackfillJob(params MaterialBackfillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Projects == nil {
		return nil, fmt.Errorf("projects service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBackfillBatch
	}
	return &materialBackfillJob{
		logg:     params.Logger,
		requests: params.Requests,
		projects: params.Projects,
		batch:    batch,
	}, nil
}

type materialBackfillJob struct {
	logg     *logger.Logger
	requests requests.Repository
	projects projects.Service
	batch    int
}

func (j *materialBackfillJob) Name() string { return "material-backfill" }

func (j *materialBackfillJob) Run(ctx context.Context) error {
	byID, err := j.requests.List(ctx)
	if err != nil {
		return fmt.Errorf("list requests: %w", err)
	}

	var errs []error
	scanned, credited, flagged := 0, 0, 0
	for id, request := range byID {
		if scanned >= j.batch {
			break
		}
		if request.Status != enums.RequestStatusApproved && request.Status != enums.RequestStatusCompleted {
			continue
		}
		if request.MaterialBackfilled || request.ProjectID == "" {
			continue
		}
		scanned++

		materialID, err := j.projects.CreditMatchingMaterial(ctx, request.ProjectID, request.Title, request.Quantity)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", id, err))
			continue
		}
		if materialID == "" {
			// Still no matching material. Leave the flag unset so a later
			// sweep retries after the project gains one.
			continue
		}
		credited++
		if err := j.requests.Update(ctx, id, map[string]any{"materialBackfilled": true}); err != nil {
			errs = append(errs, fmt.Errorf("flag request %s: %w", id, err))
			continue
		}
		flagged++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":  scanned,
		"credited": credited,
		"flagged":  flagged,
	})
	j.logg.Info(logCtx, "material backfill complete")
	return multierr.Combine(errs...)
}
