package models

import (
	"time"

	"github.com/ecoforge/ecoforge-backend/pkg/enums"
)

// Project is a recycling build tracked through the three-stage workflow.
// Field names follow the established tree schema: the project node mixes
// camelCase and snake_case because different client generations wrote it.
type Project struct {
	ID          string              `json:"id"`
	AuthorID    string              `json:"authorId"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Status      enums.ProjectStatus `json:"status"`
	Visibility  enums.Visibility    `json:"visibility"`
	// WorkflowStage only ever increases; there is no compensating transition.
	WorkflowStage enums.WorkflowStage `json:"workflow_stage"`
	Materials     map[string]Material `json:"materials,omitempty"`
	Steps         map[string]Step     `json:"steps,omitempty"`
	FinalImages   []string            `json:"final_images,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
}

// Material is a named, quantified requirement satisfiable by approved
// requests. Acquired is bumped from a different code path than IsCompleted,
// so readers must treat IsCompleted as derived and self-heal it.
type Material struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Unit          string `json:"unit"`
	Needed        int    `json:"needed"`
	Acquired      int    `json:"acquired"`
	IsCompleted   bool   `json:"is_completed"`
	EvidenceImage string `json:"evidence_image,omitempty"`
}

// Satisfied reports whether the requirement is met on quantities alone.
func (m Material) Satisfied() bool {
	return m.Acquired >= m.Needed
}

// EffectiveQuantity is the amount counted toward recycling rewards.
func (m Material) EffectiveQuantity() int {
	if m.Acquired > 0 {
		return m.Acquired
	}
	return m.Needed
}

// Step is one build instruction. Numbers are 1-based and contiguous; deleting
// a step renumbers the rest.
type Step struct {
	ID          string   `json:"id"`
	StepNumber  int      `json:"step_number"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
}
