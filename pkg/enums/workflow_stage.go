package enums

import "fmt"

// WorkflowStage is the project's build phase. Stages only ever advance.
type WorkflowStage int

const (
	StagePreparation  WorkflowStage = 1
	StageConstruction WorkflowStage = 2
	StageShare        WorkflowStage = 3
)

// String implements fmt.Stringer.
func (w WorkflowStage) String() string {
	switch w {
	case StagePreparation:
		return "preparation"
	case StageConstruction:
		return "construction"
	case StageShare:
		return "share"
	}
	return fmt.Sprintf("stage(%d)", int(w))
}

// IsValid reports whether the value is a known WorkflowStage.
func (w WorkflowStage) IsValid() bool {
	return w >= StagePreparation && w <= StageShare
}

// Next returns the following stage and whether one exists.
func (w WorkflowStage) Next() (WorkflowStage, bool) {
	if w >= StageShare {
		return w, false
	}
	return w + 1, true
}
