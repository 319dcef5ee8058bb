package services

import (
	"slices"

	"github.com/machinehq/flowbuilder/pkg/models"
)

// transitions lists the statuses each status may move to. Archived is terminal.
var transitions = map[models.WorkflowStatus][]models.WorkflowStatus{
	models.WorkflowStatusDraft:    {models.WorkflowStatusActive, models.WorkflowStatusArchived},
	models.WorkflowStatusActive:   {models.WorkflowStatusPaused, models.WorkflowStatusDisabled, models.WorkflowStatusArchived},
	models.WorkflowStatusPaused:   {models.WorkflowStatusActive, models.WorkflowStatusArchived},
	models.WorkflowStatusDisabled: {models.WorkflowStatusActive, models.WorkflowStatusArchived},
	models.WorkflowStatusArchived: {},
}

// CanTransition reports whether a workflow in status from may move to status to.
func CanTransition(from, to models.WorkflowStatus) bool {
	return slices.Contains(transitions[from], to)
}

// IsExecutable reports whether a workflow may be run: active, or a draft with at least one node.
func IsExecutable(workflow *models.Workflow) bool {
	switch workflow.Status {
	case models.WorkflowStatusActive:
		return true
	case models.WorkflowStatusDraft:
		return len(workflow.Definition.Nodes) > 0
	default:
		return false
	}
}
