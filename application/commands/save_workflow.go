package commands

import (
	"flowsync/pkg/errors"
)

// SaveWorkflowCommand persists the currently selected workflow. The
// handler snapshots the document at execution time, so the command only
// names which document the intent belongs to.
type SaveWorkflowCommand struct {
	WorkflowID string `validate:"required"`
}

// Validate implements bus.Command
func (c SaveWorkflowCommand) Validate() error {
	if c.WorkflowID == "" {
		return errors.NewValidationError("workflow id is required")
	}
	return nil
}
