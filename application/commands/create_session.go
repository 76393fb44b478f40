package commands

import (
	"flowsync/pkg/errors"
)

// CreateSessionCommand opens a new chat session bound to a workflow.
type CreateSessionCommand struct {
	WorkflowID string
}

// Validate implements bus.Command
func (c CreateSessionCommand) Validate() error {
	if c.WorkflowID == "" {
		return errors.NewValidationError("workflow id is required")
	}
	return nil
}

// ExecuteWorkflowCommand asks the server to build and run a workflow.
// The handler validates the flow locally first so obviously broken
// definitions never hit the API.
type ExecuteWorkflowCommand struct {
	WorkflowID string
}

// Validate implements bus.Command
func (c ExecuteWorkflowCommand) Validate() error {
	if c.WorkflowID == "" {
		return errors.NewValidationError("workflow id is required")
	}
	return nil
}
