package handlers

import (
	"context"

	"go.uber.org/zap"

	"flowsync/application/commands"
	"flowsync/application/commands/bus"
	"flowsync/application/ports"
	"flowsync/application/store"
	"flowsync/domain/core/validators"
	"flowsync/pkg/errors"
)

// ExecuteWorkflowHandler validates the selected document locally and
// then asks the service to build and run it. Validation failures never
// reach the wire.
type ExecuteWorkflowHandler struct {
	api       ports.WorkflowAPI
	store     *store.DocumentStore
	validator *validators.FlowValidator
	logger    *zap.Logger
}

func NewExecuteWorkflowHandler(api ports.WorkflowAPI, docs *store.DocumentStore, validator *validators.FlowValidator, logger *zap.Logger) *ExecuteWorkflowHandler {
	return &ExecuteWorkflowHandler{api: api, store: docs, validator: validator, logger: logger}
}

// Handle implements bus.CommandHandler
func (h *ExecuteWorkflowHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.ExecuteWorkflowCommand)
	if !ok {
		return errors.NewInternalError("unexpected command type for ExecuteWorkflowHandler")
	}

	selected := h.store.Selected()
	if selected == nil || selected.ID != c.WorkflowID {
		return errors.NewNotFoundError("workflow "+c.WorkflowID)
	}
	if err := h.validator.ValidateForBuild(selected.Definition); err != nil {
		return err
	}

	if err := h.api.Execute(ctx, c.WorkflowID); err != nil {
		h.logger.Warn("workflow execution failed", zap.String("workflow_id", c.WorkflowID), zap.Error(err))
		return err
	}
	h.logger.Info("workflow execution started", zap.String("workflow_id", c.WorkflowID))
	return nil
}
