package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"flowsync/application/commands"
	"flowsync/application/commands/bus"
	"flowsync/application/ports"
	"flowsync/application/store"
	"flowsync/domain/core/aggregates"
	"flowsync/domain/services"
	"flowsync/pkg/errors"
	"flowsync/pkg/observability"
)

// SaveWorkflowHandler pushes the selected document to the service. The
// payload is normalized first so only persistable fields leave the
// client, and the stored shape returned by the service replaces the
// local copy on success. On failure local state is left exactly as it
// was so the user can retry.
type SaveWorkflowHandler struct {
	api     ports.WorkflowAPI
	store   *store.DocumentStore
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewSaveWorkflowHandler(api ports.WorkflowAPI, docs *store.DocumentStore, logger *zap.Logger, metrics *observability.Metrics) *SaveWorkflowHandler {
	return &SaveWorkflowHandler{api: api, store: docs, logger: logger, metrics: metrics}
}

// Handle implements bus.CommandHandler
func (h *SaveWorkflowHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.SaveWorkflowCommand)
	if !ok {
		return errors.NewInternalError("unexpected command type for SaveWorkflowHandler")
	}

	selected := h.store.Selected()
	if selected == nil || selected.ID != c.WorkflowID {
		// The user switched documents while the save was queued; the
		// intent no longer has a target.
		h.metrics.WriteCancelled()
		h.logger.Debug("skipping save, workflow no longer selected", zap.String("workflow_id", c.WorkflowID))
		return nil
	}

	normalized := services.NormalizeWorkflow(*selected)

	start := time.Now()
	stored, err := h.api.Save(ctx, &normalized)
	h.metrics.ObserveSaveDuration(time.Since(start).Seconds())
	if err != nil {
		h.metrics.WriteFailed()
		h.logger.Warn("workflow save failed",
			zap.String("workflow_id", c.WorkflowID),
			zap.Error(err))
		return err
	}

	h.metrics.WriteIssued()
	if stored != nil {
		h.store.UpsertWorkflow(*stored)
	}
	return nil
}

// FlushFunc adapts the handler to the write scheduler. The scheduler
// hands over the snapshot it captured when the quiescence window closed;
// the handler still re-reads the store so the write carries the latest
// edits rather than the possibly stale snapshot.
func (h *SaveWorkflowHandler) FlushFunc() func(wf aggregates.Workflow) {
	return func(wf aggregates.Workflow) {
		if err := h.Handle(context.Background(), commands.SaveWorkflowCommand{WorkflowID: wf.ID}); err != nil {
			h.logger.Warn("scheduled save failed", zap.String("workflow_id", wf.ID), zap.Error(err))
		}
	}
}
