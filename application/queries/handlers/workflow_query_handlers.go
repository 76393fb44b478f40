package handlers

import (
	"context"

	"go.uber.org/zap"

	"flowsync/application/ports"
	"flowsync/application/queries"
	"flowsync/application/queries/bus"
	"flowsync/application/store"
	"flowsync/pkg/errors"
)

// ListWorkflowsHandler refreshes the local document list from the
// service and returns it.
type ListWorkflowsHandler struct {
	api    ports.WorkflowAPI
	store  *store.DocumentStore
	logger *zap.Logger
}

func NewListWorkflowsHandler(api ports.WorkflowAPI, docs *store.DocumentStore, logger *zap.Logger) *ListWorkflowsHandler {
	return &ListWorkflowsHandler{api: api, store: docs, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *ListWorkflowsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	if _, ok := query.(queries.ListWorkflowsQuery); !ok {
		return nil, errors.NewInternalError("unexpected query type for ListWorkflowsHandler")
	}

	workflows, err := h.api.List(ctx)
	if err != nil {
		return nil, err
	}
	h.store.SetWorkflows(workflows)
	h.logger.Debug("workflow list refreshed", zap.Int("count", len(workflows)))
	return workflows, nil
}

// GetWorkflowHandler fetches one document and merges it into the store.
type GetWorkflowHandler struct {
	api    ports.WorkflowAPI
	store  *store.DocumentStore
	logger *zap.Logger
}

func NewGetWorkflowHandler(api ports.WorkflowAPI, docs *store.DocumentStore, logger *zap.Logger) *GetWorkflowHandler {
	return &GetWorkflowHandler{api: api, store: docs, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *GetWorkflowHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetWorkflowQuery)
	if !ok {
		return nil, errors.NewInternalError("unexpected query type for GetWorkflowHandler")
	}

	wf, err := h.api.Get(ctx, q.WorkflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, errors.NewNotFoundError("workflow " + q.WorkflowID)
	}
	h.store.UpsertWorkflow(*wf)
	return wf, nil
}
