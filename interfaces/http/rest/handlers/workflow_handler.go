// Package handlers exposes the synchronization core to a local UI
// process over HTTP.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"flowsync/application/services"
	"flowsync/domain/core/entities"
	"flowsync/domain/core/valueobjects"
	"flowsync/pkg/common"
	"flowsync/pkg/errors"
	"flowsync/pkg/utils"
)

const maxBodyBytes = 1 << 20

// WorkflowHandler serves the document surface: listing, selection,
// saving, execution and canvas edits.
type WorkflowHandler struct {
	sync    *services.SyncService
	flow    *services.FlowService
	errorsH *errors.ErrorHandler
	logger  *zap.Logger
}

func NewWorkflowHandler(sync *services.SyncService, flow *services.FlowService, errorsH *errors.ErrorHandler, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{sync: sync, flow: flow, errorsH: errorsH, logger: logger}
}

// ListWorkflows handles GET /workflows
func (h *WorkflowHandler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.sync.RefreshWorkflows(r.Context())
	if err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, workflows)
}

// SelectWorkflow handles POST /workflows/{workflowID}/select
func (h *WorkflowHandler) SelectWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	wf, err := h.sync.SelectWorkflow(r.Context(), id)
	if err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, wf)
}

// DeselectWorkflow handles DELETE /selection
func (h *WorkflowHandler) DeselectWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.DeselectWorkflow(); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveNow handles POST /workflows/{workflowID}/save
func (h *WorkflowHandler) SaveNow(w http.ResponseWriter, r *http.Request) {
	h.sync.SaveNow()
	w.WriteHeader(http.StatusAccepted)
}

type validateResponse struct {
	Buildable      bool   `json:"buildable"`
	Reason         string `json:"reason,omitempty"`
	UnsavedChanges bool   `json:"unsaved_changes"`
}

// ValidateWorkflow handles GET /workflows/{workflowID}/validate
func (h *WorkflowHandler) ValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	resp := validateResponse{Buildable: true, UnsavedChanges: h.flow.HasUnsavedChanges()}
	if err := h.flow.ValidateForBuild(); err != nil {
		if errors.IsNotFound(err) {
			h.errorsH.Handle(w, r, err)
			return
		}
		resp.Buildable = false
		resp.Reason = err.Error()
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// ExecuteWorkflow handles POST /workflows/{workflowID}/execute
func (h *WorkflowHandler) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workflowID")
	if err := h.sync.Execute(r.Context(), id); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type addNodeRequest struct {
	Type string  `json:"type" validate:"required"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type addNodeResponse struct {
	ID string `json:"id"`
}

// AddNode handles POST /nodes
func (h *WorkflowHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorsH.Handle(w, r, errors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	pos, ok := valueobjects.NewPosition(req.X, req.Y)
	if !ok {
		h.errorsH.Handle(w, r, errors.NewValidationError("position coordinates must be finite"))
		return
	}

	id, err := h.flow.AddNode(entities.NodeKind(req.Type), pos)
	if err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, addNodeResponse{ID: id})
}

type moveNodeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MoveNode handles PUT /nodes/{nodeID}/position
func (h *WorkflowHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var req moveNodeRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorsH.Handle(w, r, errors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	pos, ok := valueobjects.NewPosition(req.X, req.Y)
	if !ok {
		h.errorsH.Handle(w, r, errors.NewValidationError("position coordinates must be finite"))
		return
	}

	h.flow.MoveNode(chi.URLParam(r, "nodeID"), pos)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveNode handles DELETE /nodes/{nodeID}
func (h *WorkflowHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	h.flow.RemoveNode(chi.URLParam(r, "nodeID"))
	w.WriteHeader(http.StatusNoContent)
}

type connectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// Connect handles POST /edges
func (h *WorkflowHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorsH.Handle(w, r, errors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}

	if err := h.flow.Connect(req.Source, req.Target); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// RemoveEdge handles DELETE /edges/{edgeID}
func (h *WorkflowHandler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	h.flow.RemoveEdge(chi.URLParam(r, "edgeID"))
	w.WriteHeader(http.StatusNoContent)
}
