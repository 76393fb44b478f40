package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"flowsync/application/services"
	"flowsync/pkg/common"
	"flowsync/pkg/errors"
	"flowsync/pkg/utils"
)

// SessionHandler serves the transcript surface.
type SessionHandler struct {
	sync    *services.SyncService
	errorsH *errors.ErrorHandler
	logger  *zap.Logger
}

func NewSessionHandler(sync *services.SyncService, errorsH *errors.ErrorHandler, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sync: sync, errorsH: errorsH, logger: logger}
}

type createSessionRequest struct {
	WorkflowID string `json:"workflow_id" validate:"required"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorsH.Handle(w, r, errors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}

	id, err := h.sync.CreateSession(r.Context(), req.WorkflowID)
	if err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

// SelectSession handles POST /sessions/{sessionID}/select
func (h *SessionHandler) SelectSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.sync.SelectSession(r.Context(), id); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMessages handles GET /sessions/{sessionID}/messages. The transcript
// is served from the local store; selecting the session keeps it fresh.
func (h *SessionHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session := h.sync.Snapshot().Session
	if session == nil || session.ID != id {
		h.errorsH.Handle(w, r, errors.NewNotFoundError("session "+id+" is not selected"))
		return
	}

	params := common.ExtractPaginationParams(r)
	total := len(session.Messages)
	start := params.CalculateOffset()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	common.RespondJSON(w, http.StatusOK, common.NewPaginatedResult(session.Messages[start:end], params.Page, params.PageSize, total))
}

type submitRequest struct {
	Text string `json:"text" validate:"required"`
}

// Submit handles POST /messages. Routing between an existing session and
// the first-message flow happens in the sync facade.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorsH.Handle(w, r, errors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}

	if err := h.sync.Submit(r.Context(), req.Text); err != nil {
		h.errorsH.Handle(w, r, err)
		return
	}

	resp := createSessionResponse{}
	if session := h.sync.Snapshot().Session; session != nil {
		resp.SessionID = session.ID
	}
	common.RespondJSON(w, http.StatusAccepted, resp)
}
