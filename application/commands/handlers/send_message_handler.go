package handlers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"flowsync/application/commands"
	"flowsync/application/commands/bus"
	"flowsync/application/ports"
	"flowsync/application/store"
	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/domain/core/valueobjects"
	"flowsync/pkg/errors"
	"flowsync/pkg/observability"
)

// SessionCreatedFunc is invoked after the service confirms a first
// message, carrying the id of the session it created. The sync facade
// uses it to navigate to the new transcript.
type SessionCreatedFunc func(ctx context.Context, sessionID, workflowID string)

// SendMessageHandler runs the optimistic submission pipeline for both
// existing sessions and first messages. At most one submission may be
// in flight per conversation; a second submit while the first is
// pending is rejected, not queued.
type SendMessageHandler struct {
	chat             ports.ChatAPI
	store            *store.DocumentStore
	logger           *zap.Logger
	metrics          *observability.Metrics
	onSessionCreated SessionCreatedFunc

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSendMessageHandler(chat ports.ChatAPI, docs *store.DocumentStore, logger *zap.Logger, metrics *observability.Metrics) *SendMessageHandler {
	return &SendMessageHandler{
		chat:     chat,
		store:    docs,
		logger:   logger,
		metrics:  metrics,
		inFlight: make(map[string]struct{}),
	}
}

// OnSessionCreated registers the navigation callback for first messages.
func (h *SendMessageHandler) OnSessionCreated(fn SessionCreatedFunc) {
	h.onSessionCreated = fn
}

// Handle implements bus.CommandHandler
func (h *SendMessageHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case commands.SendMessageCommand:
		return h.send(ctx, c.SessionID, c.Trimmed())
	case commands.SendFirstMessageCommand:
		return h.sendFirst(ctx, c.WorkflowID, c.Trimmed())
	default:
		return errors.NewInternalError("unexpected command type for SendMessageHandler")
	}
}

func (h *SendMessageHandler) send(ctx context.Context, sessionID, text string) error {
	if !h.acquire(sessionID) {
		return errors.NewConflictError("a message for this session is already in flight").WithCode("SEND_IN_FLIGHT")
	}
	defer h.release(sessionID)

	h.insertProvisionals(sessionID, text)

	result, err := h.chat.Send(ctx, sessionID, text)
	if err != nil {
		h.rollback(sessionID, "", err)
		return err
	}

	h.confirm(sessionID, result)
	return nil
}

func (h *SendMessageHandler) sendFirst(ctx context.Context, workflowID, text string) error {
	// The session does not exist yet, so the in-flight guard keys on the
	// workflow the draft belongs to.
	key := "new:" + workflowID
	if !h.acquire(key) {
		return errors.NewConflictError("a first message for this workflow is already in flight").WithCode("SEND_IN_FLIGHT")
	}
	defer h.release(key)

	// Stage the optimistic pair in a draft session so the transcript
	// renders immediately even though no server session exists.
	h.store.Apply(func(s *store.State) {
		if s.Session == nil || !s.Session.IsDraft() {
			s.Session = &aggregates.ChatSession{WorkflowID: workflowID, CreatedAt: time.Now().UTC()}
		}
		h.stagePair(s.Session, "", text)
	})

	result, err := h.chat.SendFirst(ctx, workflowID, text)
	if err != nil {
		h.rollback("", workflowID, err)
		return err
	}
	if result == nil || result.SessionID == "" {
		err := errors.NewTransportError("send first message", nil).WithCode("MISSING_SESSION_ID")
		h.rollback("", workflowID, err)
		return err
	}

	// Promote the draft to the real session before confirming, so the
	// provisional sweep and any response record land on the right id.
	h.store.Apply(func(s *store.State) {
		if s.Session != nil && s.Session.IsDraft() {
			s.Session.ID = result.SessionID
			for i := range s.Session.Messages {
				s.Session.Messages[i].SessionID = result.SessionID
			}
		}
	})
	h.confirm(result.SessionID, result)

	if h.onSessionCreated != nil {
		h.onSessionCreated(ctx, result.SessionID, workflowID)
	}
	return nil
}

func (h *SendMessageHandler) acquire(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.inFlight[key]; busy {
		return false
	}
	h.inFlight[key] = struct{}{}
	return true
}

func (h *SendMessageHandler) release(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, key)
}

// insertProvisionals stages the optimistic user message together with a
// generating assistant placeholder in the live session.
func (h *SendMessageHandler) insertProvisionals(sessionID, text string) {
	h.store.Apply(func(s *store.State) {
		if s.Session == nil || s.Session.ID != sessionID {
			return
		}
		h.stagePair(s.Session, sessionID, text)
	})
}

func (h *SendMessageHandler) stagePair(session *aggregates.ChatSession, sessionID, text string) {
	now := time.Now().UTC()
	body := text
	session.InsertMessage(entities.ChatMessage{
		ID:        valueobjects.NewProvisionalID(valueobjects.ProvisionalUserMessage),
		SessionID: sessionID,
		Role:      entities.RoleUser,
		Message:   &body,
		CreatedAt: now,
	})
	session.InsertMessage(entities.ChatMessage{
		ID:        valueobjects.NewProvisionalID(valueobjects.ProvisionalAssistantPlaceholder),
		SessionID: sessionID,
		Role:      entities.RoleAssistant,
		Metadata:  map[string]interface{}{"status": entities.MetadataStatusGenerating},
		CreatedAt: now.Add(time.Millisecond),
	})
	h.metrics.OptimisticInsert()
	h.metrics.OptimisticInsert()
}

// confirm removes every provisional record and, when the service echoed
// the stored message back, inserts the authoritative copy. Records that
// arrive via the push channel instead are deduplicated by id, so the
// order of confirmation and notification does not matter.
func (h *SendMessageHandler) confirm(sessionID string, result *ports.SendResult) {
	h.store.Apply(func(s *store.State) {
		if s.Session == nil || s.Session.ID != sessionID {
			return
		}
		s.Session.RemoveProvisional()
		if result != nil && result.Message != nil {
			s.Session.InsertMessage(*result.Message)
		}
	})
}

// rollback removes the staged pair after a failed submission. An empty
// sessionID targets the draft created for a first message, and matches
// only a draft for the given workflow: the user may have navigated to a
// real session with its own in-flight pair, and that pair is not ours
// to sweep.
func (h *SendMessageHandler) rollback(sessionID, workflowID string, cause error) {
	h.store.Apply(func(s *store.State) {
		if s.Session == nil {
			return
		}
		if sessionID != "" {
			if s.Session.ID != sessionID {
				return
			}
		} else if !s.Session.IsDraft() || s.Session.WorkflowID != workflowID {
			return
		}
		if removed := s.Session.RemoveProvisional(); removed > 0 {
			h.metrics.Rollback()
		}
	})
	h.logger.Warn("message submission failed, rolled back optimistic records",
		zap.String("session_id", sessionID),
		zap.Error(cause))
}
