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
	"flowsync/pkg/errors"
)

// CreateSessionHandler opens a chat session for a workflow and selects
// it as the live transcript.
type CreateSessionHandler struct {
	chat   ports.ChatAPI
	store  *store.DocumentStore
	logger *zap.Logger
}

func NewCreateSessionHandler(chat ports.ChatAPI, docs *store.DocumentStore, logger *zap.Logger) *CreateSessionHandler {
	return &CreateSessionHandler{chat: chat, store: docs, logger: logger}
}

// Handle implements bus.CommandHandler
func (h *CreateSessionHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.CreateSessionCommand)
	if !ok {
		return errors.NewInternalError("unexpected command type for CreateSessionHandler")
	}

	id, err := h.chat.CreateSession(ctx, c.WorkflowID)
	if err != nil {
		h.logger.Warn("session creation failed", zap.String("workflow_id", c.WorkflowID), zap.Error(err))
		return err
	}

	h.store.SelectSession(&aggregates.ChatSession{
		ID:         id,
		WorkflowID: c.WorkflowID,
		CreatedAt:  time.Now().UTC(),
	})
	h.logger.Info("session created", zap.String("session_id", id), zap.String("workflow_id", c.WorkflowID))
	return nil
}
