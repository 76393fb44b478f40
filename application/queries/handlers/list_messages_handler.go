package handlers

import (
	"context"

	"go.uber.org/zap"

	"flowsync/application/ports"
	"flowsync/application/queries"
	"flowsync/application/queries/bus"
	"flowsync/application/store"
	"flowsync/domain/core/entities"
	"flowsync/pkg/errors"
)

// ListMessagesHandler loads a session's transcript from the service and
// installs it in the store. Provisional records already staged locally
// survive the load: the fetched list is merged, not assigned, so an
// in-flight optimistic send is not wiped out by a concurrent refresh.
type ListMessagesHandler struct {
	chat   ports.ChatAPI
	store  *store.DocumentStore
	logger *zap.Logger
}

func NewListMessagesHandler(chat ports.ChatAPI, docs *store.DocumentStore, logger *zap.Logger) *ListMessagesHandler {
	return &ListMessagesHandler{chat: chat, store: docs, logger: logger}
}

// Handle implements bus.QueryHandler
func (h *ListMessagesHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListMessagesQuery)
	if !ok {
		return nil, errors.NewInternalError("unexpected query type for ListMessagesHandler")
	}

	messages, err := h.chat.ListMessages(ctx, q.SessionID)
	if err != nil {
		return nil, err
	}
	entities.SortMessages(messages)

	h.store.Apply(func(s *store.State) {
		if s.Session == nil || s.Session.ID != q.SessionID {
			return
		}
		for _, msg := range messages {
			if !s.Session.InsertMessage(msg) {
				s.Session.UpdateMessage(msg)
			}
		}
	})

	h.logger.Debug("transcript loaded",
		zap.String("session_id", q.SessionID),
		zap.Int("count", len(messages)))
	return messages, nil
}
