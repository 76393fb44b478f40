// Package ports declares the interfaces the synchronization core consumes
// from its external collaborators. Implementations live in infrastructure.
package ports

import (
	"context"

	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/domain/events"
)

// WorkflowAPI is the write/read endpoint contract for graph documents.
// Save is idempotent at the whole-document level and returns the
// authoritative stored shape, which overrides local state on success.
type WorkflowAPI interface {
	List(ctx context.Context) ([]aggregates.Workflow, error)
	Get(ctx context.Context, id string) (*aggregates.Workflow, error)
	Save(ctx context.Context, wf *aggregates.Workflow) (*aggregates.Workflow, error)
	Execute(ctx context.Context, id string) error
}

// SendResult is the authoritative reply to a message submission. Message
// may be nil: the service is free to acknowledge only and deliver the real
// records exclusively via the push channel.
type SendResult struct {
	SessionID string
	Message   *entities.ChatMessage
}

// ChatAPI is the transcript endpoint contract.
type ChatAPI interface {
	CreateSession(ctx context.Context, workflowID string) (string, error)
	Send(ctx context.Context, sessionID, text string) (*SendResult, error)
	// SendFirst creates a session and sends in one round trip; the reply
	// carries the new session id.
	SendFirst(ctx context.Context, workflowID, text string) (*SendResult, error)
	ListMessages(ctx context.Context, sessionID string) ([]entities.ChatMessage, error)
}

// ChangeHandler consumes one push-channel notification.
type ChangeHandler func(event events.ChangeEvent)

// PushChannel is the asynchronous notification stream. Delivery is
// at-least-once with per-scope FIFO ordering; consumers must be idempotent.
type PushChannel interface {
	Subscribe(ctx context.Context, scope events.Scope, handler ChangeHandler) error
	Unsubscribe(scope events.Scope) error
	Close() error
}

// SessionRecoverer is the external collaborator asked to re-establish
// credentials after an auth failure. The core never retries auth itself.
type SessionRecoverer interface {
	Recover(ctx context.Context) error
}
