// Package mocks provides testify mocks for the external service ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"flowsync/application/ports"
	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/domain/events"
)

// MockWorkflowAPI mocks ports.WorkflowAPI.
type MockWorkflowAPI struct {
	mock.Mock
}

func (m *MockWorkflowAPI) List(ctx context.Context) ([]aggregates.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]aggregates.Workflow), args.Error(1)
}

func (m *MockWorkflowAPI) Get(ctx context.Context, id string) (*aggregates.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.Workflow), args.Error(1)
}

func (m *MockWorkflowAPI) Save(ctx context.Context, wf *aggregates.Workflow) (*aggregates.Workflow, error) {
	args := m.Called(ctx, wf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.Workflow), args.Error(1)
}

func (m *MockWorkflowAPI) Execute(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockChatAPI mocks ports.ChatAPI.
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateSession(ctx context.Context, workflowID string) (string, error) {
	args := m.Called(ctx, workflowID)
	return args.String(0), args.Error(1)
}

func (m *MockChatAPI) Send(ctx context.Context, sessionID, text string) (*ports.SendResult, error) {
	args := m.Called(ctx, sessionID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SendResult), args.Error(1)
}

func (m *MockChatAPI) SendFirst(ctx context.Context, workflowID, text string) (*ports.SendResult, error) {
	args := m.Called(ctx, workflowID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SendResult), args.Error(1)
}

func (m *MockChatAPI) ListMessages(ctx context.Context, sessionID string) ([]entities.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.ChatMessage), args.Error(1)
}

// MockPushChannel mocks ports.PushChannel. Handlers registered via
// Subscribe are captured so tests can inject events.
type MockPushChannel struct {
	mock.Mock

	Handlers map[events.Scope]ports.ChangeHandler
}

func NewMockPushChannel() *MockPushChannel {
	return &MockPushChannel{Handlers: make(map[events.Scope]ports.ChangeHandler)}
}

func (m *MockPushChannel) Subscribe(ctx context.Context, scope events.Scope, handler ports.ChangeHandler) error {
	args := m.Called(ctx, scope, handler)
	if args.Error(0) == nil && m.Handlers != nil {
		m.Handlers[scope] = handler
	}
	return args.Error(0)
}

func (m *MockPushChannel) Unsubscribe(scope events.Scope) error {
	args := m.Called(scope)
	if m.Handlers != nil {
		delete(m.Handlers, scope)
	}
	return args.Error(0)
}

func (m *MockPushChannel) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSessionRecoverer mocks ports.SessionRecoverer.
type MockSessionRecoverer struct {
	mock.Mock
}

func (m *MockSessionRecoverer) Recover(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
