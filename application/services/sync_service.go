package services

import (
	"context"

	"go.uber.org/zap"

	cmdbus "flowsync/application/commands/bus"
	qrybus "flowsync/application/queries/bus"

	"flowsync/application/commands"
	"flowsync/application/commands/handlers"
	"flowsync/application/queries"
	"flowsync/application/reconciler"
	"flowsync/application/scheduler"
	"flowsync/application/store"
	"flowsync/domain/core/aggregates"
	"flowsync/domain/events"
	"flowsync/pkg/errors"
)

// SyncService is the facade the interface layer talks to. It owns the
// navigation lifecycle: which document is selected, which transcript is
// live, and which push scope is watched, keeping all three in step.
type SyncService struct {
	commands   *cmdbus.CommandBus
	queries    *qrybus.QueryBus
	store      *store.DocumentStore
	scheduler  *scheduler.WriteScheduler
	reconciler *reconciler.Reconciler
	logger     *zap.Logger
}

func NewSyncService(
	commandBus *cmdbus.CommandBus,
	queryBus *qrybus.QueryBus,
	docs *store.DocumentStore,
	sched *scheduler.WriteScheduler,
	rec *reconciler.Reconciler,
	sender *handlers.SendMessageHandler,
	logger *zap.Logger,
) *SyncService {
	s := &SyncService{
		commands:   commandBus,
		queries:    queryBus,
		store:      docs,
		scheduler:  sched,
		reconciler: rec,
		logger:     logger,
	}
	// First messages create their session server-side; follow the
	// confirmation by navigating to the new transcript.
	sender.OnSessionCreated(func(ctx context.Context, sessionID, workflowID string) {
		if err := s.watchSession(ctx, sessionID); err != nil {
			logger.Warn("failed to watch created session", zap.String("session_id", sessionID), zap.Error(err))
		}
	})
	return s
}

// RefreshWorkflows reloads the document list.
func (s *SyncService) RefreshWorkflows(ctx context.Context) ([]aggregates.Workflow, error) {
	result, err := s.queries.Ask(ctx, queries.ListWorkflowsQuery{})
	if err != nil {
		return nil, err
	}
	workflows, _ := result.([]aggregates.Workflow)
	return workflows, nil
}

// SelectWorkflow navigates to a document. Any write still pending for the
// previously selected document is cancelled, never transferred.
func (s *SyncService) SelectWorkflow(ctx context.Context, workflowID string) (*aggregates.Workflow, error) {
	if prev := s.store.Selected(); prev != nil && prev.ID != workflowID {
		s.scheduler.Cancel(prev.ID)
	}

	result, err := s.queries.Ask(ctx, queries.GetWorkflowQuery{WorkflowID: workflowID})
	if err != nil {
		return nil, err
	}
	wf, ok := result.(*aggregates.Workflow)
	if !ok || wf == nil {
		return nil, errors.NewNotFoundError("workflow " + workflowID)
	}
	s.store.SelectWorkflow(wf)
	return wf, nil
}

// DeselectWorkflow leaves the editor, dropping any pending write and the
// live transcript.
func (s *SyncService) DeselectWorkflow() error {
	s.scheduler.Cancel("")
	s.store.SelectWorkflow(nil)
	s.store.SelectSession(nil)
	return s.reconciler.Stop()
}

// SelectSession navigates to an existing transcript: the previous push
// subscription is torn down, the message history is loaded, and the new
// scope is watched.
func (s *SyncService) SelectSession(ctx context.Context, sessionID string) error {
	return s.watchSession(ctx, sessionID)
}

func (s *SyncService) watchSession(ctx context.Context, sessionID string) error {
	workflowID := ""
	if wf := s.store.Selected(); wf != nil {
		workflowID = wf.ID
	}

	s.store.Apply(func(st *store.State) {
		if st.Session != nil && st.Session.ID == sessionID {
			return
		}
		st.Session = &aggregates.ChatSession{ID: sessionID, WorkflowID: workflowID}
	})

	if err := s.reconciler.Watch(ctx, events.MessagesScope(sessionID)); err != nil {
		return err
	}

	if _, err := s.queries.Ask(ctx, queries.ListMessagesQuery{SessionID: sessionID}); err != nil {
		return err
	}
	return nil
}

// CreateSession opens a fresh session for a workflow and starts watching
// its transcript.
func (s *SyncService) CreateSession(ctx context.Context, workflowID string) (string, error) {
	if err := s.commands.Send(ctx, commands.CreateSessionCommand{WorkflowID: workflowID}); err != nil {
		return "", err
	}
	session := s.store.Session()
	if session == nil || session.ID == "" {
		return "", errors.NewInternalError("session creation left no session selected")
	}
	if err := s.reconciler.Watch(ctx, events.MessagesScope(session.ID)); err != nil {
		return "", err
	}
	return session.ID, nil
}

// Submit routes a chat submission: an existing session gets a plain send,
// a selected workflow without a session gets the first-message flow.
func (s *SyncService) Submit(ctx context.Context, text string) error {
	session := s.store.Session()
	if session != nil && !session.IsDraft() {
		return s.commands.Send(ctx, commands.SendMessageCommand{SessionID: session.ID, Text: text})
	}

	selected := s.store.Selected()
	if selected == nil {
		return errors.NewValidationError("no workflow selected").WithCode("NO_TARGET")
	}
	return s.commands.Send(ctx, commands.SendFirstMessageCommand{WorkflowID: selected.ID, Text: text})
}

// SaveNow bypasses the quiescence window and writes the pending state
// immediately.
func (s *SyncService) SaveNow() {
	s.scheduler.Flush()
}

// Execute validates and runs the selected workflow.
func (s *SyncService) Execute(ctx context.Context, workflowID string) error {
	return s.commands.Send(ctx, commands.ExecuteWorkflowCommand{WorkflowID: workflowID})
}

// Subscribe exposes store snapshots to the interface layer.
func (s *SyncService) Subscribe(listener store.Listener) func() {
	return s.store.Subscribe(listener)
}

// Snapshot returns the current state.
func (s *SyncService) Snapshot() store.State {
	return s.store.Snapshot()
}

// Close flushes pending work and tears down the push subscription.
func (s *SyncService) Close() error {
	s.scheduler.Flush()
	return s.reconciler.Stop()
}
