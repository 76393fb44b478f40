package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync/application/ports"
	"flowsync/application/store"
	"flowsync/domain/core/entities"
	"flowsync/pkg/errors"
	"flowsync/tests/fixtures"
	"flowsync/tests/mocks"

	"flowsync/application/commands"
)

func newSendFixture(t *testing.T) (*SendMessageHandler, *mocks.MockChatAPI, *store.DocumentStore) {
	t.Helper()
	chat := new(mocks.MockChatAPI)
	docs := store.NewDocumentStore(zap.NewNop())
	h := NewSendMessageHandler(chat, docs, zap.NewNop(), nil)
	return h, chat, docs
}

func TestSendMessage_StagesProvisionalPairWhileInFlight(t *testing.T) {
	h, chat, docs := newSendFixture(t)
	docs.SelectSession(fixtures.NewSession("s-1", "wf-1").Build())

	chat.On("Send", mock.Anything, "s-1", "hello").
		Run(func(args mock.Arguments) {
			// Mid-flight the transcript shows the optimistic pair: the
			// user message and the generating placeholder.
			session := docs.Session()
			require.Len(t, session.Messages, 2)
			assert.True(t, session.Messages[0].IsProvisional())
			assert.Equal(t, entities.RoleUser, session.Messages[0].Role)
			assert.True(t, session.Messages[1].IsGenerating())
		}).
		Return(&ports.SendResult{SessionID: "s-1"}, nil)

	err := h.Handle(context.Background(), commands.SendMessageCommand{SessionID: "s-1", Text: "  hello  "})
	require.NoError(t, err)

	// Confirmation swept the provisionals; the real records arrive via
	// the push channel.
	assert.Empty(t, docs.Session().Messages)
	chat.AssertExpectations(t)
}

func TestSendMessage_InsertsEchoedRecordOnSuccess(t *testing.T) {
	h, chat, docs := newSendFixture(t)
	docs.SelectSession(fixtures.NewSession("s-1", "wf-1").Build())

	stored := fixtures.NewMessage("m-1", "s-1").WithText("hello").Build()
	chat.On("Send", mock.Anything, "s-1", "hello").
		Return(&ports.SendResult{SessionID: "s-1", Message: &stored}, nil)

	require.NoError(t, h.Handle(context.Background(), commands.SendMessageCommand{SessionID: "s-1", Text: "hello"}))

	session := docs.Session()
	require.Len(t, session.Messages, 1)
	assert.Equal(t, "m-1", session.Messages[0].ID)
	assert.False(t, session.Messages[0].IsProvisional())
}

func TestSendMessage_RollsBackOnFailure(t *testing.T) {
	h, chat, docs := newSendFixture(t)
	docs.SelectSession(fixtures.NewSession("s-1", "wf-1").Build())

	chat.On("Send", mock.Anything, "s-1", "hello").
		Return(nil, errors.NewTransportError("send message", nil))

	err := h.Handle(context.Background(), commands.SendMessageCommand{SessionID: "s-1", Text: "hello"})
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Empty(t, docs.Session().Messages, "failed submission leaves no trace")
}

func TestSendMessage_RejectsConcurrentSubmit(t *testing.T) {
	h, chat, docs := newSendFixture(t)
	docs.SelectSession(fixtures.NewSession("s-1", "wf-1").Build())

	release := make(chan struct{})
	started := make(chan struct{})
	chat.On("Send", mock.Anything, "s-1", "first").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&ports.SendResult{SessionID: "s-1"}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = h.Handle(context.Background(), commands.SendMessageCommand{SessionID: "s-1", Text: "first"})
	}()

	<-started
	err := h.Handle(context.Background(), commands.SendMessageCommand{SessionID: "s-1", Text: "second"})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err), "second submit is rejected, not queued")

	close(release)
	wg.Wait()
	chat.AssertNumberOfCalls(t, "Send", 1)
}

func TestSendMessage_DuplicatePushRecordSurvivesConfirmation(t *testing.T) {
	// The push channel may deliver the stored record before the HTTP
	// response returns. Confirmation removes only provisionals, so the
	// already-applied record stays and the echoed copy deduplicates.
	h, chat, docs := newSendFixture(t)
	docs.SelectSession(fixtures.NewSession("s-1", "wf-1").Build())

	stored := fixtures.NewMessage("m-1", "s-1").WithText("hello").Build()
	chat.On("Send", mock.Anything, "s-1", "hello").
		Run(func(mock.Arguments) {
			docs.Apply(func(s *store.State) {
				s.Session.InsertMessage(stored)
			})
		}).
		Return(&ports.SendResult{SessionID: "s-1", Message: &stored}, nil)

	require.NoError(t, h.Handle(context.Background(), commands.SendMessageCommand{SessionID: "s-1", Text: "hello"}))

	session := docs.Session()
	require.Len(t, session.Messages, 1)
	assert.Equal(t, "m-1", session.Messages[0].ID)
}

func TestSendFirstMessage_PromotesDraftAndNavigates(t *testing.T) {
	h, chat, docs := newSendFixture(t)

	chat.On("SendFirst", mock.Anything, "wf-1", "hello").
		Run(func(mock.Arguments) {
			session := docs.Session()
			require.NotNil(t, session)
			assert.True(t, session.IsDraft())
			assert.Len(t, session.Messages, 2)
		}).
		Return(&ports.SendResult{SessionID: "s-new"}, nil)

	var createdSession, createdWorkflow string
	h.OnSessionCreated(func(_ context.Context, sessionID, workflowID string) {
		createdSession, createdWorkflow = sessionID, workflowID
	})

	err := h.Handle(context.Background(), commands.SendFirstMessageCommand{WorkflowID: "wf-1", Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "s-new", createdSession)
	assert.Equal(t, "wf-1", createdWorkflow)

	session := docs.Session()
	require.NotNil(t, session)
	assert.Equal(t, "s-new", session.ID)
	assert.Empty(t, session.Messages, "provisionals swept after promotion")
}

func TestSendFirstMessage_RollsBackDraftOnFailure(t *testing.T) {
	h, chat, docs := newSendFixture(t)

	chat.On("SendFirst", mock.Anything, "wf-1", "hello").
		Return(nil, errors.NewAuthError("token expired"))

	err := h.Handle(context.Background(), commands.SendFirstMessageCommand{WorkflowID: "wf-1", Text: "hello"})
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))

	session := docs.Session()
	require.NotNil(t, session)
	assert.True(t, session.IsDraft())
	assert.Empty(t, session.Messages)
}

func TestSendFirstMessage_FailureLeavesOtherSessionAlone(t *testing.T) {
	// While the first message is in flight the user can navigate to an
	// existing session and stage its own optimistic pair. The failure
	// rollback targets the draft only; the other session's pair stays.
	h, chat, docs := newSendFixture(t)

	chat.On("SendFirst", mock.Anything, "wf-1", "hello").
		Run(func(mock.Arguments) {
			docs.SelectSession(fixtures.NewSession("s-2", "wf-2").Build())
			docs.Apply(func(s *store.State) {
				h.stagePair(s.Session, "s-2", "unrelated in-flight text")
			})
		}).
		Return(nil, errors.NewTransportError("send first message", nil))

	err := h.Handle(context.Background(), commands.SendFirstMessageCommand{WorkflowID: "wf-1", Text: "hello"})
	require.Error(t, err)

	session := docs.Session()
	require.NotNil(t, session)
	assert.Equal(t, "s-2", session.ID)
	assert.Len(t, session.Messages, 2, "the other session's pair is not ours to sweep")
}

func TestSendFirstMessage_MissingSessionIDIsTransportError(t *testing.T) {
	h, chat, _ := newSendFixture(t)

	chat.On("SendFirst", mock.Anything, "wf-1", "hello").
		Return(&ports.SendResult{}, nil)

	err := h.Handle(context.Background(), commands.SendFirstMessageCommand{WorkflowID: "wf-1", Text: "hello"})
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
}

func TestSendMessage_ValidationNeverReachesTransport(t *testing.T) {
	cmd := commands.SendMessageCommand{SessionID: "s-1", Text: "   "}
	err := cmd.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSendMessage_ProvisionalOrderingStable(t *testing.T) {
	// The placeholder is stamped a hair after the user message so the
	// pair always renders in submission order.
	h, chat, docs := newSendFixture(t)
	docs.SelectSession(fixtures.NewSession("s-1", "wf-1").Build())

	var userAt, placeholderAt time.Time
	chat.On("Send", mock.Anything, "s-1", "hello").
		Run(func(mock.Arguments) {
			session := docs.Session()
			require.Len(t, session.Messages, 2)
			userAt = session.Messages[0].CreatedAt
			placeholderAt = session.Messages[1].CreatedAt
		}).
		Return(&ports.SendResult{SessionID: "s-1"}, nil)

	require.NoError(t, h.Handle(context.Background(), commands.SendMessageCommand{SessionID: "s-1", Text: "hello"}))
	assert.True(t, userAt.Before(placeholderAt))
}

