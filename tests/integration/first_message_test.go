package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync/application/commands"
	cmdbus "flowsync/application/commands/bus"
	cmdhandlers "flowsync/application/commands/handlers"
	"flowsync/application/ports"
	"flowsync/application/queries"
	qrybus "flowsync/application/queries/bus"
	qryhandlers "flowsync/application/queries/handlers"
	"flowsync/application/reconciler"
	"flowsync/application/scheduler"
	"flowsync/application/services"
	"flowsync/application/store"
	domconfig "flowsync/domain/config"
	"flowsync/domain/core/entities"
	"flowsync/domain/core/valueobjects"
	"flowsync/domain/events"
	"flowsync/tests/fixtures"
	"flowsync/tests/mocks"
)

// harness wires the real pipeline end to end: store, scheduler, buses,
// reconciler and services, with only the two remote ports mocked.
type harness struct {
	sync    *services.SyncService
	flow    *services.FlowService
	docs    *store.DocumentStore
	sched   *scheduler.WriteScheduler
	api     *mocks.MockWorkflowAPI
	chat    *mocks.MockChatAPI
	channel *mocks.MockPushChannel
}

func newHarness(t *testing.T, window time.Duration) *harness {
	t.Helper()
	logger := zap.NewNop()
	docs := store.NewDocumentStore(logger)
	api := new(mocks.MockWorkflowAPI)
	chat := new(mocks.MockChatAPI)
	channel := mocks.NewMockPushChannel()

	saveHandler := cmdhandlers.NewSaveWorkflowHandler(api, docs, logger, nil)
	sched := scheduler.NewWriteScheduler(window, saveHandler.FlushFunc(), logger, nil)
	rec := reconciler.New(channel, docs, logger, nil)
	sender := cmdhandlers.NewSendMessageHandler(chat, docs, logger, nil)

	commandBus := cmdbus.NewCommandBus()
	require.NoError(t, commandBus.Register(commands.SaveWorkflowCommand{}, saveHandler))
	require.NoError(t, commandBus.Register(commands.SendMessageCommand{}, sender))
	require.NoError(t, commandBus.Register(commands.SendFirstMessageCommand{}, sender))
	require.NoError(t, commandBus.Register(commands.CreateSessionCommand{}, cmdhandlers.NewCreateSessionHandler(chat, docs, logger)))

	queryBus := qrybus.NewQueryBus()
	require.NoError(t, queryBus.Register(queries.ListWorkflowsQuery{}, qryhandlers.NewListWorkflowsHandler(api, docs, logger)))
	require.NoError(t, queryBus.Register(queries.GetWorkflowQuery{}, qryhandlers.NewGetWorkflowHandler(api, docs, logger)))
	require.NoError(t, queryBus.Register(queries.ListMessagesQuery{}, qryhandlers.NewListMessagesHandler(chat, docs, logger)))

	sync := services.NewSyncService(commandBus, queryBus, docs, sched, rec, sender, logger)
	flow := services.NewFlowService(docs, sched, domconfig.DefaultDomainConfig(), logger)

	return &harness{sync: sync, flow: flow, docs: docs, sched: sched, api: api, chat: chat, channel: channel}
}

func mustPosition(t *testing.T, x, y float64) valueobjects.Position {
	t.Helper()
	pos, ok := valueobjects.NewPosition(x, y)
	require.True(t, ok)
	return pos
}

// The first message of a new workflow runs the whole lifecycle: a draft
// transcript with a provisional pair, the round trip that mints the real
// session, promotion of the draft, the subscription on the new scope, and
// finally deduplication of the push replay of the echoed record.
func TestFirstMessage_EndToEnd(t *testing.T) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	wf := fixtures.NewWorkflow("wf-1").Build()
	h.api.On("Get", mock.Anything, "wf-1").Return(&wf, nil)
	_, err := h.sync.SelectWorkflow(ctx, "wf-1")
	require.NoError(t, err)

	echoText := "hello"
	echoed := fixtures.NewMessage("m-real-1", "s-9").WithText(echoText).Build()
	result := &ports.SendResult{SessionID: "s-9", Message: &echoed}

	// While the request is in flight the draft transcript must already
	// show the user message and the generating placeholder.
	h.chat.On("SendFirst", mock.Anything, "wf-1", echoText).
		Run(func(args mock.Arguments) {
			session := h.docs.Session()
			require.NotNil(t, session)
			assert.True(t, session.IsDraft())
			require.Len(t, session.Messages, 2)
			assert.True(t, session.Messages[0].IsProvisional())
			assert.Equal(t, entities.RoleUser, session.Messages[0].Role)
			assert.True(t, session.Messages[1].IsGenerating())
		}).
		Return(result, nil)
	h.channel.On("Subscribe", mock.Anything, events.MessagesScope("s-9"), mock.Anything).Return(nil)
	h.chat.On("ListMessages", mock.Anything, "s-9").Return([]entities.ChatMessage{}, nil)

	require.NoError(t, h.sync.Submit(ctx, echoText))

	session := h.docs.Session()
	require.NotNil(t, session)
	assert.Equal(t, "s-9", session.ID)
	assert.False(t, session.IsDraft())
	require.Len(t, session.Messages, 1)
	assert.Equal(t, "m-real-1", session.Messages[0].ID)

	handler, ok := h.channel.Handlers[events.MessagesScope("s-9")]
	require.True(t, ok)

	// The realtime replay of the record confirmed over HTTP is a
	// duplicate and must not grow the transcript.
	raw, err := json.Marshal(echoed)
	require.NoError(t, err)
	handler(events.ChangeEvent{Type: events.ChangeInsert, Scope: events.MessagesScope("s-9"), New: raw})
	assert.Len(t, h.docs.Session().Messages, 1)

	// The assistant reply arrives only over the push channel.
	reply := fixtures.NewMessage("m-real-2", "s-9").WithRole(entities.RoleAssistant).WithText("answer").Build()
	raw, err = json.Marshal(reply)
	require.NoError(t, err)
	handler(events.ChangeEvent{Type: events.ChangeInsert, Scope: events.MessagesScope("s-9"), New: raw})

	messages := h.docs.Session().Messages
	require.Len(t, messages, 2)
	assert.Equal(t, "m-real-2", messages[1].ID)
}

// A burst of canvas edits must reach the service as one PUT carrying the
// final shape, and the stored representation must win locally.
func TestEditBurst_CoalescesIntoOneSave(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond)
	ctx := context.Background()

	wf := fixtures.NewWorkflow("wf-1").Buildable().Build()
	h.api.On("Get", mock.Anything, "wf-1").Return(&wf, nil)
	_, err := h.sync.SelectWorkflow(ctx, "wf-1")
	require.NoError(t, err)

	stored := fixtures.NewWorkflow("wf-1").Buildable().WithName("persisted").Build()
	h.api.On("Save", mock.Anything, mock.Anything).Return(&stored, nil)

	h.flow.MoveNode("n-query", mustPosition(t, 10, 10))
	h.flow.MoveNode("n-query", mustPosition(t, 20, 20))
	h.flow.MoveNode("n-query", mustPosition(t, 30, 30))

	require.Eventually(t, func() bool {
		sel := h.docs.Selected()
		return sel != nil && sel.Name == "persisted"
	}, time.Second, 10*time.Millisecond)

	h.api.AssertNumberOfCalls(t, "Save", 1)
}

// Navigating away from a dirty document abandons the pending write.
func TestNavigationCancelsDirtyDocument(t *testing.T) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	first := fixtures.NewWorkflow("wf-1").Buildable().Build()
	second := fixtures.NewWorkflow("wf-2").Buildable().Build()
	h.api.On("Get", mock.Anything, "wf-1").Return(&first, nil)
	h.api.On("Get", mock.Anything, "wf-2").Return(&second, nil)

	_, err := h.sync.SelectWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	h.flow.MoveNode("n-query", mustPosition(t, 5, 5))
	require.True(t, h.sched.Pending())

	_, err = h.sync.SelectWorkflow(ctx, "wf-2")
	require.NoError(t, err)

	assert.False(t, h.sched.Pending())
	h.api.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
