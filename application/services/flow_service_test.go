package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync/application/scheduler"
	"flowsync/application/store"
	"flowsync/domain/config"
	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/domain/core/valueobjects"
	"flowsync/pkg/errors"
	"flowsync/tests/fixtures"
)

type flushLog struct {
	mu     sync.Mutex
	states []aggregates.Workflow
}

func (l *flushLog) record(wf aggregates.Workflow) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, wf)
}

func (l *flushLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

func newFlowFixture(t *testing.T) (*FlowService, *store.DocumentStore, *flushLog) {
	t.Helper()
	docs := store.NewDocumentStore(zap.NewNop())
	log := &flushLog{}
	// A wide window keeps the timer from firing during assertions.
	sched := scheduler.NewWriteScheduler(time.Hour, log.record, zap.NewNop(), nil)
	svc := NewFlowService(docs, sched, config.DefaultDomainConfig(), zap.NewNop())
	return svc, docs, log
}

func mustPosition(t *testing.T, x, y float64) valueobjects.Position {
	t.Helper()
	pos, ok := valueobjects.NewPosition(x, y)
	require.True(t, ok)
	return pos
}

func TestFlowService_AddNodeSchedulesWrite(t *testing.T) {
	svc, docs, _ := newFlowFixture(t)
	wf := fixtures.NewWorkflow("wf-1").Build()
	docs.SetWorkflows([]aggregates.Workflow{wf})
	docs.SelectWorkflow(&wf)

	id, err := svc.AddNode(entities.NodeKindQuery, mustPosition(t, 10, 20))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	sel := docs.Selected()
	require.Len(t, sel.Definition.Flow.Nodes, 1)
	assert.Equal(t, id, sel.Definition.Flow.Nodes[0].ID)

	// The list entry was updated in the same atomic step.
	require.Len(t, docs.Workflows(), 1)
	assert.Len(t, docs.Workflows()[0].Definition.Flow.Nodes, 1)
}

func TestFlowService_AddNodeRejectsUnknownKind(t *testing.T) {
	svc, docs, _ := newFlowFixture(t)
	wf := fixtures.NewWorkflow("wf-1").Build()
	docs.SelectWorkflow(&wf)

	_, err := svc.AddNode(entities.NodeKind("subgraph"), mustPosition(t, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestFlowService_AddNodeWithoutSelection(t *testing.T) {
	svc, _, _ := newFlowFixture(t)
	_, err := svc.AddNode(entities.NodeKindQuery, mustPosition(t, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestFlowService_RemoveNodeDropsTouchingEdges(t *testing.T) {
	svc, docs, _ := newFlowFixture(t)
	wf := fixtures.NewWorkflow("wf-1").
		WithNode("a", entities.NodeKindQuery, 0, 0).
		WithNode("b", entities.NodeKindLLM, 100, 0).
		WithEdge("a", "b").
		Build()
	docs.SelectWorkflow(&wf)

	svc.RemoveNode("a")

	sel := docs.Selected()
	require.Len(t, sel.Definition.Flow.Nodes, 1)
	assert.Equal(t, "b", sel.Definition.Flow.Nodes[0].ID)
	assert.Empty(t, sel.Definition.Flow.Edges)
}

func TestFlowService_ConnectValidatesEndpoints(t *testing.T) {
	svc, docs, _ := newFlowFixture(t)
	wf := fixtures.NewWorkflow("wf-1").
		WithNode("a", entities.NodeKindQuery, 0, 0).
		WithNode("b", entities.NodeKindLLM, 100, 0).
		Build()
	docs.SelectWorkflow(&wf)

	require.NoError(t, svc.Connect("a", "b"))
	require.NoError(t, svc.Connect("a", "b"), "duplicate connection is a no-op")
	assert.Len(t, docs.Selected().Definition.Flow.Edges, 1)

	err := svc.Connect("a", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	err = svc.Connect("a", "a")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestFlowService_MoveNodeAfterRemoteDeleteIsNoOp(t *testing.T) {
	svc, docs, _ := newFlowFixture(t)
	wf := fixtures.NewWorkflow("wf-1").Build()
	docs.SelectWorkflow(&wf)

	svc.MoveNode("gone", mustPosition(t, 5, 5))
	assert.Empty(t, docs.Selected().Definition.Flow.Nodes)
}

func TestFlowService_BurstOfEditsCoalesces(t *testing.T) {
	docs := store.NewDocumentStore(zap.NewNop())
	log := &flushLog{}
	sched := scheduler.NewWriteScheduler(30*time.Millisecond, log.record, zap.NewNop(), nil)
	svc := NewFlowService(docs, sched, config.DefaultDomainConfig(), zap.NewNop())

	wf := fixtures.NewWorkflow("wf-1").Build()
	docs.SelectWorkflow(&wf)

	for i := 0; i < 8; i++ {
		_, err := svc.AddNode(entities.NodeKindQuery, mustPosition(t, float64(i), 0))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 5*time.Millisecond)
	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Len(t, log.states[0].Definition.Flow.Nodes, 8, "the single write carries the final state")
}

func TestFlowService_AddNodeIDsUniqueInBursts(t *testing.T) {
	svc, docs, _ := newFlowFixture(t)
	wf := fixtures.NewWorkflow("wf-1").Build()
	docs.SelectWorkflow(&wf)

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		id, err := svc.AddNode(entities.NodeKindQuery, mustPosition(t, float64(i), 0))
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "ids minted within one millisecond must still differ")
		seen[id] = struct{}{}
	}
}

func TestFlowService_ValidateForBuild(t *testing.T) {
	svc, docs, _ := newFlowFixture(t)

	err := svc.ValidateForBuild()
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	incomplete := fixtures.NewWorkflow("wf-1").
		WithNode("n-query", entities.NodeKindQuery, 0, 0).
		Build()
	docs.SelectWorkflow(&incomplete)
	require.Error(t, svc.ValidateForBuild())

	buildable := fixtures.NewWorkflow("wf-2").Buildable().Build()
	docs.SelectWorkflow(&buildable)
	require.NoError(t, svc.ValidateForBuild())
}

func TestFlowService_HasUnsavedChanges(t *testing.T) {
	svc, docs, _ := newFlowFixture(t)
	wf := fixtures.NewWorkflow("wf-1").Build()
	docs.SelectWorkflow(&wf)

	assert.False(t, svc.HasUnsavedChanges())

	_, err := svc.AddNode(entities.NodeKindQuery, mustPosition(t, 1, 1))
	require.NoError(t, err)
	assert.True(t, svc.HasUnsavedChanges())
}
