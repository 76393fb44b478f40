package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
)

func newTestStore() *DocumentStore {
	return NewDocumentStore(zap.NewNop())
}

func testWorkflow(id, name string) aggregates.Workflow {
	return aggregates.Workflow{
		ID:        id,
		Name:      name,
		Status:    aggregates.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestDocumentStore_UpsertWorkflow_SyncsSelection(t *testing.T) {
	s := newTestStore()
	wf := testWorkflow("wf-1", "original")
	s.SetWorkflows([]aggregates.Workflow{wf})
	s.SelectWorkflow(&wf)

	updated := wf
	updated.Name = "renamed"
	s.UpsertWorkflow(updated)

	snap := s.Snapshot()
	require.Len(t, snap.Workflows, 1)
	assert.Equal(t, "renamed", snap.Workflows[0].Name)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "renamed", snap.Selected.Name, "selection follows the list within one update")
}

func TestDocumentStore_UpsertWorkflow_AppendsUnknown(t *testing.T) {
	s := newTestStore()
	s.SetWorkflows([]aggregates.Workflow{testWorkflow("wf-1", "a")})

	s.UpsertWorkflow(testWorkflow("wf-2", "b"))

	assert.Len(t, s.Workflows(), 2)
}

func TestDocumentStore_RemoveWorkflow_ClearsSelection(t *testing.T) {
	s := newTestStore()
	wf := testWorkflow("wf-1", "a")
	s.SetWorkflows([]aggregates.Workflow{wf})
	s.SelectWorkflow(&wf)

	s.RemoveWorkflow("wf-1")
	s.RemoveWorkflow("wf-1") // absent id is a no-op

	snap := s.Snapshot()
	assert.Empty(t, snap.Workflows)
	assert.Nil(t, snap.Selected)
}

func TestDocumentStore_PatchSelectedDefinition(t *testing.T) {
	s := newTestStore()
	wf := testWorkflow("wf-1", "a")
	wf.Definition.Prompt = "keep me"
	s.SelectWorkflow(&wf)

	query := "what changed"
	s.PatchSelectedDefinition(aggregates.DefinitionPatch{Query: &query})

	sel := s.Selected()
	require.NotNil(t, sel)
	assert.Equal(t, "what changed", sel.Definition.Query)
	assert.Equal(t, "keep me", sel.Definition.Prompt, "untouched fields survive the patch")
}

func TestDocumentStore_PatchWithoutSelection_IsNoOp(t *testing.T) {
	s := newTestStore()
	name := "ghost"
	s.PatchSelected(aggregates.WorkflowPatch{Name: &name})
	assert.Nil(t, s.Selected())
}

func TestDocumentStore_SnapshotIsolation(t *testing.T) {
	s := newTestStore()
	wf := testWorkflow("wf-1", "a")
	wf.Definition.Flow.Nodes = []entities.FlowNode{{ID: "n1", Type: "query"}}
	s.SelectWorkflow(&wf)

	sel := s.Selected()
	require.NotNil(t, sel)
	sel.Definition.Flow.Nodes[0].ID = "mutated"

	again := s.Selected()
	assert.Equal(t, "n1", again.Definition.Flow.Nodes[0].ID, "callers get copies, not the live state")
}

func TestDocumentStore_SubscribeAndUnsubscribe(t *testing.T) {
	s := newTestStore()

	var got []State
	unsubscribe := s.Subscribe(func(st State) {
		got = append(got, st)
	})

	s.SelectWorkflow(&aggregates.Workflow{ID: "wf-1", Name: "a"})
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Selected)
	assert.Equal(t, "wf-1", got[0].Selected.ID)

	unsubscribe()
	s.SelectWorkflow(nil)
	assert.Len(t, got, 1, "removed listeners stop receiving snapshots")
}

func TestDocumentStore_ApplyIsAtomic(t *testing.T) {
	s := newTestStore()

	// A listener observing mid-mutation state would see the session and
	// selection out of step; Apply publishes only the final snapshot.
	s.Subscribe(func(st State) {
		if st.Selected != nil {
			require.NotNil(t, st.Session)
			assert.Equal(t, st.Selected.ID, st.Session.WorkflowID)
		}
	})

	wf := testWorkflow("wf-1", "a")
	s.Apply(func(st *State) {
		sel := wf.Clone()
		st.Selected = &sel
		st.Session = &aggregates.ChatSession{ID: "s-1", WorkflowID: "wf-1"}
	})

	snap := s.Snapshot()
	require.NotNil(t, snap.Selected)
	require.NotNil(t, snap.Session)
}

func TestDocumentStore_ConcurrentAppliesNeverRegress(t *testing.T) {
	s := newTestStore()

	// Each mutation grows the list, so the length a listener observes is a
	// progress counter. Concurrent writers racing from mutation to dispatch
	// must not hand a subscriber an older snapshot after a newer one.
	var mu sync.Mutex
	var seen []int
	s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, len(st.Workflows))
		mu.Unlock()
	})

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Apply(func(st *State) {
					st.Workflows = append(st.Workflows, aggregates.Workflow{
						ID: fmt.Sprintf("wf-%d-%d", w, i),
					})
				})
			}
		}(w)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		require.GreaterOrEqual(t, seen[i], seen[i-1], "snapshot delivered out of mutation order")
	}
	assert.Equal(t, writers*perWriter, seen[len(seen)-1], "the final delivery carries the final state")
}
