// Package store holds the single in-memory source of truth for the
// currently selected document, the document list, and the active
// transcript. Every mutation path in the synchronization core funnels
// through Apply so a reader always observes a complete, self-consistent
// snapshot.
package store

import (
	"sync"

	"go.uber.org/zap"

	"flowsync/domain/core/aggregates"
)

// State is the complete mutable view the UI layer renders from.
type State struct {
	Workflows []aggregates.Workflow
	Selected  *aggregates.Workflow
	Session   *aggregates.ChatSession
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{}
	if s.Workflows != nil {
		out.Workflows = make([]aggregates.Workflow, len(s.Workflows))
		for i, wf := range s.Workflows {
			out.Workflows[i] = wf.Clone()
		}
	}
	if s.Selected != nil {
		sel := s.Selected.Clone()
		out.Selected = &sel
	}
	out.Session = s.Session.Clone()
	return out
}

// Listener receives a state snapshot after every mutation.
type Listener func(State)

// DocumentStore serializes concurrent writers behind one update entry
// point. Handlers holding the entry point run to completion before the
// next one begins, which is what keeps the store consistent without any
// locking discipline leaking into callers.
type DocumentStore struct {
	mu        sync.Mutex
	state     State
	version   uint64
	listeners map[int]Listener
	nextID    int
	logger    *zap.Logger

	// notifyMu serializes listener dispatch. Without it two Apply calls
	// could release mu in mutation order but reach the listener loop in
	// the reverse order, leaving subscribers on the older snapshot.
	notifyMu  sync.Mutex
	delivered uint64
}

// NewDocumentStore creates an empty store.
func NewDocumentStore(logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// Apply is the single update entry point. The mutate callback runs under
// the store lock; listeners are notified with a snapshot after the
// mutation completes, outside the critical section. Snapshots carry a
// version stamped under the lock, and dispatch drops any snapshot older
// than one already delivered, so subscribers never observe state moving
// backwards.
func (s *DocumentStore) Apply(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	s.version++
	version := s.version
	snapshot := s.state.Clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.delivered {
		// A later mutation already reached the listeners.
		return
	}
	s.delivered = version

	for _, l := range listeners {
		l(snapshot)
	}
}

// Subscribe registers a change listener and returns its remover.
func (s *DocumentStore) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a deep copy of the whole state.
func (s *DocumentStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Workflows returns a copy of the document list.
func (s *DocumentStore) Workflows() []aggregates.Workflow {
	return s.Snapshot().Workflows
}

// Selected returns a copy of the currently selected document, or nil.
func (s *DocumentStore) Selected() *aggregates.Workflow {
	return s.Snapshot().Selected
}

// Session returns a copy of the active transcript, or nil.
func (s *DocumentStore) Session() *aggregates.ChatSession {
	return s.Snapshot().Session
}

// SetWorkflows replaces the document list.
func (s *DocumentStore) SetWorkflows(workflows []aggregates.Workflow) {
	s.Apply(func(st *State) {
		st.Workflows = make([]aggregates.Workflow, len(workflows))
		for i, wf := range workflows {
			st.Workflows[i] = wf.Clone()
		}
	})
}

// UpsertWorkflow inserts or replaces one document in the list. When the
// document is currently selected, the selection is replaced too so both
// views stay in step within one atomic update.
func (s *DocumentStore) UpsertWorkflow(wf aggregates.Workflow) {
	s.Apply(func(st *State) {
		replaced := false
		for i := range st.Workflows {
			if st.Workflows[i].ID == wf.ID {
				st.Workflows[i] = wf.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			st.Workflows = append(st.Workflows, wf.Clone())
		}
		if st.Selected != nil && st.Selected.ID == wf.ID {
			sel := wf.Clone()
			st.Selected = &sel
		}
	})
}

// RemoveWorkflow removes one document; clears the selection when it was
// the selected one. Idempotent when the id is absent.
func (s *DocumentStore) RemoveWorkflow(id string) {
	s.Apply(func(st *State) {
		for i := range st.Workflows {
			if st.Workflows[i].ID == id {
				st.Workflows = append(st.Workflows[:i], st.Workflows[i+1:]...)
				break
			}
		}
		if st.Selected != nil && st.Selected.ID == id {
			st.Selected = nil
		}
	})
}

// SelectWorkflow sets the current document. Passing nil deselects.
func (s *DocumentStore) SelectWorkflow(wf *aggregates.Workflow) {
	s.Apply(func(st *State) {
		if wf == nil {
			st.Selected = nil
			return
		}
		sel := wf.Clone()
		st.Selected = &sel
	})
}

// SelectSession sets the active transcript. Passing nil clears it.
func (s *DocumentStore) SelectSession(session *aggregates.ChatSession) {
	s.Apply(func(st *State) {
		st.Session = session.Clone()
	})
}

// PatchSelected shallow-merges revision fields into the selected document.
// No-op when nothing is selected.
func (s *DocumentStore) PatchSelected(patch aggregates.WorkflowPatch) {
	s.Apply(func(st *State) {
		if st.Selected == nil {
			return
		}
		st.Selected.Apply(patch)
	})
}

// PatchSelectedDefinition shallow-merges fields into the selected
// document's nested definition. No-op when nothing is selected.
func (s *DocumentStore) PatchSelectedDefinition(patch aggregates.DefinitionPatch) {
	s.Apply(func(st *State) {
		if st.Selected == nil {
			return
		}
		st.Selected.ApplyDefinition(patch)
	})
}
