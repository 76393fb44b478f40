// Package services hosts the application-level orchestration that sits
// between the UI surface and the command/query buses.
package services

import (
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"flowsync/application/scheduler"
	"flowsync/application/store"
	"flowsync/domain/config"
	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/domain/core/validators"
	"flowsync/domain/core/valueobjects"
	"flowsync/pkg/errors"
)

// FlowService applies node and edge edits to the selected document and
// schedules the debounced write after each one. Every edit is a full
// read-modify-write of the flow inside one store update.
type FlowService struct {
	store     *store.DocumentStore
	scheduler *scheduler.WriteScheduler
	cfg       *config.DomainConfig
	validator *validators.FlowValidator
	logger    *zap.Logger
}

func NewFlowService(docs *store.DocumentStore, sched *scheduler.WriteScheduler, cfg *config.DomainConfig, logger *zap.Logger) *FlowService {
	return &FlowService{store: docs, scheduler: sched, cfg: cfg, validator: validators.NewFlowValidator(), logger: logger}
}

// AddNode appends a node of the given kind at a position and returns its
// id. Node ids carry a ULID so rapid additions never collide while the
// ids still sort by creation time.
func (s *FlowService) AddNode(kind entities.NodeKind, pos valueobjects.Position) (string, error) {
	if !kind.IsValid() {
		return "", errors.NewValidationError(fmt.Sprintf("unknown node type %q", kind))
	}
	selected := s.store.Selected()
	if selected == nil {
		return "", errors.NewNotFoundError("no workflow selected")
	}
	if len(selected.Definition.Flow.Nodes) >= s.cfg.MaxNodesPerFlow {
		return "", errors.NewValidationError("node limit reached").WithCode("TOO_MANY_NODES")
	}

	id := fmt.Sprintf("node_%s", ulid.Make())
	node := entities.FlowNode{
		ID:       id,
		Type:     string(kind),
		Position: &pos,
		Data:     map[string]interface{}{},
	}

	s.mutateFlow(func(flow *aggregates.Flow) {
		flow.Nodes = append(flow.Nodes, node)
	})
	return id, nil
}

// MoveNode updates a node's position. Unknown ids are a no-op so a drag
// finishing after a remote delete does not fail.
func (s *FlowService) MoveNode(nodeID string, pos valueobjects.Position) {
	s.mutateFlow(func(flow *aggregates.Flow) {
		for i := range flow.Nodes {
			if flow.Nodes[i].ID == nodeID {
				p := pos
				flow.Nodes[i].Position = &p
				return
			}
		}
	})
}

// RemoveNode drops a node and every edge touching it.
func (s *FlowService) RemoveNode(nodeID string) {
	s.mutateFlow(func(flow *aggregates.Flow) {
		nodes := flow.Nodes[:0]
		for _, n := range flow.Nodes {
			if n.ID != nodeID {
				nodes = append(nodes, n)
			}
		}
		flow.Nodes = nodes

		edges := flow.Edges[:0]
		for _, e := range flow.Edges {
			if e.Source != nodeID && e.Target != nodeID {
				edges = append(edges, e)
			}
		}
		flow.Edges = edges
	})
}

// Connect adds an edge between two existing nodes.
func (s *FlowService) Connect(sourceID, targetID string) error {
	if !s.cfg.AllowSelfConnections && sourceID == targetID {
		return errors.NewValidationError("a node cannot connect to itself").WithCode("SELF_CONNECTION")
	}
	selected := s.store.Selected()
	if selected == nil {
		return errors.NewNotFoundError("no workflow selected")
	}
	flow := selected.Definition.Flow
	if _, ok := flow.NodeByID(sourceID); !ok {
		return errors.NewNotFoundError("node " + sourceID)
	}
	if _, ok := flow.NodeByID(targetID); !ok {
		return errors.NewNotFoundError("node " + targetID)
	}
	if flow.HasConnection(sourceID, targetID) {
		return nil
	}
	if len(flow.Edges) >= s.cfg.MaxEdgesPerFlow {
		return errors.NewValidationError("edge limit reached").WithCode("TOO_MANY_EDGES")
	}

	edge := entities.FlowEdge{
		ID:     fmt.Sprintf("edge_%s_%s", sourceID, targetID),
		Source: sourceID,
		Target: targetID,
	}
	s.mutateFlow(func(f *aggregates.Flow) {
		f.Edges = append(f.Edges, edge)
	})
	return nil
}

// RemoveEdge drops one edge by id. Idempotent.
func (s *FlowService) RemoveEdge(edgeID string) {
	s.mutateFlow(func(flow *aggregates.Flow) {
		for i := range flow.Edges {
			if flow.Edges[i].ID == edgeID {
				flow.Edges = append(flow.Edges[:i], flow.Edges[i+1:]...)
				return
			}
		}
	})
}

// ValidateForBuild checks the selected document against the build rules
// locally, so the UI can gate the run button without a round trip.
func (s *FlowService) ValidateForBuild() error {
	selected := s.store.Selected()
	if selected == nil {
		return errors.NewNotFoundError("no workflow selected")
	}
	return s.validator.ValidateForBuild(selected.Definition)
}

// HasUnsavedChanges reports whether an edit is still waiting out its
// quiescence window.
func (s *FlowService) HasUnsavedChanges() bool {
	return s.scheduler.Pending()
}

// mutateFlow rewrites the selected document's flow in one atomic store
// update and schedules the debounced persist. No-op without a selection.
func (s *FlowService) mutateFlow(edit func(*aggregates.Flow)) {
	var scheduled *aggregates.Workflow
	s.store.Apply(func(st *store.State) {
		if st.Selected == nil {
			return
		}
		flow := st.Selected.Definition.Flow.Clone()
		edit(&flow)
		st.Selected.Definition.Flow = flow

		for i := range st.Workflows {
			if st.Workflows[i].ID == st.Selected.ID {
				st.Workflows[i] = st.Selected.Clone()
				break
			}
		}
		wf := st.Selected.Clone()
		scheduled = &wf
	})
	if scheduled != nil {
		s.scheduler.Schedule(*scheduled)
	}
}
