package aggregates

import (
	"time"

	"flowsync/domain/core/entities"
)

// WorkflowStatus is the server-side build state of a workflow.
type WorkflowStatus string

const (
	StatusPending    WorkflowStatus = "pending"
	StatusInProgress WorkflowStatus = "in_progress"
	StatusCompleted  WorkflowStatus = "completed"
	StatusFailed     WorkflowStatus = "failed"
)

// Flow is the node/edge working set of a workflow definition.
type Flow struct {
	Nodes []entities.FlowNode `json:"nodes"`
	Edges []entities.FlowEdge `json:"edges"`
}

// Clone returns a deep copy of the flow.
func (f Flow) Clone() Flow {
	out := Flow{}
	if f.Nodes != nil {
		out.Nodes = make([]entities.FlowNode, len(f.Nodes))
		for i, n := range f.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if f.Edges != nil {
		out.Edges = make([]entities.FlowEdge, len(f.Edges))
		copy(out.Edges, f.Edges)
	}
	return out
}

// NodeByID returns the node with the given id, if present.
func (f Flow) NodeByID(id string) (entities.FlowNode, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return entities.FlowNode{}, false
}

// FirstNodeOfKind returns the first node of the given kind, if present.
func (f Flow) FirstNodeOfKind(kind entities.NodeKind) (entities.FlowNode, bool) {
	for _, n := range f.Nodes {
		if n.Kind() == kind {
			return n, true
		}
	}
	return entities.FlowNode{}, false
}

// HasConnection reports whether an edge from source to target exists.
func (f Flow) HasConnection(sourceID, targetID string) bool {
	for _, e := range f.Edges {
		if e.Source == sourceID && e.Target == targetID {
			return true
		}
	}
	return false
}

// Definition is the mutable content of a workflow. Fields other than Flow
// are carried through patch operations untouched by the sync core.
type Definition struct {
	Flow           Flow     `json:"flow"`
	Prompt         string   `json:"prompt,omitempty"`
	Query          string   `json:"query,omitempty"`
	LLMModel       string   `json:"llmModel,omitempty"`
	EmbeddingModel string   `json:"embeddingModel,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	out := d
	out.Flow = d.Flow.Clone()
	if d.Temperature != nil {
		t := *d.Temperature
		out.Temperature = &t
	}
	return out
}

// Workflow is a graph document: a server-owned record whose revision
// fields are last-writer-wins at whole-document granularity. UpdatedAt is
// display ordering only, never conflict resolution.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Status      WorkflowStatus `json:"status,omitempty"`
	Definition  Definition     `json:"definition"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at"`
}

// Clone returns a deep copy of the workflow.
func (w Workflow) Clone() Workflow {
	out := w
	out.Definition = w.Definition.Clone()
	if w.Description != nil {
		d := *w.Description
		out.Description = &d
	}
	if w.UpdatedAt != nil {
		t := *w.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// WorkflowPatch is a shallow partial update of a workflow's revision
// fields. Nil fields are left untouched.
type WorkflowPatch struct {
	Name        *string
	Description *string
	Status      *WorkflowStatus
	Definition  *Definition
}

// Apply merges the patch into the workflow.
func (w *Workflow) Apply(patch WorkflowPatch) {
	if patch.Name != nil {
		w.Name = *patch.Name
	}
	if patch.Description != nil {
		w.Description = patch.Description
	}
	if patch.Status != nil {
		w.Status = *patch.Status
	}
	if patch.Definition != nil {
		w.Definition = patch.Definition.Clone()
	}
}

// DefinitionPatch is a shallow partial update of the nested definition.
type DefinitionPatch struct {
	Flow           *Flow
	Prompt         *string
	Query          *string
	LLMModel       *string
	EmbeddingModel *string
	Temperature    *float64
}

// ApplyDefinition merges the patch into the workflow's definition.
func (w *Workflow) ApplyDefinition(patch DefinitionPatch) {
	if patch.Flow != nil {
		w.Definition.Flow = patch.Flow.Clone()
	}
	if patch.Prompt != nil {
		w.Definition.Prompt = *patch.Prompt
	}
	if patch.Query != nil {
		w.Definition.Query = *patch.Query
	}
	if patch.LLMModel != nil {
		w.Definition.LLMModel = *patch.LLMModel
	}
	if patch.EmbeddingModel != nil {
		w.Definition.EmbeddingModel = *patch.EmbeddingModel
	}
	if patch.Temperature != nil {
		w.Definition.Temperature = patch.Temperature
	}
}
