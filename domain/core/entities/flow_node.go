package entities

import (
	"flowsync/domain/core/valueobjects"
)

// NodeKind is the closed set of node types a workflow flow may contain.
type NodeKind string

const (
	NodeKindQuery         NodeKind = "query"
	NodeKindKnowledgeBase NodeKind = "knowledge-base"
	NodeKindLLM           NodeKind = "llm"
	NodeKindOutput        NodeKind = "output"
)

// KnownNodeKinds lists every node kind in canvas order.
func KnownNodeKinds() []NodeKind {
	return []NodeKind{NodeKindQuery, NodeKindKnowledgeBase, NodeKindLLM, NodeKindOutput}
}

// IsValid reports whether k belongs to the closed node-kind set.
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeKindQuery, NodeKindKnowledgeBase, NodeKindLLM, NodeKindOutput:
		return true
	}
	return false
}

// Dimensions is a measured render size carried alongside a node.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FlowNode is the persistable shape of a canvas node. The rendering layer
// works with a superset of this shape; everything outside these fields is
// transient and dropped by the normalizer before a write.
type FlowNode struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type,omitempty"`
	Position *valueobjects.Position `json:"position,omitempty"`
	Data     map[string]interface{} `json:"data"`
	Measured *Dimensions            `json:"measured,omitempty"`
	Style    *Dimensions            `json:"style,omitempty"`
}

// Kind returns the node's type as a NodeKind.
func (n FlowNode) Kind() NodeKind {
	return NodeKind(n.Type)
}

// Clone returns a deep copy of the node.
func (n FlowNode) Clone() FlowNode {
	out := n
	if n.Position != nil {
		p := *n.Position
		out.Position = &p
	}
	if n.Measured != nil {
		m := *n.Measured
		out.Measured = &m
	}
	if n.Style != nil {
		s := *n.Style
		out.Style = &s
	}
	if n.Data != nil {
		data := make(map[string]interface{}, len(n.Data))
		for k, v := range n.Data {
			data[k] = v
		}
		out.Data = data
	}
	return out
}
