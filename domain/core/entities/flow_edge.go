package entities

// FlowEdge is the persistable shape of a connection between two flow
// nodes. Source and Target reference node ids within the same document.
type FlowEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Type         string `json:"type,omitempty"`
}

// Complete reports whether the edge carries the fields required for
// persistence. Incomplete edges are dropped by the normalizer rather than
// failing the whole write.
func (e FlowEdge) Complete() bool {
	return e.ID != "" && e.Source != "" && e.Target != ""
}
