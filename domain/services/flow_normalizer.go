// Package services holds pure domain services that operate on workflow
// flows without touching infrastructure.
package services

import (
	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
)

// NormalizeFlow strips a node/edge working set down to the minimal shape
// the authoritative store accepts. The rendering layer hands over a
// superset of the persisted schema; this keeps exactly the persistable
// fields, backfills style from the measured size when style is absent, and
// drops malformed records instead of failing the write:
//
//   - a node lacking an id is dropped
//   - an edge lacking id, source, or target is dropped
//   - an edge whose endpoint is missing from the node set is dropped
//
// Pure and idempotent: NormalizeFlow(NormalizeFlow(f)) == NormalizeFlow(f).
func NormalizeFlow(flow aggregates.Flow) aggregates.Flow {
	out := aggregates.Flow{
		Nodes: make([]entities.FlowNode, 0, len(flow.Nodes)),
		Edges: make([]entities.FlowEdge, 0, len(flow.Edges)),
	}

	nodeIDs := make(map[string]struct{}, len(flow.Nodes))
	for _, n := range flow.Nodes {
		if n.ID == "" {
			continue
		}
		safe := entities.FlowNode{
			ID:   n.ID,
			Type: n.Type,
			Data: n.Data,
		}
		if safe.Data == nil {
			safe.Data = map[string]interface{}{}
		}
		if n.Position != nil {
			p := *n.Position
			safe.Position = &p
		}
		if n.Measured != nil {
			m := *n.Measured
			safe.Measured = &m
		}
		switch {
		case n.Style != nil:
			s := *n.Style
			safe.Style = &s
		case n.Measured != nil:
			s := *n.Measured
			safe.Style = &s
		}
		out.Nodes = append(out.Nodes, safe)
		nodeIDs[n.ID] = struct{}{}
	}

	for _, e := range flow.Edges {
		if !e.Complete() {
			continue
		}
		if _, ok := nodeIDs[e.Source]; !ok {
			continue
		}
		if _, ok := nodeIDs[e.Target]; !ok {
			continue
		}
		out.Edges = append(out.Edges, entities.FlowEdge{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
			Type:         e.Type,
		})
	}

	return out
}

// NormalizeWorkflow returns a copy of the workflow whose flow has been
// normalized. The rest of the definition is carried through untouched.
func NormalizeWorkflow(wf aggregates.Workflow) aggregates.Workflow {
	out := wf.Clone()
	out.Definition.Flow = NormalizeFlow(out.Definition.Flow)
	return out
}
