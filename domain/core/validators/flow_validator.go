package validators

import (
	"fmt"
	"strings"

	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/pkg/errors"
)

// FlowValidator validates workflow-definition domain rules before a build
// is requested.
type FlowValidator struct {
	requiredChain []entities.NodeKind
	maxNodes      int
	maxEdges      int
}

// NewFlowValidator creates a flow validator with default rules
func NewFlowValidator() *FlowValidator {
	return &FlowValidator{
		requiredChain: []entities.NodeKind{
			entities.NodeKindQuery,
			entities.NodeKindKnowledgeBase,
			entities.NodeKindLLM,
			entities.NodeKindOutput,
		},
		maxNodes: 500,
		maxEdges: 2000,
	}
}

// ValidateForBuild checks that the definition forms the complete
// query -> knowledge-base -> llm -> output chain and carries the fields
// the build service needs.
func (v *FlowValidator) ValidateForBuild(def aggregates.Definition) error {
	flow := def.Flow

	if len(flow.Nodes) > v.maxNodes {
		return errors.NewValidationError(fmt.Sprintf("flow exceeds %d nodes", v.maxNodes))
	}
	if len(flow.Edges) > v.maxEdges {
		return errors.NewValidationError(fmt.Sprintf("flow exceeds %d edges", v.maxEdges))
	}

	chain := make([]entities.FlowNode, 0, len(v.requiredChain))
	for _, kind := range v.requiredChain {
		node, ok := flow.FirstNodeOfKind(kind)
		if !ok {
			return errors.NewValidationError("missing required nodes").
				WithCode("MISSING_NODES").
				WithDetails(map[string]interface{}{"missing": string(kind)})
		}
		chain = append(chain, node)
	}

	for i := 0; i+1 < len(chain); i++ {
		if !flow.HasConnection(chain[i].ID, chain[i+1].ID) {
			return errors.NewValidationError("invalid connections").
				WithCode("INVALID_CONNECTIONS").
				WithDetails(map[string]interface{}{
					"source": chain[i].Type,
					"target": chain[i+1].Type,
				})
		}
	}

	if strings.TrimSpace(def.Query) == "" || strings.TrimSpace(def.Prompt) == "" {
		return errors.NewValidationError("input query and llm prompt must not be empty").
			WithCode("MISSING_FIELDS")
	}
	if def.EmbeddingModel == "" {
		return errors.NewValidationError("embedding model must be selected").
			WithCode("MISSING_FIELDS")
	}
	if def.LLMModel == "" {
		return errors.NewValidationError("llm model must be selected").
			WithCode("MISSING_FIELDS")
	}

	return nil
}

// ValidateMessage checks a chat submission before any network call.
func ValidateMessage(text string, maxLength int) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errors.NewValidationError("message must not be empty").WithCode("EMPTY_MESSAGE")
	}
	if maxLength > 0 && len(trimmed) > maxLength {
		return errors.NewValidationError(fmt.Sprintf("message exceeds %d characters", maxLength)).
			WithCode("MESSAGE_TOO_LONG")
	}
	return nil
}
