package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/pkg/errors"
)

func buildableDefinition() aggregates.Definition {
	return aggregates.Definition{
		Query:          "what is the refund policy?",
		Prompt:         "answer from the document",
		LLMModel:       "gemini-pro",
		EmbeddingModel: "text-embedding-004",
		Flow: aggregates.Flow{
			Nodes: []entities.FlowNode{
				{ID: "q", Type: string(entities.NodeKindQuery)},
				{ID: "kb", Type: string(entities.NodeKindKnowledgeBase)},
				{ID: "llm", Type: string(entities.NodeKindLLM)},
				{ID: "out", Type: string(entities.NodeKindOutput)},
			},
			Edges: []entities.FlowEdge{
				{ID: "e1", Source: "q", Target: "kb"},
				{ID: "e2", Source: "kb", Target: "llm"},
				{ID: "e3", Source: "llm", Target: "out"},
			},
		},
	}
}

func TestFlowValidator_ValidateForBuild_OK(t *testing.T) {
	v := NewFlowValidator()
	assert.NoError(t, v.ValidateForBuild(buildableDefinition()))
}

func TestFlowValidator_ValidateForBuild_MissingNode(t *testing.T) {
	v := NewFlowValidator()
	def := buildableDefinition()
	def.Flow.Nodes = def.Flow.Nodes[1:] // drop query node

	err := v.ValidateForBuild(def)

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "MISSING_NODES", errors.GetAppError(err).Code)
}

func TestFlowValidator_ValidateForBuild_BrokenChain(t *testing.T) {
	v := NewFlowValidator()
	def := buildableDefinition()
	def.Flow.Edges = def.Flow.Edges[:1] // only query -> knowledge-base

	err := v.ValidateForBuild(def)

	require.Error(t, err)
	assert.Equal(t, "INVALID_CONNECTIONS", errors.GetAppError(err).Code)
}

func TestFlowValidator_ValidateForBuild_MissingFields(t *testing.T) {
	v := NewFlowValidator()

	def := buildableDefinition()
	def.Prompt = "  "
	err := v.ValidateForBuild(def)
	require.Error(t, err)
	assert.Equal(t, "MISSING_FIELDS", errors.GetAppError(err).Code)

	def = buildableDefinition()
	def.EmbeddingModel = ""
	require.Error(t, v.ValidateForBuild(def))

	def = buildableDefinition()
	def.LLMModel = ""
	require.Error(t, v.ValidateForBuild(def))
}

func TestValidateMessage(t *testing.T) {
	assert.NoError(t, ValidateMessage("hello", 100))
	assert.Error(t, ValidateMessage("   ", 100))
	assert.Error(t, ValidateMessage("toolong", 3))

	err := ValidateMessage("", 0)
	require.Error(t, err)
	assert.Equal(t, "EMPTY_MESSAGE", errors.GetAppError(err).Code)
}
