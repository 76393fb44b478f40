// Package fixtures provides builders for test data.
package fixtures

import (
	"time"

	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/domain/core/valueobjects"
)

// WorkflowBuilder builds workflow documents for tests.
type WorkflowBuilder struct {
	wf aggregates.Workflow
}

func NewWorkflow(id string) *WorkflowBuilder {
	return &WorkflowBuilder{wf: aggregates.Workflow{
		ID:        id,
		Name:      "workflow " + id,
		Status:    aggregates.StatusPending,
		CreatedAt: time.Now().UTC(),
	}}
}

func (b *WorkflowBuilder) WithName(name string) *WorkflowBuilder {
	b.wf.Name = name
	return b
}

func (b *WorkflowBuilder) WithStatus(status aggregates.WorkflowStatus) *WorkflowBuilder {
	b.wf.Status = status
	return b
}

func (b *WorkflowBuilder) WithNode(id string, kind entities.NodeKind, x, y float64) *WorkflowBuilder {
	pos, _ := valueobjects.NewPosition(x, y)
	b.wf.Definition.Flow.Nodes = append(b.wf.Definition.Flow.Nodes, entities.FlowNode{
		ID:       id,
		Type:     string(kind),
		Position: &pos,
		Data:     map[string]interface{}{},
	})
	return b
}

func (b *WorkflowBuilder) WithEdge(source, target string) *WorkflowBuilder {
	b.wf.Definition.Flow.Edges = append(b.wf.Definition.Flow.Edges, entities.FlowEdge{
		ID:     "edge_" + source + "_" + target,
		Source: source,
		Target: target,
	})
	return b
}

func (b *WorkflowBuilder) WithDefinitionFields(query, prompt, llmModel, embeddingModel string) *WorkflowBuilder {
	b.wf.Definition.Query = query
	b.wf.Definition.Prompt = prompt
	b.wf.Definition.LLMModel = llmModel
	b.wf.Definition.EmbeddingModel = embeddingModel
	return b
}

// Buildable wires the canonical four-node chain with all required
// definition fields, ready to pass build validation.
func (b *WorkflowBuilder) Buildable() *WorkflowBuilder {
	return b.
		WithNode("n-query", entities.NodeKindQuery, 0, 0).
		WithNode("n-kb", entities.NodeKindKnowledgeBase, 100, 0).
		WithNode("n-llm", entities.NodeKindLLM, 200, 0).
		WithNode("n-output", entities.NodeKindOutput, 300, 0).
		WithEdge("n-query", "n-kb").
		WithEdge("n-kb", "n-llm").
		WithEdge("n-llm", "n-output").
		WithDefinitionFields("what is this", "answer briefly", "gpt-4o", "text-embedding-3-small")
}

func (b *WorkflowBuilder) Build() aggregates.Workflow {
	return b.wf.Clone()
}

// MessageBuilder builds chat messages for tests.
type MessageBuilder struct {
	msg entities.ChatMessage
}

func NewMessage(id, sessionID string) *MessageBuilder {
	text := "message " + id
	return &MessageBuilder{msg: entities.ChatMessage{
		ID:        id,
		SessionID: sessionID,
		Role:      entities.RoleUser,
		Message:   &text,
		CreatedAt: time.Now().UTC(),
	}}
}

func (b *MessageBuilder) WithRole(role entities.MessageRole) *MessageBuilder {
	b.msg.Role = role
	return b
}

func (b *MessageBuilder) WithText(text string) *MessageBuilder {
	b.msg.Message = &text
	return b
}

func (b *MessageBuilder) Generating() *MessageBuilder {
	b.msg.Role = entities.RoleAssistant
	b.msg.Message = nil
	b.msg.Metadata = map[string]interface{}{"status": entities.MetadataStatusGenerating}
	return b
}

func (b *MessageBuilder) At(ts time.Time) *MessageBuilder {
	b.msg.CreatedAt = ts
	return b
}

func (b *MessageBuilder) Build() entities.ChatMessage {
	return b.msg.Clone()
}

// SessionBuilder builds chat sessions for tests.
type SessionBuilder struct {
	session aggregates.ChatSession
}

func NewSession(id, workflowID string) *SessionBuilder {
	return &SessionBuilder{session: aggregates.ChatSession{
		ID:         id,
		WorkflowID: workflowID,
		CreatedAt:  time.Now().UTC(),
	}}
}

func (b *SessionBuilder) WithMessages(msgs ...entities.ChatMessage) *SessionBuilder {
	for _, m := range msgs {
		b.session.InsertMessage(m)
	}
	return b
}

func (b *SessionBuilder) Build() *aggregates.ChatSession {
	return b.session.Clone()
}
