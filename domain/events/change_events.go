package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
)

// ChangeType tags a push-channel notification. The channel delivers
// at-least-once with per-scope FIFO ordering; every application of a
// change must therefore be idempotent under redelivery.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ParseChangeType normalizes a wire-level event tag.
func ParseChangeType(s string) (ChangeType, bool) {
	switch ChangeType(strings.ToUpper(s)) {
	case ChangeInsert:
		return ChangeInsert, true
	case ChangeUpdate:
		return ChangeUpdate, true
	case ChangeDelete:
		return ChangeDelete, true
	}
	return "", false
}

// Table names of the records the push channel can carry.
const (
	TableMessages  = "chat_messages"
	TableWorkflows = "workflows"
)

// Scope identifies the record stream one subscription covers: a table plus
// the key that narrows it to a single document or session.
type Scope struct {
	Table string `json:"table"`
	Key   string `json:"key"`
}

// MessagesScope is the transcript stream of one session.
func MessagesScope(sessionID string) Scope {
	return Scope{Table: TableMessages, Key: sessionID}
}

// WorkflowScope is the record stream of one workflow document.
func WorkflowScope(workflowID string) Scope {
	return Scope{Table: TableWorkflows, Key: workflowID}
}

// IsZero reports whether the scope is unset.
func (s Scope) IsZero() bool {
	return s.Table == "" && s.Key == ""
}

// String returns a stable human-readable form for logging.
func (s Scope) String() string {
	return s.Table + "/" + s.Key
}

// ChangeEvent is one push-channel notification: an insert/update/delete
// tag plus a full record snapshot.
type ChangeEvent struct {
	Type       ChangeType      `json:"type"`
	Scope      Scope           `json:"scope"`
	New        json.RawMessage `json:"new,omitempty"`
	Old        json.RawMessage `json:"old,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Record returns the snapshot relevant for the change: the new record for
// inserts and updates, the old one for deletes.
func (e ChangeEvent) Record() json.RawMessage {
	if e.Type == ChangeDelete && len(e.New) == 0 {
		return e.Old
	}
	return e.New
}

// Message decodes the event's record as a chat message.
func (e ChangeEvent) Message() (entities.ChatMessage, error) {
	var msg entities.ChatMessage
	record := e.Record()
	if len(record) == 0 {
		return msg, fmt.Errorf("change event %s on %s carries no record", e.Type, e.Scope)
	}
	if err := json.Unmarshal(record, &msg); err != nil {
		return msg, fmt.Errorf("decode chat message from %s event: %w", e.Type, err)
	}
	return msg, nil
}

// Workflow decodes the event's record as a workflow document.
func (e ChangeEvent) Workflow() (aggregates.Workflow, error) {
	var wf aggregates.Workflow
	record := e.Record()
	if len(record) == 0 {
		return wf, fmt.Errorf("change event %s on %s carries no record", e.Type, e.Scope)
	}
	if err := json.Unmarshal(record, &wf); err != nil {
		return wf, fmt.Errorf("decode workflow from %s event: %w", e.Type, err)
	}
	return wf, nil
}
