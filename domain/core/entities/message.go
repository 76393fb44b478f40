package entities

import (
	"sort"
	"time"

	"flowsync/domain/core/valueobjects"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// MetadataStatusGenerating marks an assistant placeholder whose real
// content has not been produced yet.
const MetadataStatusGenerating = "generating"

// ChatMessage is one record of a session transcript. A message whose id is
// provisional was minted locally and is never persisted remotely; it is
// removed or replaced once the corresponding real record arrives or the
// originating request fails.
type ChatMessage struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Role      MessageRole            `json:"role"`
	Message   *string                `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// IsProvisional reports whether the message was minted locally.
func (m ChatMessage) IsProvisional() bool {
	return valueobjects.IsProvisional(m.ID)
}

// IsGenerating reports whether the message is a placeholder still waiting
// for its content.
func (m ChatMessage) IsGenerating() bool {
	if m.Metadata == nil {
		return false
	}
	status, _ := m.Metadata["status"].(string)
	return status == MetadataStatusGenerating
}

// Text returns the message body, or "" when it is null.
func (m ChatMessage) Text() string {
	if m.Message == nil {
		return ""
	}
	return *m.Message
}

// Clone returns a deep copy of the message.
func (m ChatMessage) Clone() ChatMessage {
	out := m
	if m.Message != nil {
		text := *m.Message
		out.Message = &text
	}
	if m.Metadata != nil {
		meta := make(map[string]interface{}, len(m.Metadata))
		for k, v := range m.Metadata {
			meta[k] = v
		}
		out.Metadata = meta
	}
	return out
}

// CompareByCreatedAt is the total order for transcript messages: -1, 0, +1
// as a sorts before, with, or after b. Equal timestamps compare as 0 so a
// stable sort preserves insertion order when clocks collide at millisecond
// resolution.
func CompareByCreatedAt(a, b ChatMessage) int {
	switch {
	case a.CreatedAt.Before(b.CreatedAt):
		return -1
	case a.CreatedAt.After(b.CreatedAt):
		return 1
	default:
		return 0
	}
}

// SortMessages orders messages by the canonical transcript order in place.
func SortMessages(messages []ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return CompareByCreatedAt(messages[i], messages[j]) < 0
	})
}
