package aggregates

import (
	"time"

	"flowsync/domain/core/entities"
	"flowsync/domain/core/valueobjects"
)

// ChatSession is a transcript document: an ordered sequence of messages
// for one conversation. Messages are totally ordered by created_at with
// ties broken by insertion order; ids are unique within the sequence.
type ChatSession struct {
	ID         string                 `json:"id"`
	WorkflowID string                 `json:"workflow_id"`
	Messages   []entities.ChatMessage `json:"messages"`
	CreatedAt  time.Time              `json:"created_at"`
}

// IsDraft reports whether the session has not been created remotely yet.
// A draft session holds the provisional records of a first message while
// createSession is in flight.
func (s *ChatSession) IsDraft() bool {
	return s.ID == ""
}

// Clone returns a deep copy of the session.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	out := &ChatSession{
		ID:         s.ID,
		WorkflowID: s.WorkflowID,
		CreatedAt:  s.CreatedAt,
	}
	if s.Messages != nil {
		out.Messages = make([]entities.ChatMessage, len(s.Messages))
		for i, m := range s.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return out
}

// InsertMessage appends a message and re-sorts by the canonical order.
// Inserting an id that already exists is an idempotent no-op: the same
// logical creation may be observed twice, once via a write response and
// once via push, and must not duplicate.
func (s *ChatSession) InsertMessage(msg entities.ChatMessage) bool {
	for _, existing := range s.Messages {
		if existing.ID == msg.ID {
			return false
		}
	}
	s.Messages = append(s.Messages, msg)
	entities.SortMessages(s.Messages)
	return true
}

// UpdateMessage replaces the message with a matching id in place,
// preserving its position in the ordered sequence. Returns false when no
// such message exists.
func (s *ChatSession) UpdateMessage(msg entities.ChatMessage) bool {
	for i, existing := range s.Messages {
		if existing.ID == msg.ID {
			s.Messages[i] = msg
			return true
		}
	}
	return false
}

// RemoveMessage removes the message with the given id. Idempotent when the
// id is already absent.
func (s *ChatSession) RemoveMessage(id string) bool {
	for i, existing := range s.Messages {
		if existing.ID == id {
			s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveProvisional removes every provisional message from the sequence
// and returns how many were removed.
func (s *ChatSession) RemoveProvisional() int {
	kept := s.Messages[:0]
	removed := 0
	for _, m := range s.Messages {
		if m.IsProvisional() {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.Messages = kept
	return removed
}

// RemoveProvisionalOfKind removes provisional messages carrying the given
// kind tag and returns how many were removed.
func (s *ChatSession) RemoveProvisionalOfKind(kind valueobjects.ProvisionalKind) int {
	kept := s.Messages[:0]
	removed := 0
	for _, m := range s.Messages {
		if k, ok := valueobjects.ProvisionalKindOf(m.ID); ok && k == kind {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.Messages = kept
	return removed
}
