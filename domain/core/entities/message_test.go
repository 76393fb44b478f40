package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id string, createdAt time.Time) ChatMessage {
	text := "body of " + id
	return ChatMessage{
		ID:        id,
		SessionID: "s1",
		Role:      RoleUser,
		Message:   &text,
		CreatedAt: createdAt,
	}
}

func TestCompareByCreatedAt(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	earlier := msg("a", base)
	later := msg("b", base.Add(time.Second))

	assert.Equal(t, -1, CompareByCreatedAt(earlier, later))
	assert.Equal(t, 1, CompareByCreatedAt(later, earlier))
	assert.Equal(t, 0, CompareByCreatedAt(earlier, msg("c", base)))
}

func TestSortMessages_StableOnTimestampCollision(t *testing.T) {
	// Millisecond clocks collide; insertion order must be preserved.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages := []ChatMessage{
		msg("first", base),
		msg("second", base),
		msg("third", base),
	}

	SortMessages(messages)

	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].ID)
	assert.Equal(t, "second", messages[1].ID)
	assert.Equal(t, "third", messages[2].ID)
}

func TestSortMessages_OrdersByCreatedAt(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages := []ChatMessage{
		msg("late", base.Add(2*time.Second)),
		msg("early", base),
		msg("middle", base.Add(time.Second)),
	}

	SortMessages(messages)

	assert.Equal(t, []string{"early", "middle", "late"}, []string{messages[0].ID, messages[1].ID, messages[2].ID})
}

func TestChatMessage_IsGenerating(t *testing.T) {
	placeholder := ChatMessage{
		ID:       "prov:assistant-placeholder:01J0000000000000000000000",
		Role:     RoleAssistant,
		Metadata: map[string]interface{}{"status": MetadataStatusGenerating},
	}
	assert.True(t, placeholder.IsGenerating())
	assert.True(t, placeholder.IsProvisional())

	done := placeholder.Clone()
	done.Metadata["status"] = "complete"
	assert.False(t, done.IsGenerating())

	// Clone must not share metadata with the original.
	assert.True(t, placeholder.IsGenerating())

	assert.False(t, ChatMessage{ID: "x"}.IsGenerating())
}

func TestChatMessage_Text(t *testing.T) {
	assert.Equal(t, "", ChatMessage{}.Text())

	text := "hello"
	assert.Equal(t, "hello", ChatMessage{Message: &text}.Text())
}
