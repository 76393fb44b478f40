package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvisionalID_Distinct(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewProvisionalID(ProvisionalUserMessage)
		_, dup := seen[id]
		require.False(t, dup, "provisional ids must be locally unique")
		seen[id] = struct{}{}
	}
}

func TestIsProvisional(t *testing.T) {
	assert.True(t, IsProvisional(NewProvisionalID(ProvisionalUserMessage)))
	assert.True(t, IsProvisional(NewProvisionalID(ProvisionalAssistantPlaceholder)))

	// Server-issued ids are UUIDs and never carry the reserved prefix.
	assert.False(t, IsProvisional("0b1f8c1e-55aa-4c62-9d5e-6a1a3a1f0001"))
	assert.False(t, IsProvisional(""))
	assert.False(t, IsProvisional("provision"))
}

func TestProvisionalKindOf(t *testing.T) {
	id := NewProvisionalID(ProvisionalAssistantPlaceholder)

	kind, ok := ProvisionalKindOf(id)
	require.True(t, ok)
	assert.Equal(t, ProvisionalAssistantPlaceholder, kind)

	_, ok = ProvisionalKindOf("0b1f8c1e-55aa-4c62-9d5e-6a1a3a1f0001")
	assert.False(t, ok)
}

func TestIsServerID(t *testing.T) {
	assert.True(t, IsServerID("0b1f8c1e-55aa-4c62-9d5e-6a1a3a1f0001"))
	assert.False(t, IsServerID(NewProvisionalID(ProvisionalUserMessage)))
}
