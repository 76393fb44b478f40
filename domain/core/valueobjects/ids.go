package valueobjects

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// provisionalNamespace is the reserved marker that makes a client-minted id
// impossible to confuse with a server-issued one. Server ids are UUIDs and
// can never start with this prefix.
const provisionalNamespace = "prov"

const provisionalSeparator = ":"

// ProvisionalKind tags a provisional id with the record role it stands in
// for, so later filtering can target exactly the records of interest.
type ProvisionalKind string

const (
	ProvisionalUserMessage          ProvisionalKind = "user-message"
	ProvisionalAssistantPlaceholder ProvisionalKind = "assistant-placeholder"
)

// NewProvisionalID mints a locally-unique provisional identifier for a
// record that has not been acknowledged by the authoritative store yet.
// The ULID component carries a millisecond clock plus entropy, so ids
// minted in the same tick stay distinct and sort in mint order.
func NewProvisionalID(kind ProvisionalKind) string {
	return provisionalNamespace + provisionalSeparator + string(kind) + provisionalSeparator + ulid.Make().String()
}

// IsProvisional reports whether id was minted locally by NewProvisionalID.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, provisionalNamespace+provisionalSeparator)
}

// ProvisionalKindOf extracts the kind tag from a provisional id.
func ProvisionalKindOf(id string) (ProvisionalKind, bool) {
	if !IsProvisional(id) {
		return "", false
	}
	parts := strings.SplitN(id, provisionalSeparator, 3)
	if len(parts) != 3 {
		return "", false
	}
	return ProvisionalKind(parts[1]), true
}

// IsServerID reports whether id has the shape of an id assigned by the
// authoritative store.
func IsServerID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
