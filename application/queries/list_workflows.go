// Package queries defines the read-side questions the UI layer asks,
// dispatched through the query bus.
package queries

import (
	"flowsync/pkg/errors"
)

// ListWorkflowsQuery fetches the full document list from the service and
// refreshes the local store.
type ListWorkflowsQuery struct{}

// Validate implements bus.Query
func (q ListWorkflowsQuery) Validate() error { return nil }

// GetWorkflowQuery fetches one document by id.
type GetWorkflowQuery struct {
	WorkflowID string
}

// Validate implements bus.Query
func (q GetWorkflowQuery) Validate() error {
	if q.WorkflowID == "" {
		return errors.NewValidationError("workflow id is required")
	}
	return nil
}

// ListMessagesQuery fetches the transcript for a session, sorted by
// creation time.
type ListMessagesQuery struct {
	SessionID string
}

// Validate implements bus.Query
func (q ListMessagesQuery) Validate() error {
	if q.SessionID == "" {
		return errors.NewValidationError("session id is required")
	}
	return nil
}
