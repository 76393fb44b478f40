package commands

import (
	"strings"

	"flowsync/pkg/errors"
)

// SendMessageCommand appends a user message to an existing chat session.
// Text is trimmed before validation; a message that is empty after
// trimming is rejected up front and never reaches the transport.
type SendMessageCommand struct {
	SessionID string
	Text      string
}

// Validate implements bus.Command
func (c SendMessageCommand) Validate() error {
	if c.SessionID == "" {
		return errors.NewValidationError("session id is required")
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.NewValidationError("message text is empty").WithCode("EMPTY_MESSAGE")
	}
	return nil
}

// Trimmed returns the text as it will be sent.
func (c SendMessageCommand) Trimmed() string {
	return strings.TrimSpace(c.Text)
}

// SendFirstMessageCommand starts a conversation for a workflow that has
// no session yet. The server creates the session as part of handling the
// message and returns its id.
type SendFirstMessageCommand struct {
	WorkflowID string
	Text       string
}

// Validate implements bus.Command
func (c SendFirstMessageCommand) Validate() error {
	if c.WorkflowID == "" {
		return errors.NewValidationError("workflow id is required")
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.NewValidationError("message text is empty").WithCode("EMPTY_MESSAGE")
	}
	return nil
}

// Trimmed returns the text as it will be sent.
func (c SendFirstMessageCommand) Trimmed() string {
	return strings.TrimSpace(c.Text)
}
