// Package api implements the workflow and chat service ports over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"flowsync/application/ports"
	"flowsync/domain/core/aggregates"
	"flowsync/domain/core/entities"
	"flowsync/pkg/auth"
	"flowsync/pkg/errors"
)

// Client talks to the workflow service. One breaker guards all endpoints:
// the service is a single deployment, so a failing save predicts a
// failing send.
type Client struct {
	baseURL   string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
	tokens    auth.TokenSource
	recoverer ports.SessionRecoverer
	logger    *zap.Logger
}

// Options tunes the client.
type Options struct {
	Timeout          time.Duration
	BreakerThreshold int
}

func NewClient(baseURL string, tokens auth.TokenSource, recoverer ports.SessionRecoverer, logger *zap.Logger, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 5
	}

	threshold := uint32(opts.BreakerThreshold)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "workflow-service",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: opts.Timeout},
		breaker:   breaker,
		tokens:    tokens,
		recoverer: recoverer,
		logger:    logger,
	}
}

// List implements ports.WorkflowAPI
func (c *Client) List(ctx context.Context) ([]aggregates.Workflow, error) {
	var workflows []aggregates.Workflow
	if err := c.do(ctx, http.MethodGet, "/workflows", nil, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

// Get implements ports.WorkflowAPI
func (c *Client) Get(ctx context.Context, id string) (*aggregates.Workflow, error) {
	var wf aggregates.Workflow
	if err := c.do(ctx, http.MethodGet, "/workflows/"+id, nil, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Save implements ports.WorkflowAPI
func (c *Client) Save(ctx context.Context, wf *aggregates.Workflow) (*aggregates.Workflow, error) {
	var stored aggregates.Workflow
	if err := c.do(ctx, http.MethodPut, "/workflows/"+wf.ID, wf, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Execute implements ports.WorkflowAPI
func (c *Client) Execute(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/workflows/"+id+"/execute", nil, nil)
}

type createSessionRequest struct {
	WorkflowID string `json:"workflow_id"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

// CreateSession implements ports.ChatAPI
func (c *Client) CreateSession(ctx context.Context, workflowID string) (string, error) {
	var resp createSessionResponse
	err := c.do(ctx, http.MethodPost, "/sessions", createSessionRequest{WorkflowID: workflowID}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

type sendMessageRequest struct {
	SessionID  string `json:"session_id,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Message    string `json:"message"`
	IsFirst    bool   `json:"is_first,omitempty"`
}

type sendMessageResponse struct {
	SessionID string                `json:"session_id"`
	Message   *entities.ChatMessage `json:"message,omitempty"`
}

// Send implements ports.ChatAPI
func (c *Client) Send(ctx context.Context, sessionID, text string) (*ports.SendResult, error) {
	var resp sendMessageResponse
	err := c.do(ctx, http.MethodPost, "/messages", sendMessageRequest{SessionID: sessionID, Message: text}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		resp.SessionID = sessionID
	}
	return &ports.SendResult{SessionID: resp.SessionID, Message: resp.Message}, nil
}

// SendFirst implements ports.ChatAPI
func (c *Client) SendFirst(ctx context.Context, workflowID, text string) (*ports.SendResult, error) {
	var resp sendMessageResponse
	err := c.do(ctx, http.MethodPost, "/messages", sendMessageRequest{WorkflowID: workflowID, Message: text, IsFirst: true}, &resp)
	if err != nil {
		return nil, err
	}
	return &ports.SendResult{SessionID: resp.SessionID, Message: resp.Message}, nil
}

// ListMessages implements ports.ChatAPI
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]entities.ChatMessage, error) {
	var messages []entities.ChatMessage
	if err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// do runs one request through the breaker, mapping failures onto the
// error taxonomy. An auth failure triggers one recovery attempt before
// the retry; a second failure is surfaced.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	err := c.once(ctx, method, path, body, out)
	if err == nil || !errors.IsAuth(err) || c.recoverer == nil {
		return err
	}

	c.logger.Info("attempting session recovery", zap.String("path", path))
	if recErr := c.recoverer.Recover(ctx); recErr != nil {
		return errors.NewAuthError("session recovery failed").WithCause(recErr)
	}
	return c.once(ctx, method, path, body, out)
}

func (c *Client) once(ctx context.Context, method, path string, body, out interface{}) error {
	operation := method + " " + path
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, body, out)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.NewTransportError(operation, err).WithCode("CIRCUIT_OPEN")
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out interface{}) error {
	operation := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("encode request for %s: %v", operation, err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("build request for %s: %v", operation, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewTransportError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(operation, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewTransportError(operation, err).WithCode("BAD_RESPONSE")
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) statusError(operation string, resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)
	detail := body.Message
	if detail == "" {
		detail = body.Error
	}
	if detail == "" {
		detail = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errors.NewAuthError(detail)
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewNotFoundError(detail)
	case resp.StatusCode == http.StatusConflict:
		return errors.NewConflictError(detail)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		appErr := errors.NewValidationError(detail)
		if body.Code != "" {
			appErr = appErr.WithCode(body.Code)
		}
		return appErr
	default:
		return errors.NewTransportError(operation, fmt.Errorf("%s: %s", resp.Status, detail))
	}
}
