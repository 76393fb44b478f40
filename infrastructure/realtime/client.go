// Package realtime implements the push channel port over a Phoenix-style
// websocket, the protocol spoken by Supabase realtime. One connection
// carries every subscription; each scope maps to one channel topic.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"flowsync/application/ports"
	"flowsync/domain/events"
	"flowsync/pkg/auth"
	"flowsync/pkg/errors"
)

// Options tunes the channel.
type Options struct {
	HeartbeatInterval time.Duration
	ReconnectBackoff  time.Duration
	MaxReconnectTries int
}

func (o *Options) fill() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.ReconnectBackoff <= 0 {
		o.ReconnectBackoff = 2 * time.Second
	}
	if o.MaxReconnectTries <= 0 {
		o.MaxReconnectTries = 10
	}
}

// frame is one Phoenix protocol message.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// changePayload is the body of a postgres_changes notification.
type changePayload struct {
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// Client is a ports.PushChannel over one websocket. The reader goroutine
// dispatches events to handlers synchronously, which preserves the
// per-scope FIFO order the reconciler depends on.
type Client struct {
	url     string
	tokens  auth.TokenSource
	logger  *zap.Logger
	opts    Options
	dialer  *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    map[events.Scope]ports.ChangeHandler
	nextRef int
	closed  bool
	done    chan struct{}

	writeMu sync.Mutex
}

func NewClient(url string, tokens auth.TokenSource, logger *zap.Logger, opts Options) *Client {
	opts.fill()
	return &Client{
		url:    url,
		tokens: tokens,
		logger: logger,
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		subs:   make(map[events.Scope]ports.ChangeHandler),
	}
}

// topicFor maps a scope onto a filtered channel topic.
func topicFor(scope events.Scope) string {
	column := "id"
	if scope.Table == events.TableMessages {
		column = "session_id"
	}
	return fmt.Sprintf("realtime:public:%s:%s=eq.%s", scope.Table, column, scope.Key)
}

// scopeForTopic inverts topicFor.
func scopeForTopic(topic string) (events.Scope, bool) {
	parts := strings.SplitN(topic, ":", 4)
	if len(parts) != 4 || parts[0] != "realtime" {
		return events.Scope{}, false
	}
	table, filter := parts[2], parts[3]
	eq := strings.Index(filter, "=eq.")
	if eq < 0 {
		return events.Scope{}, false
	}
	return events.Scope{Table: table, Key: filter[eq+len("=eq."):]}, true
}

// Subscribe implements ports.PushChannel
func (c *Client) Subscribe(ctx context.Context, scope events.Scope, handler ports.ChangeHandler) error {
	if scope.IsZero() {
		return errors.NewChannelError("cannot subscribe to an empty scope", nil)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.NewChannelError("channel closed", nil)
	}
	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.subs[scope] = handler
	c.mu.Unlock()

	if err := c.join(scope); err != nil {
		c.mu.Lock()
		delete(c.subs, scope)
		c.mu.Unlock()
		return err
	}
	c.logger.Info("subscribed", zap.String("scope", scope.String()))
	return nil
}

// Unsubscribe implements ports.PushChannel
func (c *Client) Unsubscribe(scope events.Scope) error {
	c.mu.Lock()
	_, known := c.subs[scope]
	delete(c.subs, scope)
	connected := c.conn != nil
	c.mu.Unlock()

	if !known || !connected {
		return nil
	}
	return c.send(frame{Topic: topicFor(scope), Event: "phx_leave", Payload: json.RawMessage(`{}`), Ref: c.ref()})
}

// Close implements ports.PushChannel
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.subs = make(map[events.Scope]ports.ChangeHandler)
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// connectLocked dials the endpoint and starts the reader and heartbeat
// goroutines. Caller holds c.mu.
func (c *Client) connectLocked(ctx context.Context) error {
	url := c.url
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		url = c.url + "?token=" + token
	}

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return errors.NewChannelError("failed to connect push channel", err)
	}

	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)
	go c.heartbeatLoop(c.done)
	return nil
}

func (c *Client) join(scope events.Scope) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"config": map[string]interface{}{
			"postgres_changes": []map[string]string{{
				"event":  "*",
				"schema": "public",
				"table":  scope.Table,
			}},
		},
	})
	return c.send(frame{Topic: topicFor(scope), Event: "phx_join", Payload: payload, Ref: c.ref()})
}

func (c *Client) ref() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextRef++
	return strconv.Itoa(c.nextRef)
}

func (c *Client) send(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.NewChannelError("push channel not connected", nil)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(f); err != nil {
		return errors.NewChannelError("push channel write failed", err)
	}
	return nil
}

func (c *Client) heartbeatLoop(done chan struct{}) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := c.send(frame{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: c.ref()})
			if err != nil {
				c.logger.Warn("heartbeat failed", zap.Error(err))
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case <-done:
				return
			default:
			}
			c.logger.Warn("push channel read failed", zap.Error(err))
			c.reconnect(conn)
			return
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	changeType, ok := events.ParseChangeType(f.Event)
	if !ok {
		// phx_reply, presence and heartbeat acks are protocol noise.
		return
	}
	scope, ok := scopeForTopic(f.Topic)
	if !ok {
		c.logger.Warn("event on unrecognized topic", zap.String("topic", f.Topic))
		return
	}

	c.mu.Lock()
	handler := c.subs[scope]
	c.mu.Unlock()
	if handler == nil {
		return
	}

	var payload changePayload
	if err := json.Unmarshal(f.Payload, &payload); err != nil {
		c.logger.Warn("undecodable change payload", zap.String("topic", f.Topic), zap.Error(err))
		return
	}

	handler(events.ChangeEvent{
		Type:       changeType,
		Scope:      scope,
		New:        payload.Record,
		Old:        payload.OldRecord,
		ReceivedAt: time.Now().UTC(),
	})
}

// reconnect re-dials after a dropped connection and re-joins every
// active scope. Gaps during the outage are acceptable; the application
// reloads state when the user navigates.
func (c *Client) reconnect(old *websocket.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != old {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	scopes := make([]events.Scope, 0, len(c.subs))
	for scope := range c.subs {
		scopes = append(scopes, scope)
	}
	c.mu.Unlock()
	_ = old.Close()

	backoff := c.opts.ReconnectBackoff
	for attempt := 1; attempt <= c.opts.MaxReconnectTries; attempt++ {
		time.Sleep(backoff)
		if backoff < time.Minute {
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			cancel()
			return
		}
		err := c.connectLocked(ctx)
		c.mu.Unlock()
		cancel()
		if err != nil {
			c.logger.Warn("reconnect attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		for _, scope := range scopes {
			if err := c.join(scope); err != nil {
				c.logger.Warn("failed to rejoin scope", zap.String("scope", scope.String()), zap.Error(err))
			}
		}
		c.logger.Info("push channel reconnected", zap.Int("scopes", len(scopes)))
		return
	}

	c.logger.Error("push channel gave up reconnecting; realtime sync degraded",
		zap.Int("attempts", c.opts.MaxReconnectTries))
}

