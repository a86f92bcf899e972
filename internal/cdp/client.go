// Package cdp is a minimal Chrome DevTools Protocol client, carrying just
// the surface the notebook harness needs: correlated command calls, flat
// session attachment, and JavaScript evaluation in a page context.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a Chrome DevTools Protocol client over a single websocket.
type Client struct {
	conn       *websocket.Conn
	wsURL      string
	writeMu    sync.Mutex
	messageID  atomic.Int64
	pending    map[int64]chan callResult
	pendingMu  sync.Mutex
	events     map[string][]chan json.RawMessage // key: "sessionID:method"
	eventsMu   sync.Mutex
	sessions   map[string]string // targetID -> sessionID
	sessionsMu sync.Mutex
	closed     atomic.Bool
	closeOnce  sync.Once
	closeCh    chan struct{}
}

type callResult struct {
	Result json.RawMessage
	Error  *ProtocolError
}

// Connect discovers the browser websocket endpoint via /json/version and
// establishes the protocol connection.
func Connect(ctx context.Context, host string, port int) (*Client, error) {
	versionURL := fmt.Sprintf("http://%s:%d/json/version", host, port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	defer resp.Body.Close()

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return nil, fmt.Errorf("decoding version response: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("no websocket URL in version response")
	}

	return ConnectURL(ctx, version.WebSocketDebuggerURL)
}

// ConnectURL connects directly to a websocket debugger URL.
func ConnectURL(ctx context.Context, wsURL string) (*Client, error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to websocket: %w", err)
	}

	c := &Client{
		conn:     conn,
		wsURL:    wsURL,
		pending:  make(map[int64]chan callResult),
		events:   make(map[string][]chan json.RawMessage),
		sessions: make(map[string]string),
		closeCh:  make(chan struct{}),
	}

	go c.readMessages()

	return c, nil
}

// WebSocketURL returns the websocket URL used for this connection.
func (c *Client) WebSocketURL() string {
	return c.wsURL
}

// Close tears down the connection and wakes up all pending callers.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// Detach cached sessions, best effort
		c.sessionsMu.Lock()
		sessions := make([]string, 0, len(c.sessions))
		for _, sessionID := range c.sessions {
			sessions = append(sessions, sessionID)
		}
		c.sessions = make(map[string]string)
		c.sessionsMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, sessionID := range sessions {
			c.Call(ctx, "Target.detachFromTarget", map[string]interface{}{
				"sessionId": sessionID,
			})
		}

		c.closed.Store(true)
		close(c.closeCh)
		err = c.conn.Close()

		c.pendingMu.Lock()
		for _, ch := range c.pending {
			close(ch)
		}
		c.pending = make(map[int64]chan callResult)
		c.pendingMu.Unlock()
	})
	return err
}

type wireRequest struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type wireMessage struct {
	ID        int64           `json:"id"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ProtocolError  `json:"error,omitempty"`
	Method    string          `json:"method,omitempty"`    // events
	Params    json.RawMessage `json:"params,omitempty"`    // events
	SessionID string          `json:"sessionId,omitempty"` // session-scoped events
}

// Call sends a protocol command on the browser connection and waits for the response.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return c.call(ctx, "", method, params)
}

// CallSession sends a protocol command to a specific session and waits for the response.
func (c *Client) CallSession(ctx context.Context, sessionID string, method string, params interface{}) (json.RawMessage, error) {
	return c.call(ctx, sessionID, method, params)
}

func (c *Client) call(ctx context.Context, sessionID string, method string, params interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	req := wireRequest{
		ID:        c.messageID.Add(1),
		SessionID: sessionID,
		Method:    method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshaling params: %w", err)
		}
		req.Params = data
	}

	respChan := make(chan callResult, 1)
	c.pendingMu.Lock()
	c.pending[req.ID] = respChan
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	select {
	case result, ok := <-respChan:
		if !ok {
			return nil, ErrConnectionClosed
		}
		if result.Error != nil {
			return nil, result.Error
		}
		return result.Result, nil
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readMessages() {
	defer c.Close()

	for {
		var msg wireMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.ID > 0 {
			c.pendingMu.Lock()
			if ch, ok := c.pending[msg.ID]; ok {
				ch <- callResult{Result: msg.Result, Error: msg.Error}
			}
			c.pendingMu.Unlock()
		}

		if msg.Method != "" {
			key := msg.SessionID + ":" + msg.Method
			c.eventsMu.Lock()
			for _, ch := range c.events[key] {
				select {
				case ch <- msg.Params:
				default:
					// Drop if the subscriber is not keeping up
				}
			}
			c.eventsMu.Unlock()
		}
	}
}

// SubscribeEvent registers a channel receiving params of a protocol event.
func (c *Client) SubscribeEvent(sessionID, method string) chan json.RawMessage {
	ch := make(chan json.RawMessage, 100)
	key := sessionID + ":" + method

	c.eventsMu.Lock()
	c.events[key] = append(c.events[key], ch)
	c.eventsMu.Unlock()

	return ch
}

// UnsubscribeEvent removes and closes a previously registered event channel.
func (c *Client) UnsubscribeEvent(sessionID, method string, ch chan json.RawMessage) {
	key := sessionID + ":" + method

	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()

	handlers := c.events[key]
	for i, h := range handlers {
		if h == ch {
			c.events[key] = append(handlers[:i], handlers[i+1:]...)
			close(ch)
			return
		}
	}
}

// attachToTarget returns a flat-mode session for the target, creating and
// caching one on first use.
func (c *Client) attachToTarget(ctx context.Context, targetID string) (string, error) {
	c.sessionsMu.Lock()
	if sessionID, ok := c.sessions[targetID]; ok {
		c.sessionsMu.Unlock()
		return sessionID, nil
	}
	c.sessionsMu.Unlock()

	result, err := c.Call(ctx, "Target.attachToTarget", map[string]interface{}{
		"targetId": targetID,
		"flatten":  true,
	})
	if err != nil {
		return "", fmt.Errorf("attaching to target: %w", err)
	}

	var attach struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(result, &attach); err != nil {
		return "", fmt.Errorf("parsing attach response: %w", err)
	}

	c.sessionsMu.Lock()
	c.sessions[targetID] = attach.SessionID
	c.sessionsMu.Unlock()

	return attach.SessionID, nil
}

// Pages lists page-type targets.
func (c *Client) Pages(ctx context.Context) ([]TargetInfo, error) {
	result, err := c.Call(ctx, "Target.getTargets", nil)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	var resp struct {
		TargetInfos []struct {
			TargetID string `json:"targetId"`
			Type     string `json:"type"`
			Title    string `json:"title"`
			URL      string `json:"url"`
		} `json:"targetInfos"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing targets response: %w", err)
	}

	var pages []TargetInfo
	for _, t := range resp.TargetInfos {
		if t.Type != "page" {
			continue
		}
		pages = append(pages, TargetInfo{
			ID:    t.TargetID,
			Type:  t.Type,
			Title: t.Title,
			URL:   t.URL,
		})
	}

	return pages, nil
}
