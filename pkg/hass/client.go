package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// get_states on a busy instance can exceed the default read limit
const wsReadLimitBytes = 1 << 24

var ErrClientClosed = errors.New("hass: client closed")

// Client is the Home Assistant websocket API surface used by the service.
type Client interface {
	Open(ctx context.Context) error
	Close() error
	GetStates(ctx context.Context) (map[string]State, error)
	CallService(ctx context.Context, call ServiceCall) error
}

type WebsocketClient struct {
	url     string
	token   string
	timeout time.Duration
	logger  *zap.Logger

	conn    *websocket.Conn
	mu      sync.Mutex
	nextId  int
	pending map[int]chan serverMessage
	done    chan struct{}
}

type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}

type commandMessage struct {
	Id          int            `json:"id"`
	Type        string         `json:"type"`
	Domain      string         `json:"domain,omitempty"`
	Service     string         `json:"service,omitempty"`
	Target      *ServiceTarget `json:"target,omitempty"`
	ServiceData map[string]any `json:"service_data,omitempty"`
}

type serverMessage struct {
	Id      int             `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *apiError       `json:"error"`
	Message string          `json:"message"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) String() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewWebsocketClient(url, token string, timeout time.Duration, logger *zap.Logger) *WebsocketClient {
	return &WebsocketClient{
		url:     url,
		token:   token,
		timeout: timeout,
		logger:  logger,
		nextId:  1,
		pending: make(map[int]chan serverMessage),
		done:    make(chan struct{}),
	}
}

// Open dials the websocket endpoint and performs the auth handshake:
// auth_required -> auth -> auth_ok. On success a read loop is started
// that dispatches command results to their callers.
func (c *WebsocketClient) Open(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("%s/api/websocket", c.url), &websocket.DialOptions{})
	if err != nil {
		return fmt.Errorf("hass: dial: %w", err)
	}
	conn.SetReadLimit(wsReadLimitBytes)

	var hello serverMessage
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		conn.CloseNow()
		return fmt.Errorf("hass: handshake read: %w", err)
	}
	if hello.Type != "auth_required" {
		conn.CloseNow()
		return fmt.Errorf("hass: unexpected handshake message %q", hello.Type)
	}
	if err := wsjson.Write(ctx, conn, authMessage{Type: "auth", AccessToken: c.token}); err != nil {
		conn.CloseNow()
		return fmt.Errorf("hass: auth write: %w", err)
	}
	var authResp serverMessage
	if err := wsjson.Read(ctx, conn, &authResp); err != nil {
		conn.CloseNow()
		return fmt.Errorf("hass: auth read: %w", err)
	}
	if authResp.Type != "auth_ok" {
		conn.CloseNow()
		return fmt.Errorf("hass: auth failed: %s", authResp.Message)
	}

	c.conn = conn
	go c.readLoop()

	c.logger.Info("connected to Home Assistant", zap.String("url", c.url))
	return nil
}

func (c *WebsocketClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *WebsocketClient) readLoop() {
	defer close(c.done)
	for {
		var msg serverMessage
		if err := wsjson.Read(context.Background(), c.conn, &msg); err != nil {
			c.logger.Warn("hass read loop ended", zap.Error(err))
			return
		}
		if msg.Id == 0 {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.Id]
		if ok {
			delete(c.pending, msg.Id)
		}
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (c *WebsocketClient) request(ctx context.Context, cmd commandMessage) (serverMessage, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return serverMessage{}, ErrClientClosed
	}
	cmd.Id = c.nextId
	c.nextId++
	ch := make(chan serverMessage, 1)
	c.pending[cmd.Id] = ch
	c.mu.Unlock()

	if err := wsjson.Write(ctx, c.conn, cmd); err != nil {
		c.mu.Lock()
		delete(c.pending, cmd.Id)
		c.mu.Unlock()
		return serverMessage{}, fmt.Errorf("hass: write %s: %w", cmd.Type, err)
	}

	select {
	case msg := <-ch:
		if !msg.Success {
			if msg.Error != nil {
				return msg, fmt.Errorf("hass: %s failed: %s", cmd.Type, msg.Error)
			}
			return msg, fmt.Errorf("hass: %s failed", cmd.Type)
		}
		return msg, nil
	case <-c.done:
		return serverMessage{}, ErrClientClosed
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, cmd.Id)
		c.mu.Unlock()
		return serverMessage{}, ctx.Err()
	}
}

// GetStates returns the state of every entity, keyed by entity id.
func (c *WebsocketClient) GetStates(ctx context.Context) (map[string]State, error) {
	resp, err := c.request(ctx, commandMessage{Type: "get_states"})
	if err != nil {
		return nil, err
	}
	var list []State
	if err := json.Unmarshal(resp.Result, &list); err != nil {
		return nil, fmt.Errorf("hass: get_states decode: %w", err)
	}
	states := make(map[string]State, len(list))
	for _, s := range list {
		states[s.EntityId] = s
	}
	return states, nil
}

func (c *WebsocketClient) CallService(ctx context.Context, call ServiceCall) error {
	cmd := commandMessage{
		Type:        "call_service",
		Domain:      call.Domain,
		Service:     call.Service,
		ServiceData: call.Data,
	}
	if len(call.Target.EntityId) > 0 {
		cmd.Target = &call.Target
	}
	_, err := c.request(ctx, cmd)
	return err
}

func (c *WebsocketClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// ensure interface compliance
var _ Client = (*WebsocketClient)(nil)
