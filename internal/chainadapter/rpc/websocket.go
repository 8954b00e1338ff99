package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// reconnectInitialBackoff and reconnectMaxBackoff bound the exponential
// backoff WebSocketRPCClient uses when its connection to the node drops.
// Reconnecting restores request/response Calls; subscriptions made before
// the drop are not re-issued on the new connection, so their channels stop
// receiving notifications.
const (
	reconnectInitialBackoff = 1 * time.Second
	reconnectMaxBackoff     = 60 * time.Second
)

// WebSocketRPCClient is the transport chainadapter/ethereum uses for
// SubscribeBlocks: it's the only RPCClient that supports eth_subscribe.
// Call/CallBatch route over the same socket so a single network config
// entry can serve both request/response calls and the block subscription.
type WebSocketRPCClient struct {
	url    string
	conn   *websocket.Conn
	connMu sync.RWMutex

	requestID    atomic.Int64
	pendingCalls map[int64]chan *RPCResponse
	pendingMu    sync.RWMutex

	subscriptions map[string]chan json.RawMessage
	subsMu        sync.RWMutex

	reconnecting atomic.Bool
	closed       atomic.Bool
	closeChan    chan struct{}
}

// NewWebSocketRPCClient dials url (e.g. "wss://mainnet.infura.io/ws/v3/...")
// and starts the background read loop that dispatches responses and
// subscription notifications as they arrive.
func NewWebSocketRPCClient(url string) (*WebSocketRPCClient, error) {
	c := &WebSocketRPCClient{
		url:           url,
		pendingCalls:  make(map[int64]chan *RPCResponse),
		subscriptions: make(map[string]chan json.RawMessage),
		closeChan:     make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to WebSocket: %w", err)
	}
	go c.readLoop()

	return c, nil
}

// Call sends a JSON-RPC request over the socket and waits for its matching
// response, reconnecting in the background if the write fails.
func (c *WebSocketRPCClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("WebSocket client is closed")
	}

	reqID := c.requestID.Add(1)
	respChan := make(chan *RPCResponse, 1)
	c.pendingMu.Lock()
	c.pendingCalls[reqID] = respChan
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pendingCalls, reqID)
		c.pendingMu.Unlock()
	}()

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("WebSocket not connected")
	}

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      reqID,
		"method":  method,
		"params":  params,
	}
	if err := conn.WriteJSON(req); err != nil {
		go c.reconnect()
		return nil, fmt.Errorf("failed to send WebSocket request: %w", err)
	}

	select {
	case resp := <-respChan:
		if resp.Error != nil {
			return nil, fmt.Errorf("JSON-RPC error: %s", resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closeChan:
		return nil, fmt.Errorf("WebSocket client closed")
	}
}

// CallBatch has no WebSocket equivalent; eth_subscribe-capable nodes don't
// batch over a single socket connection the way HTTP JSON-RPC batches do.
func (c *WebSocketRPCClient) CallBatch(ctx context.Context, requests []RPCRequest) ([]json.RawMessage, error) {
	return nil, fmt.Errorf("batch calls not supported for WebSocket RPC")
}

// Subscribe issues an eth_subscribe-style call and returns the channel that
// receives each subsequent notification for the returned subscription id.
func (c *WebSocketRPCClient) Subscribe(ctx context.Context, method string, params interface{}) (<-chan json.RawMessage, error) {
	result, err := c.Call(ctx, method, params)
	if err != nil {
		return nil, fmt.Errorf("subscription failed: %w", err)
	}

	var subID string
	if err := json.Unmarshal(result, &subID); err != nil {
		return nil, fmt.Errorf("failed to parse subscription ID: %w", err)
	}

	notifChan := make(chan json.RawMessage, 100)
	c.subsMu.Lock()
	c.subscriptions[subID] = notifChan
	c.subsMu.Unlock()

	return notifChan, nil
}

// Close shuts down the connection; in-flight Calls unblock via closeChan.
// Subscription channels returned by Subscribe are not closed.
func (c *WebSocketRPCClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.closeChan)

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *WebSocketRPCClient) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// reconnect redials with exponential backoff until it succeeds or the
// client is closed, then restarts the read loop.
func (c *WebSocketRPCClient) reconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	backoff := reconnectInitialBackoff
	for {
		select {
		case <-c.closeChan:
			return
		case <-time.After(backoff):
			if err := c.connect(); err != nil {
				backoff *= 2
				if backoff > reconnectMaxBackoff {
					backoff = reconnectMaxBackoff
				}
				continue
			}
			go c.readLoop()
			return
		}
	}
}

// readLoop demultiplexes incoming frames: messages carrying an "id" are
// routed to the matching pending Call, messages carrying a "method" are
// routed to the matching subscription channel.
func (c *WebSocketRPCClient) readLoop() {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return
	}

	for {
		select {
		case <-c.closeChan:
			return
		default:
		}

		var msg json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			go c.reconnect()
			return
		}

		var partial struct {
			ID     *int64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(msg, &partial); err != nil {
			continue
		}

		switch {
		case partial.ID != nil:
			c.dispatchResponse(*partial.ID, msg)
		case partial.Method != "":
			c.dispatchNotification(msg)
		}
	}
}

func (c *WebSocketRPCClient) dispatchResponse(id int64, msg json.RawMessage) {
	var resp RPCResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return
	}

	c.pendingMu.RLock()
	respChan, exists := c.pendingCalls[id]
	c.pendingMu.RUnlock()
	if exists {
		respChan <- &resp
	}
}

func (c *WebSocketRPCClient) dispatchNotification(msg json.RawMessage) {
	var notification struct {
		Params struct {
			Subscription string          `json:"subscription"`
			Result       json.RawMessage `json:"result"`
		} `json:"params"`
	}
	if err := json.Unmarshal(msg, &notification); err != nil {
		return
	}

	c.subsMu.RLock()
	notifChan, exists := c.subscriptions[notification.Params.Subscription]
	c.subsMu.RUnlock()
	if exists {
		select {
		case notifChan <- notification.Params.Result:
		default:
		}
	}
}
