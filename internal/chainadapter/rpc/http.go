package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// HTTPRPCClient sends JSON-RPC 2.0 requests to a single Ethereum node over
// HTTP. Each network in the solver's config carries exactly one RPC
// endpoint, so there is no failover to manage here: a failed call is
// returned to the caller as is. Neither this client nor the
// RateLimitedRPCClient and MetricsRPCClient wrappers retry it.
type HTTPRPCClient struct {
	endpoint   string
	httpClient *http.Client
	requestID  atomic.Int64
}

// NewHTTPRPCClient creates an HTTP RPC client bound to a single endpoint
// (e.g. "https://mainnet.infura.io/v3/...").
func NewHTTPRPCClient(endpoint string, timeout time.Duration) (*HTTPRPCClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}

	return &HTTPRPCClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Call executes a single JSON-RPC method call.
func (c *HTTPRPCClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	reqID := c.requestID.Add(1)
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      reqID,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(resp, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON-RPC response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("JSON-RPC error: %s", rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}

// CallBatch executes multiple JSON-RPC calls in a single HTTP round trip.
func (c *HTTPRPCClient) CallBatch(ctx context.Context, requests []RPCRequest) ([]json.RawMessage, error) {
	if len(requests) == 0 {
		return []json.RawMessage{}, nil
	}

	batchReq := make([]map[string]interface{}, len(requests))
	for i, req := range requests {
		batchReq[i] = map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      c.requestID.Add(1),
			"method":  req.Method,
			"params":  req.Params,
		}
	}

	body, err := json.Marshal(batchReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var batchResp []RPCResponse
	if err := json.Unmarshal(resp, &batchResp); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	results := make([]json.RawMessage, len(batchResp))
	for i, r := range batchResp {
		if r.Error == nil {
			results[i] = r.Result
		}
	}
	return results, nil
}

// Close releases idle HTTP connections.
func (c *HTTPRPCClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *HTTPRPCClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d, body: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
