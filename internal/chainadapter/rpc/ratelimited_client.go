// Package rpc - Rate-limited RPC client wrapper
package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/internal/ratelimit"
)

// RateLimitedRPCClient wraps an RPCClient and enforces a sliding-window
// budget per JSON-RPC method, keeping the adapter under a provider's
// requests-per-second ceiling.
type RateLimitedRPCClient struct {
	client  RPCClient
	limiter *ratelimit.RateLimiter
}

// NewRateLimitedRPCClient creates a wrapper allowing at most maxAttempts
// calls per method within window.
func NewRateLimitedRPCClient(client RPCClient, maxAttempts int, window time.Duration) *RateLimitedRPCClient {
	return &RateLimitedRPCClient{
		client:  client,
		limiter: ratelimit.NewRateLimiter(maxAttempts, window),
	}
}

// Call executes a single JSON-RPC method call, rejecting it with a
// retryable error if method is currently over budget.
func (r *RateLimitedRPCClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if !r.limiter.AllowAttempt(method) {
		return nil, chainadapter.NewRetryableError(
			chainadapter.ErrCodeNetworkCongestion,
			"rate limit exceeded for method "+method,
			nil,
			nil,
		)
	}
	return r.client.Call(ctx, method, params)
}

// CallBatch executes multiple JSON-RPC method calls, budgeting each
// request's method independently and rejecting the whole batch if any one
// of them is over budget.
func (r *RateLimitedRPCClient) CallBatch(ctx context.Context, requests []RPCRequest) ([]json.RawMessage, error) {
	for _, req := range requests {
		if !r.limiter.AllowAttempt(req.Method) {
			return nil, chainadapter.NewRetryableError(
				chainadapter.ErrCodeNetworkCongestion,
				"rate limit exceeded for method "+req.Method,
				nil,
				nil,
			)
		}
	}
	return r.client.CallBatch(ctx, requests)
}

// Close closes the underlying RPC client.
func (r *RateLimitedRPCClient) Close() error {
	return r.client.Close()
}

var _ RPCClient = (*RateLimitedRPCClient)(nil)
