// Package executor drives the approve+relay transaction pair for each
// trade the solver emits, admitting every request into the in-flight
// cache before submitting anything so a slow-to-settle request is never
// resubmitted on the next block tick.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/aaravm/onlyswaps-solver/internal/audit"
	"github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/internal/observability"
	"github.com/aaravm/onlyswaps-solver/pkg/inflight"
	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// NetworkBinding is the router and token contract pair a destination chain
// needs to execute a relay against.
type NetworkBinding struct {
	Router swaptypes.Address
	Token  swaptypes.Address
}

// Executor submits the approve+relay pair for each trade, in order,
// logging and continuing past any single trade's failure: a competing
// solver winning the race is an expected, non-fatal outcome.
type Executor struct {
	chains   map[swaptypes.ChainId]chainadapter.Adapter
	bindings map[swaptypes.ChainId]NetworkBinding
	cache    *inflight.Cache
	audit    *audit.AuditLogger
	log      *observability.Logger
}

// New builds an Executor. audit may be nil, in which case trade attempts
// are not persisted to an NDJSON log, only to the logger.
func New(chains map[swaptypes.ChainId]chainadapter.Adapter, bindings map[swaptypes.ChainId]NetworkBinding, cache *inflight.Cache, auditLogger *audit.AuditLogger, log *observability.Logger) *Executor {
	return &Executor{
		chains:   chains,
		bindings: bindings,
		cache:    cache,
		audit:    auditLogger,
		log:      log,
	}
}

// Run submits every trade in order. Errors from individual trades are
// logged, not returned; Run only returns an error if a trade's destination
// chain has no adapter or contract binding configured, which is a
// configuration problem rather than a transient per-trade failure.
func (e *Executor) Run(ctx context.Context, trades []swaptypes.Trade) {
	for _, trade := range trades {
		e.runOne(ctx, trade)
	}
}

func (e *Executor) runOne(ctx context.Context, trade swaptypes.Trade) {
	e.cache.Insert(trade.RequestId)

	adapter, ok := e.chains[trade.DstChainId]
	if !ok {
		e.logTrade(trade, "APPROVE", "FAILURE", "", fmt.Sprintf("no adapter configured for chain %d", trade.DstChainId))
		return
	}
	binding, ok := e.bindings[trade.DstChainId]
	if !ok {
		e.logTrade(trade, "APPROVE", "FAILURE", "", fmt.Sprintf("no contract binding configured for chain %d", trade.DstChainId))
		return
	}

	approveHandle, err := adapter.Approve(ctx, binding.Token, binding.Router, trade.SwapAmount)
	if err != nil {
		// Allowance may already be sufficient from a prior attempt; this is
		// not fatal to the relay that follows.
		e.logTrade(trade, "APPROVE", "FAILURE", "", err.Error())
	} else {
		e.logTrade(trade, "APPROVE", "SUCCESS", approveHandle.TxHash, "")
	}

	relayHandle, err := adapter.RelayTokens(ctx, trade.TokenOut, trade.Recipient, trade.SwapAmount, trade.RequestId, trade.SrcChainId)
	if err != nil {
		// Expected when a competing solver already fulfilled the request.
		e.logTrade(trade, "RELAY", "FAILURE", "", err.Error())
		return
	}
	e.logTrade(trade, "RELAY", "SUCCESS", relayHandle.TxHash, "")
}

func (e *Executor) logTrade(trade swaptypes.Trade, step, status, txHash, reason string) {
	if e.log != nil {
		if status == "SUCCESS" {
			e.log.Infof("trade %s %s %s tx=%s", trade.RequestId, step, status, txHash)
		} else {
			e.log.Warnf("trade %s %s %s: %s", trade.RequestId, step, status, reason)
		}
	}
	if e.audit == nil {
		return
	}
	entry := audit.TradeLogEntry{
		ID:            fmt.Sprintf("%s-%s-%d", trade.RequestId, step, time.Now().UnixNano()),
		RequestId:     trade.RequestId.String(),
		SrcChainId:    uint64(trade.SrcChainId),
		DstChainId:    uint64(trade.DstChainId),
		Timestamp:     time.Now(),
		Step:          step,
		Status:        status,
		TxHash:        txHash,
		FailureReason: reason,
	}
	if err := e.audit.LogTrade(entry); err != nil && e.log != nil {
		e.log.Warnf("audit log write failed: %v", err)
	}
}
