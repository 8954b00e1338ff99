// Package solver owns every chain's state and live auctions and, on each
// block tick, reconciles them into a list of trades worth executing.
package solver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/pkg/chainstate"
	"github.com/aaravm/onlyswaps-solver/pkg/dutchauction"
	"github.com/aaravm/onlyswaps-solver/pkg/inflight"
	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// DemoMode, when true, lets a request already present in its source chain's
// initial snapshot be considered even if the destination already reports it
// fulfilled — useful for re-running a fixed demo script against a chain
// that never resets its already_fulfilled set.
type DemoMode bool

// Solver is the multi-chain reconciliation core. Not safe for concurrent
// use: a single cooperative loop should drive OnBlock, matching the
// single-driving-task concurrency model the rest of this module assumes.
type Solver struct {
	mu     sync.Mutex // guards states; adapters/initialTransfers are read-only after construction
	states map[swaptypes.ChainId]*chainstate.State
	chains map[swaptypes.ChainId]chainadapter.Adapter

	// initialTransfers snapshots, per source chain, every request id known
	// at construction time. Used only by the demo-mode feasibility override.
	initialTransfers map[swaptypes.ChainId]map[swaptypes.RequestId]struct{}

	cache          *inflight.Cache
	demoMode       bool
	expectedBlocks uint64
	clock          dutchauction.Clock
}

// Option configures a Solver at construction.
type Option func(*Solver)

// WithCache overrides the default InFlightCache.
func WithCache(c *inflight.Cache) Option {
	return func(s *Solver) { s.cache = c }
}

// WithDemoMode toggles the already-fulfilled override for requests present
// in the initial snapshot.
func WithDemoMode(on bool) Option {
	return func(s *Solver) { s.demoMode = on }
}

// WithExpectedBlocks overrides the default auction window (60).
func WithExpectedBlocks(n uint64) Option {
	return func(s *Solver) { s.expectedBlocks = n }
}

// WithClock overrides the default wall-clock used to start and advance
// auctions.
func WithClock(c dutchauction.Clock) Option {
	return func(s *Solver) { s.clock = c }
}

// New builds a Solver over the given per-chain adapters, pulling an initial
// FetchState from every one of them in parallel. initial_transfers is
// snapshotted from that first read.
func New(ctx context.Context, chains map[swaptypes.ChainId]chainadapter.Adapter, opts ...Option) (*Solver, error) {
	s := &Solver{
		states:           make(map[swaptypes.ChainId]*chainstate.State),
		chains:           chains,
		initialTransfers: make(map[swaptypes.ChainId]map[swaptypes.RequestId]struct{}),
		cache:            inflight.New(0, 0),
		expectedBlocks:   60,
		clock:            systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}

	type result struct {
		id    swaptypes.ChainId
		state chainstate.State
		err   error
	}
	results := make(chan result, len(chains))
	for id, adapter := range chains {
		id, adapter := id, adapter
		go func() {
			st, err := adapter.FetchState(ctx)
			results <- result{id: id, state: st, err: err}
		}()
	}

	for range chains {
		r := <-results
		if r.err != nil {
			return nil, fmt.Errorf("solver: initial fetch_state for chain %d: %w", r.id, r.err)
		}
		state := r.state
		s.states[r.id] = &state
		snapshot := make(map[swaptypes.RequestId]struct{}, state.Pending.Len())
		for _, req := range state.Pending.All() {
			snapshot[req.RequestId] = struct{}{}
		}
		s.initialTransfers[r.id] = snapshot
	}

	return s, nil
}

// OnBlock re-fetches chainID's state, reconciles it against every other
// known chain, advances every relevant Dutch auction, and returns the list
// of trades now feasible to execute.
func (s *Solver) OnBlock(ctx context.Context, chainID swaptypes.ChainId) ([]swaptypes.Trade, error) {
	adapter, ok := s.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("solver: unknown chain %d", chainID)
	}

	updated, err := adapter.FetchState(ctx)
	if err != nil {
		return nil, fmt.Errorf("solver: fetch_state for chain %d: %w", chainID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Preserve auctions: they belong to the destination chain they live on,
	// and a state refresh must not erase them.
	if prev, ok := s.states[chainID]; ok {
		updated.Auctions = prev.Auctions
	}
	s.states[chainID] = &updated

	s.startNewAuctions()

	var trades []swaptypes.Trade
	for _, state := range s.states {
		for _, req := range state.Pending.All() {
			if s.cache.Contains(req.RequestId) {
				continue
			}
			trade, ok := s.solve(req)
			if !ok {
				continue
			}
			trades = append(trades, trade)
		}
	}

	return trades, nil
}

// startNewAuctions creates a DutchAuction for every pending request whose
// destination chain doesn't already have one running for it.
func (s *Solver) startNewAuctions() {
	now := s.clock.Now()
	for _, srcState := range s.states {
		for _, req := range srcState.Pending.All() {
			dstState, ok := s.states[req.DstChainId]
			if !ok {
				continue
			}
			if _, exists := dstState.Auctions[req.RequestId]; exists {
				continue
			}
			auction, err := dutchauction.NewFromSlippage(req.AmountOut, req.SolverFee, s.expectedBlocks, now)
			if err != nil {
				// Invalid slippage; solve() will also reject this request,
				// so no auction is needed for it.
				continue
			}
			dstState.Auctions[req.RequestId] = auction
		}
	}
}

// solve runs the feasibility gate for a single request against its
// destination chain's current working state, mutating the destination's
// working token_balance and auction map on success.
func (s *Solver) solve(req swaptypes.SwapRequest) (swaptypes.Trade, bool) {
	dstState, ok := s.states[req.DstChainId]
	if !ok {
		return swaptypes.Trade{}, false
	}

	if req.Executed {
		return swaptypes.Trade{}, false
	}

	_, fulfilled := dstState.AlreadyFulfilled[req.RequestId]
	if fulfilled {
		demoOverride := s.demoMode && s.isInitialTransfer(req.SrcChainId, req.RequestId)
		if !demoOverride {
			return swaptypes.Trade{}, false
		}
	}

	if dstState.NativeBalance == nil || dstState.NativeBalance.IsZero() {
		return swaptypes.Trade{}, false
	}

	if dstState.TokenBalance == nil || dstState.TokenBalance.Cmp(req.AmountOut) < 0 {
		return swaptypes.Trade{}, false
	}

	tenThousand := swaptypes.U256{}
	tenThousand.SetUint64(10000)
	if req.SolverFee.Cmp(&tenThousand) > 0 {
		return swaptypes.Trade{}, false
	}

	if req.TokenOut != dstState.TokenAddr {
		return swaptypes.Trade{}, false
	}

	auction, hasAuction := dstState.Auctions[req.RequestId]
	var currentPrice *swaptypes.U256
	var shouldExecute bool
	if hasAuction {
		currentPrice = auction.Advance(s.clock.Now())
		shouldExecute = auction.ShouldExecute()
	} else {
		// Should not normally happen: startNewAuctions runs first every
		// tick. Fall back to an immediately-executable price at reserve.
		fallback, err := dutchauction.NewFromSlippage(req.AmountOut, req.SolverFee, s.expectedBlocks, s.clock.Now())
		if err != nil {
			return swaptypes.Trade{}, false
		}
		currentPrice = fallback.ReservePrice
		shouldExecute = true
	}

	if !shouldExecute {
		return swaptypes.Trade{}, false
	}

	newBalance := new(swaptypes.U256).Sub(dstState.TokenBalance, req.AmountOut)
	dstState.TokenBalance = newBalance
	delete(dstState.Auctions, req.RequestId)

	return swaptypes.Trade{
		RequestId:    req.RequestId,
		TokenOut:     req.TokenOut,
		SrcChainId:   req.SrcChainId,
		DstChainId:   req.DstChainId,
		Recipient:    req.Recipient,
		SwapAmount:   req.AmountOut,
		AuctionPrice: currentPrice,
	}, true
}

func (s *Solver) isInitialTransfer(srcChainID swaptypes.ChainId, id swaptypes.RequestId) bool {
	snapshot, ok := s.initialTransfers[srcChainID]
	if !ok {
		return false
	}
	_, present := snapshot[id]
	return present
}

// systemClock is the default Clock, backed by wall-clock seconds.
type systemClock struct{}

func (systemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}
