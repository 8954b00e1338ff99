// Package chainstate holds the per-chain snapshot the solver reconciles
// against: balances, pending requests read from the chain's router, and
// the live auctions the solver is running against those requests.
package chainstate

import (
	"github.com/aaravm/onlyswaps-solver/pkg/dutchauction"
	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// State is a snapshot of one chain as observed through its adapter at a
// point in time. OnBlock replaces a refreshed chain's State with a new one,
// carrying forward the live Auctions map; within a pass, the solver
// updates the stored destination State in place (its working TokenBalance
// and its Auctions map) as trades are emitted.
type State struct {
	ChainId       swaptypes.ChainId
	TokenAddr     swaptypes.Address
	NativeBalance *swaptypes.U256
	TokenBalance  *swaptypes.U256

	// Pending holds every request read from this chain that has not yet
	// been executed, in the order the adapter reported them.
	Pending *PendingSet

	// AlreadyFulfilled holds request ids this chain's router already
	// reports as delivered, whether fulfilled by this solver or another.
	AlreadyFulfilled map[swaptypes.RequestId]struct{}

	// Auctions holds the live Dutch auction for each pending request this
	// chain is the destination for. Carried forward unchanged across state
	// refreshes; an entry is removed only when the solver emits a trade for
	// it, not when its request leaves Pending or is reported fulfilled.
	Auctions map[swaptypes.RequestId]*dutchauction.Auction
}

// New builds an empty State for chainId, ready to be populated by an
// adapter's FetchState.
func New(chainId swaptypes.ChainId) State {
	return State{
		ChainId:          chainId,
		Pending:          newPendingSet(),
		AlreadyFulfilled: make(map[swaptypes.RequestId]struct{}),
		Auctions:         make(map[swaptypes.RequestId]*dutchauction.Auction),
	}
}

// IsFulfilled reports whether id has already been delivered on this chain.
func (s State) IsFulfilled(id swaptypes.RequestId) bool {
	_, ok := s.AlreadyFulfilled[id]
	return ok
}

// PendingSet holds a chain's pending requests in the order its adapter
// reported them. When a destination's balance only covers some of several
// competing requests, iteration order decides which ones win, so a plain
// map (whose range order Go leaves unspecified) isn't enough here.
type PendingSet struct {
	order []swaptypes.RequestId
	byID  map[swaptypes.RequestId]swaptypes.SwapRequest
}

func newPendingSet() *PendingSet {
	return &PendingSet{byID: make(map[swaptypes.RequestId]swaptypes.SwapRequest)}
}

// Set inserts req, or overwrites it in place if its request id is already
// present; overwriting does not change its position in iteration order.
func (p *PendingSet) Set(req swaptypes.SwapRequest) {
	if _, exists := p.byID[req.RequestId]; !exists {
		p.order = append(p.order, req.RequestId)
	}
	p.byID[req.RequestId] = req
}

// Get looks up a request by id.
func (p *PendingSet) Get(id swaptypes.RequestId) (swaptypes.SwapRequest, bool) {
	req, ok := p.byID[id]
	return req, ok
}

// Delete removes a request by id.
func (p *PendingSet) Delete(id swaptypes.RequestId) {
	if _, ok := p.byID[id]; !ok {
		return
	}
	delete(p.byID, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of pending requests.
func (p *PendingSet) Len() int {
	return len(p.order)
}

// All returns every pending request in adapter-provided order.
func (p *PendingSet) All() []swaptypes.SwapRequest {
	out := make([]swaptypes.SwapRequest, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.byID[id])
	}
	return out
}
