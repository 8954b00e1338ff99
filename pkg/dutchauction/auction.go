// Package dutchauction implements the per-request descending-price auction
// that decides when a pending cross-chain transfer becomes profitable
// enough to fulfill.
package dutchauction

import (
	"errors"

	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// ErrSlippageOverflow is returned by NewFromSlippage when slippageBps
// exceeds 10000 (100%); such a request must be rejected, never auctioned.
var ErrSlippageOverflow = errors.New("dutchauction: slippage_bps exceeds 10000")

// defaultExpectedBlocks is the default auction window used when the caller
// doesn't override it.
const defaultExpectedBlocks = 60

// Clock abstracts the wall clock (or a block counter, in the block-based
// variant) so auctions are deterministically testable. Grounded on the
// teacher's own preference for passing dependencies explicitly rather than
// calling time.Now() inline (src/chainadapter/provider/config.go's
// CreatedAt/UpdatedAt plumbing, internal/services/ratelimit's window math).
type Clock interface {
	Now() uint64
}

// State is the lifecycle stage of an auction: Created -> Live ->
// (Executable | Expired) -> Consumed.
type State int

const (
	StateLive State = iota
	StateExecutable
	StateExpired
	StateConsumed
)

// Auction is a per-destination-request Dutch auction. Zero value is not
// usable; construct with New or NewFromSlippage.
type Auction struct {
	Start        uint64
	End          uint64
	StartPrice   *swaptypes.U256
	ReservePrice *swaptypes.U256
	CurrentPrice *swaptypes.U256
	state        State
}

// NewFromSlippage builds the auction for a request:
//
//	min_allowed_cost = amount_out * (10000 - slippage_bps) / 10000
//	start_price      = 3 * min_allowed_cost
//	reserve_price    = min_allowed_cost
//	end              = start + expected_blocks
//
// expectedBlocks of 0 selects the default of 60. now is the auction's start
// timestamp (or block number, in the block-based variant — the two units
// get mixed inconsistently by callers and that inconsistency is preserved
// here rather than fixed).
func NewFromSlippage(amountOut, slippageBps *swaptypes.U256, expectedBlocks uint64, now uint64) (*Auction, error) {
	tenThousand := swaptypes.U256{}
	tenThousand.SetUint64(10000)
	if slippageBps.Cmp(&tenThousand) > 0 {
		return nil, ErrSlippageOverflow
	}

	if expectedBlocks == 0 {
		expectedBlocks = defaultExpectedBlocks
	}

	remaining := new(swaptypes.U256).Sub(&tenThousand, slippageBps)
	minAllowedCost := new(swaptypes.U256).Mul(amountOut, remaining)
	minAllowedCost.Div(minAllowedCost, &tenThousand)

	three := swaptypes.U256{}
	three.SetUint64(3)
	startPrice := new(swaptypes.U256).Mul(minAllowedCost, &three)

	a := &Auction{
		Start:        now,
		End:          now + expectedBlocks,
		StartPrice:   startPrice,
		ReservePrice: minAllowedCost,
		CurrentPrice: new(swaptypes.U256).Set(startPrice),
		state:        StateLive,
	}
	return a, nil
}

// Advance recomputes CurrentPrice for the given wall-clock/block reading and
// returns it, following a linear decay:
//
//	if now >= end:     current = reserve
//	elif now <= start: current = start_price
//	else:              current = start_price - drop*elapsed/duration
//
// All arithmetic is U256 with truncating division; the curve is guaranteed
// monotonically non-increasing in now.
func (a *Auction) Advance(now uint64) *swaptypes.U256 {
	switch {
	case now >= a.End:
		a.CurrentPrice = new(swaptypes.U256).Set(a.ReservePrice)
		a.state = StateExpired
	case now <= a.Start:
		a.CurrentPrice = new(swaptypes.U256).Set(a.StartPrice)
	default:
		elapsed := swaptypes.U256{}
		elapsed.SetUint64(now - a.Start)
		duration := swaptypes.U256{}
		duration.SetUint64(a.End - a.Start)

		drop := new(swaptypes.U256).Sub(a.StartPrice, a.ReservePrice)
		dec := new(swaptypes.U256).Mul(drop, &elapsed)
		dec.Div(dec, &duration)

		a.CurrentPrice = new(swaptypes.U256).Sub(a.StartPrice, dec)
	}

	if a.state != StateExpired && a.state != StateConsumed {
		a.state = a.computeLiveState()
	}
	return a.CurrentPrice
}

func (a *Auction) computeLiveState() State {
	if a.ShouldExecute() {
		return StateExecutable
	}
	return StateLive
}

// ShouldExecute reports whether the auction's current price has crossed the
// execution threshold (current_price <= 2*reserve_price), or the auction
// has already expired (forced-executable at reserve).
func (a *Auction) ShouldExecute() bool {
	if a.state == StateExpired {
		return true
	}
	two := swaptypes.U256{}
	two.SetUint64(2)
	threshold := new(swaptypes.U256).Mul(a.ReservePrice, &two)
	return a.CurrentPrice.Cmp(threshold) <= 0
}

// Consume marks the auction as spent; a consumed auction is removed from
// its destination ChainState by the caller.
func (a *Auction) Consume() {
	a.state = StateConsumed
}

// LifecycleState returns the auction's current lifecycle stage.
func (a *Auction) LifecycleState() State {
	return a.state
}
