// Package swaptypes defines the data model shared by every solver package:
// chain identifiers, addresses, request ids, on-chain amounts, the
// cross-chain swap request read from a source chain, and the trade a
// solver decides to execute on a destination chain.
package swaptypes

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ChainId names a blockchain. Values are the EVM chain ids the adapters
// report; RequestId-embedded chain ids arrive as U256 and must be
// normalised with NormaliseChainId before use as a map key.
type ChainId uint64

// Address is a 20-byte account or contract identifier, interoperable with
// go-ethereum's common.Address.
type Address common.Address

// String returns the EIP-55 checksummed hex representation.
func (a Address) String() string {
	return common.Address(a).Hex()
}

// RequestId is the 32-byte opaque identifier of a cross-chain swap request.
type RequestId [32]byte

// String returns the hex representation of the request id.
func (r RequestId) String() string {
	return fmt.Sprintf("0x%x", [32]byte(r))
}

// U256 is an unbounded-looking 256-bit unsigned integer used for all
// on-chain amounts. uint256.Int is the pack-wide choice for this (seen
// throughout go-ethereum/erigon/coreth/op-geth state-transition and miner
// code in the retrieved examples).
type U256 = uint256.Int

// NormaliseChainId takes the low 64-bit limb of a U256-encoded chain id.
// Valid because every chain id this solver is configured for fits in 64
// bits.
func NormaliseChainId(v *U256) ChainId {
	return ChainId(v.Uint64())
}

// SwapRequest is the immutable record of a cross-chain swap request as read
// from a source chain's router contract.
type SwapRequest struct {
	RequestId   RequestId
	SrcChainId  ChainId
	DstChainId  ChainId
	Sender      Address
	Recipient   Address
	TokenIn     Address
	TokenOut    Address
	AmountOut   *U256
	// SolverFee historically meant a flat fee; this solver instead reads it
	// as a slippage tolerance in basis points, 0..10000. Two readings of the
	// same field, left ambiguous rather than resolved.
	SolverFee   *U256
	Nonce       *U256
	Executed    bool
	RequestedAt *U256
}

// Trade is an executable decision: deliver SwapAmount of TokenOut to
// Recipient on DstChainId, fulfilling RequestId which originated on
// SrcChainId.
type Trade struct {
	RequestId    RequestId
	TokenOut     Address
	SrcChainId   ChainId
	DstChainId   ChainId
	Recipient    Address
	SwapAmount   *U256
	AuctionPrice *U256
}

// BlockEvent is emitted by a chain's block subscription.
type BlockEvent struct {
	ChainId     ChainId
	BlockNumber uint64
}
