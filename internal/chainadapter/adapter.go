// Package chainadapter defines the interface a concrete per-chain backend
// must implement to plug into the solver: reading chain state, streaming
// new blocks, and submitting the approve/relay transaction pair that
// fulfills a cross-chain transfer.
package chainadapter

import (
	"context"

	"github.com/aaravm/onlyswaps-solver/pkg/chainstate"
	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// TxHandle is the opaque result of submitting a transaction: enough to log
// and audit, without committing the solver core to any chain's receipt
// shape.
type TxHandle struct {
	TxHash string
}

// Adapter is the unified interface for cross-chain transfer operations.
// Every chain-specific implementation (this repo ships one, for EVM chains
// under internal/chainadapter/ethereum) MUST implement it.
//
// Contract guarantees:
//   - All methods are safe to retry; Approve/RelayTokens submission is not
//     itself idempotent on-chain, but returning an error never leaves the
//     caller uncertain about the outcome without a TxHandle to follow up on.
//   - All methods return a ChainError for classification where the failure
//     originated from chain/contract state, not transport.
//   - Context cancellation is respected.
//   - Implementations MUST be safe for concurrent use.
type Adapter interface {
	// FetchState reads a full snapshot of this chain: native and token
	// balances of the configured solver account, every unfulfilled request
	// id, every fulfilled request id, and the transfer parameters for each
	// unfulfilled id.
	FetchState(ctx context.Context) (chainstate.State, error)

	// SubscribeBlocks streams new block headers as they arrive. The
	// returned channel is closed when ctx is cancelled or the underlying
	// subscription cannot be re-established.
	SubscribeBlocks(ctx context.Context) (<-chan swaptypes.BlockEvent, error)

	// Approve submits an ERC-20-style approve(router, amount) transaction
	// for token, granting the router contract spend authority.
	Approve(ctx context.Context, token, router swaptypes.Address, amount *swaptypes.U256) (TxHandle, error)

	// RelayTokens submits the router call that delivers amount of the
	// destination token to recipient, fulfilling requestID which
	// originated on srcChainID.
	RelayTokens(ctx context.Context, token, recipient swaptypes.Address, amount *swaptypes.U256, requestID swaptypes.RequestId, srcChainID swaptypes.ChainId) (TxHandle, error)

	// GetTransferParameters reads the full SwapRequest for a single request
	// id from this chain's router.
	GetTransferParameters(ctx context.Context, id swaptypes.RequestId) (swaptypes.SwapRequest, error)

	// GetUnfulfilledRefunds lists every request id this chain's router
	// still considers outstanding.
	GetUnfulfilledRefunds(ctx context.Context) ([]swaptypes.RequestId, error)

	// GetFulfilledTransfers lists every request id this chain's router
	// already reports as delivered.
	GetFulfilledTransfers(ctx context.Context) ([]swaptypes.RequestId, error)

	// BalanceOf reads an ERC-20-style token balance for addr.
	BalanceOf(ctx context.Context, token, addr swaptypes.Address) (*swaptypes.U256, error)

	// NativeBalance reads the native-asset balance for addr.
	NativeBalance(ctx context.Context, addr swaptypes.Address) (*swaptypes.U256, error)
}
