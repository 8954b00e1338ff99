// Package ethereum implements chainadapter.Adapter for EVM chains.
package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	rootchainadapter "github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/internal/chainadapter/rpc"
	"github.com/aaravm/onlyswaps-solver/internal/metrics"
	"github.com/aaravm/onlyswaps-solver/pkg/chainstate"
	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// Conservative gas-limit fallbacks used when eth_estimateGas fails.
const (
	fallbackApproveGas     = 60_000
	fallbackRelayTokensGas = 200_000
	gasLimitHeadroomPct    = 120 // 20% headroom over the estimate
)

// EthereumAdapter implements chainadapter.Adapter for a single EVM chain.
type EthereumAdapter struct {
	chainID      swaptypes.ChainId
	rpcClient    rpc.RPCClient
	rpcHelper    *RPCHelper
	builder      *TransactionBuilder
	feeEstimator *FeeEstimator
	signer       *EthereumSigner
	tokenAddr    common.Address
	routerAddr   common.Address
	metrics      metrics.SolverMetrics
}

// NewEthereumAdapter creates a ChainAdapter for one EVM network. rpcClient
// is expected to already be composed with metrics/rate-limit wrapping by
// the caller (see internal/chainadapter/rpc).
func NewEthereumAdapter(chainID swaptypes.ChainId, rpcClient rpc.RPCClient, signer *EthereumSigner, tokenAddr, routerAddr common.Address, metricsRecorder metrics.SolverMetrics) *EthereumAdapter {
	if metricsRecorder == nil {
		metricsRecorder = &metrics.NoOpMetrics{}
	}

	rpcHelper := NewRPCHelper(rpcClient)

	return &EthereumAdapter{
		chainID:      chainID,
		rpcClient:    rpcClient,
		rpcHelper:    rpcHelper,
		builder:      NewTransactionBuilder(int64(chainID)),
		feeEstimator: NewFeeEstimator(rpcHelper),
		signer:       signer,
		tokenAddr:    tokenAddr,
		routerAddr:   routerAddr,
		metrics:      metricsRecorder,
	}
}

// FetchState reads a full snapshot of this chain: the solver's own native
// and token balances, every unfulfilled request id with its transfer
// parameters, and every already-fulfilled request id.
func (e *EthereumAdapter) FetchState(ctx context.Context) (chainstate.State, error) {
	start := time.Now()
	state := chainstate.New(e.chainID)
	state.TokenAddr = swaptypes.Address(e.tokenAddr)

	solverAddr := common.HexToAddress(e.signer.GetAddress())

	nativeBalance, err := e.NativeBalance(ctx, swaptypes.Address(solverAddr))
	if err != nil {
		return chainstate.State{}, err
	}
	state.NativeBalance = nativeBalance

	tokenBalance, err := e.BalanceOf(ctx, swaptypes.Address(e.tokenAddr), swaptypes.Address(solverAddr))
	if err != nil {
		return chainstate.State{}, err
	}
	state.TokenBalance = tokenBalance

	unfulfilled, err := e.GetUnfulfilledRefunds(ctx)
	if err != nil {
		return chainstate.State{}, err
	}

	for _, id := range unfulfilled {
		req, err := e.GetTransferParameters(ctx, id)
		if err != nil {
			return chainstate.State{}, err
		}
		state.Pending.Set(req)
	}

	fulfilled, err := e.GetFulfilledTransfers(ctx)
	if err != nil {
		return chainstate.State{}, err
	}
	for _, id := range fulfilled {
		state.AlreadyFulfilled[id] = struct{}{}
	}

	e.metrics.RecordSolve(fmt.Sprintf("%d", e.chainID), time.Since(start), 0)
	return state, nil
}

// blockSubscriber is implemented by transports that support eth_subscribe
// (the WebSocket client); plain HTTP transports do not.
type blockSubscriber interface {
	Subscribe(ctx context.Context, method string, params interface{}) (<-chan json.RawMessage, error)
}

// SubscribeBlocks streams new block headers over eth_subscribe("newHeads").
// The returned channel closes only when ctx is cancelled; a subscription
// lost to a WebSocket reconnect is not detected or re-established.
func (e *EthereumAdapter) SubscribeBlocks(ctx context.Context) (<-chan swaptypes.BlockEvent, error) {
	sub, ok := e.rpcClient.(blockSubscriber)
	if !ok {
		return nil, rootchainadapter.NewFatalError(
			rootchainadapter.ErrCodeRPCUnavailable,
			"underlying RPC client does not support subscriptions",
			nil,
		)
	}

	notifications, err := sub.Subscribe(ctx, "eth_subscribe", []interface{}{"newHeads"})
	if err != nil {
		return nil, rootchainadapter.NewRetryableError(
			rootchainadapter.ErrCodeRPCUnavailable,
			"eth_subscribe(newHeads) failed",
			nil,
			err,
		)
	}

	events := make(chan swaptypes.BlockEvent, 16)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-notifications:
				if !ok {
					return
				}
				var header struct {
					Number string `json:"number"`
				}
				if err := json.Unmarshal(msg, &header); err != nil {
					continue
				}
				blockNumber, err := hexutil.DecodeUint64(header.Number)
				if err != nil {
					continue
				}
				select {
				case events <- swaptypes.BlockEvent{ChainId: e.chainID, BlockNumber: blockNumber}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// Approve submits an ERC-20 approve(router, amount) transaction for token.
func (e *EthereumAdapter) Approve(ctx context.Context, token, router swaptypes.Address, amount *swaptypes.U256) (rootchainadapter.TxHandle, error) {
	start := time.Now()
	data, err := encodeApprove(common.Address(router), amount.ToBig())
	if err != nil {
		return rootchainadapter.TxHandle{}, rootchainadapter.NewFatalError("ERR_ABI_ENCODE", "failed to encode approve calldata", err)
	}

	handle, err := e.submitCall(ctx, common.Address(token), data, fallbackApproveGas)
	e.metrics.RecordApprove(fmt.Sprintf("%d", e.chainID), time.Since(start), err == nil)
	return handle, err
}

// RelayTokens submits the router call that delivers amount of token to
// recipient, fulfilling requestID which originated on srcChainID.
func (e *EthereumAdapter) RelayTokens(ctx context.Context, token, recipient swaptypes.Address, amount *swaptypes.U256, requestID swaptypes.RequestId, srcChainID swaptypes.ChainId) (rootchainadapter.TxHandle, error) {
	start := time.Now()
	data, err := encodeRelayTokens(common.Address(token), common.Address(recipient), amount.ToBig(), [32]byte(requestID), new(big.Int).SetUint64(uint64(srcChainID)))
	if err != nil {
		return rootchainadapter.TxHandle{}, rootchainadapter.NewFatalError("ERR_ABI_ENCODE", "failed to encode relayTokens calldata", err)
	}

	handle, err := e.submitCall(ctx, e.routerAddr, data, fallbackRelayTokensGas)
	e.metrics.RecordRelay(fmt.Sprintf("%d", e.chainID), time.Since(start), err == nil)
	return handle, err
}

// submitCall builds, signs, estimates gas for, and broadcasts a contract
// call transaction against to, returning its hash.
func (e *EthereumAdapter) submitCall(ctx context.Context, to common.Address, data []byte, fallbackGas uint64) (rootchainadapter.TxHandle, error) {
	from := common.HexToAddress(e.signer.GetAddress())

	nonce, err := e.rpcHelper.GetTransactionCount(ctx, from.Hex())
	if err != nil {
		return rootchainadapter.TxHandle{}, err
	}

	fee, err := e.feeEstimator.Estimate(ctx)
	if err != nil {
		return rootchainadapter.TxHandle{}, err
	}

	gasLimit, err := e.rpcHelper.EstimateGas(ctx, from.Hex(), to.Hex(), nil, data)
	if err != nil {
		gasLimit = fallbackGas
	} else {
		gasLimit = gasLimit * gasLimitHeadroomPct / 100
	}

	tx := e.builder.Build(nonce, gasLimit, fee.MaxFeePerGas, fee.MaxPriorityFeePerGas, to, data)

	signedTx, err := e.signer.SignTransaction(tx)
	if err != nil {
		return rootchainadapter.TxHandle{}, rootchainadapter.NewFatalError("ERR_SIGN", "failed to sign transaction", err)
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return rootchainadapter.TxHandle{}, rootchainadapter.NewFatalError("ERR_ENCODE", "failed to RLP-encode signed transaction", err)
	}

	txHash, err := e.rpcHelper.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return rootchainadapter.TxHandle{}, err
	}

	return rootchainadapter.TxHandle{TxHash: txHash}, nil
}

// GetTransferParameters reads the full SwapRequest for id from the router.
func (e *EthereumAdapter) GetTransferParameters(ctx context.Context, id swaptypes.RequestId) (swaptypes.SwapRequest, error) {
	data, err := encodeGetTransferParameters([32]byte(id))
	if err != nil {
		return swaptypes.SwapRequest{}, rootchainadapter.NewFatalError("ERR_ABI_ENCODE", "failed to encode getTransferParameters calldata", err)
	}

	result, err := e.rpcHelper.EthCall(ctx, e.routerAddr, data)
	if err != nil {
		return swaptypes.SwapRequest{}, err
	}

	params, err := decodeTransferParameters(result)
	if err != nil {
		return swaptypes.SwapRequest{}, rootchainadapter.NewFatalError("ERR_ABI_DECODE", "failed to decode getTransferParameters result", err)
	}

	return params.toSwapRequest(id), nil
}

// GetUnfulfilledRefunds lists every request id the router still considers
// outstanding.
func (e *EthereumAdapter) GetUnfulfilledRefunds(ctx context.Context) ([]swaptypes.RequestId, error) {
	data, err := encodeGetUnfulfilledSolverRefunds()
	if err != nil {
		return nil, rootchainadapter.NewFatalError("ERR_ABI_ENCODE", "failed to encode getUnfulfilledSolverRefunds calldata", err)
	}

	result, err := e.rpcHelper.EthCall(ctx, e.routerAddr, data)
	if err != nil {
		return nil, err
	}

	ids, err := decodeRequestIDs("getUnfulfilledSolverRefunds", result)
	if err != nil {
		return nil, rootchainadapter.NewFatalError("ERR_ABI_DECODE", "failed to decode getUnfulfilledSolverRefunds result", err)
	}
	return ids, nil
}

// GetFulfilledTransfers lists every request id the router already reports
// as delivered.
func (e *EthereumAdapter) GetFulfilledTransfers(ctx context.Context) ([]swaptypes.RequestId, error) {
	data, err := encodeGetFulfilledTransfers()
	if err != nil {
		return nil, rootchainadapter.NewFatalError("ERR_ABI_ENCODE", "failed to encode getFulfilledTransfers calldata", err)
	}

	result, err := e.rpcHelper.EthCall(ctx, e.routerAddr, data)
	if err != nil {
		return nil, err
	}

	ids, err := decodeRequestIDs("getFulfilledTransfers", result)
	if err != nil {
		return nil, rootchainadapter.NewFatalError("ERR_ABI_DECODE", "failed to decode getFulfilledTransfers result", err)
	}
	return ids, nil
}

// BalanceOf reads an ERC-20 token balance for addr.
func (e *EthereumAdapter) BalanceOf(ctx context.Context, token, addr swaptypes.Address) (*swaptypes.U256, error) {
	data, err := encodeBalanceOf(common.Address(addr))
	if err != nil {
		return nil, rootchainadapter.NewFatalError("ERR_ABI_ENCODE", "failed to encode balanceOf calldata", err)
	}

	result, err := e.rpcHelper.EthCall(ctx, common.Address(token), data)
	if err != nil {
		return nil, err
	}

	balance, err := decodeBalanceOf(result)
	if err != nil {
		return nil, rootchainadapter.NewFatalError("ERR_ABI_DECODE", "failed to decode balanceOf result", err)
	}

	return bigToU256(balance), nil
}

// NativeBalance reads the native-asset balance for addr.
func (e *EthereumAdapter) NativeBalance(ctx context.Context, addr swaptypes.Address) (*swaptypes.U256, error) {
	balance, err := e.rpcHelper.GetBalance(ctx, common.Address(addr).Hex())
	if err != nil {
		return nil, err
	}
	return bigToU256(balance), nil
}

var _ rootchainadapter.Adapter = (*EthereumAdapter)(nil)
