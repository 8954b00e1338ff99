// Package ethereum - RPC helper functions for the EVM adapter
package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/internal/chainadapter/rpc"
)

// RPCHelper provides JSON-RPC helper calls shared by Adapter operations.
type RPCHelper struct {
	client rpc.RPCClient
}

// NewRPCHelper creates a new Ethereum RPC helper.
func NewRPCHelper(client rpc.RPCClient) *RPCHelper {
	return &RPCHelper{client: client}
}

// GetTransactionCount retrieves the pending nonce for an address.
func (r *RPCHelper) GetTransactionCount(ctx context.Context, address string) (uint64, error) {
	result, err := r.client.Call(ctx, "eth_getTransactionCount", []interface{}{
		address,
		"pending",
	})
	if err != nil {
		return 0, chainadapter.NewRetryableError(
			chainadapter.ErrCodeRPCUnavailable,
			fmt.Sprintf("eth_getTransactionCount RPC failed: %s", err.Error()),
			nil,
			err,
		)
	}

	var nonceHex string
	if err := json.Unmarshal(result, &nonceHex); err != nil {
		return 0, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			fmt.Sprintf("failed to parse nonce: %s", err.Error()),
			err,
		)
	}

	nonce, err := hexutil.DecodeUint64(nonceHex)
	if err != nil {
		return 0, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			fmt.Sprintf("failed to decode nonce hex: %s", err.Error()),
			err,
		)
	}

	return nonce, nil
}

// EstimateGas estimates gas for a call or transaction.
func (r *RPCHelper) EstimateGas(ctx context.Context, from, to string, value *big.Int, data []byte) (uint64, error) {
	txObj := map[string]interface{}{
		"from": from,
		"to":   to,
	}

	if value != nil && value.Cmp(big.NewInt(0)) > 0 {
		txObj["value"] = hexutil.EncodeBig(value)
	}

	if len(data) > 0 {
		txObj["data"] = hexutil.Encode(data)
	}

	result, err := r.client.Call(ctx, "eth_estimateGas", []interface{}{txObj})
	if err != nil {
		return 0, chainadapter.NewRetryableError(
			chainadapter.ErrCodeRPCUnavailable,
			fmt.Sprintf("eth_estimateGas RPC failed: %s", err.Error()),
			nil,
			err,
		)
	}

	var gasHex string
	if err := json.Unmarshal(result, &gasHex); err != nil {
		return 0, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			fmt.Sprintf("failed to parse gas estimate: %s", err.Error()),
			err,
		)
	}

	gas, err := hexutil.DecodeUint64(gasHex)
	if err != nil {
		return 0, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			fmt.Sprintf("failed to decode gas hex: %s", err.Error()),
			err,
		)
	}

	return gas, nil
}

// GetBaseFee retrieves the current base fee from the latest block (EIP-1559).
func (r *RPCHelper) GetBaseFee(ctx context.Context) (*big.Int, error) {
	result, err := r.client.Call(ctx, "eth_getBlockByNumber", []interface{}{
		"latest",
		false,
	})
	if err != nil {
		return nil, chainadapter.NewRetryableError(
			chainadapter.ErrCodeRPCUnavailable,
			"eth_getBlockByNumber RPC failed",
			nil,
			err,
		)
	}

	var block struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}

	if err := json.Unmarshal(result, &block); err != nil {
		return nil, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to parse block",
			err,
		)
	}

	if block.BaseFeePerGas == "" {
		return big.NewInt(0), nil
	}

	baseFee, err := hexutil.DecodeBig(block.BaseFeePerGas)
	if err != nil {
		return nil, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to decode base fee",
			err,
		)
	}

	return baseFee, nil
}

// GetFeeHistory retrieves each of the last blockCount blocks' median
// (50th-percentile) priority fee and returns their mean, falling back to
// 2 Gwei when the endpoint reports nothing.
func (r *RPCHelper) GetFeeHistory(ctx context.Context, blockCount int) (*big.Int, error) {
	result, err := r.client.Call(ctx, "eth_feeHistory", []interface{}{
		hexutil.EncodeUint64(uint64(blockCount)),
		"latest",
		[]int{50},
	})
	if err != nil {
		return nil, chainadapter.NewRetryableError(
			chainadapter.ErrCodeRPCUnavailable,
			"eth_feeHistory RPC failed",
			nil,
			err,
		)
	}

	var feeHistory struct {
		Reward [][]string `json:"reward"`
	}

	if err := json.Unmarshal(result, &feeHistory); err != nil {
		return nil, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to parse fee history",
			err,
		)
	}

	if len(feeHistory.Reward) == 0 {
		return big.NewInt(2e9), nil
	}

	sum := big.NewInt(0)
	count := 0

	for _, rewards := range feeHistory.Reward {
		if len(rewards) > 0 {
			priorityFee, err := hexutil.DecodeBig(rewards[0])
			if err == nil {
				sum.Add(sum, priorityFee)
				count++
			}
		}
	}

	if count == 0 {
		return big.NewInt(2e9), nil
	}

	return new(big.Int).Div(sum, big.NewInt(int64(count))), nil
}

// GetBlockNumber retrieves the current block number.
func (r *RPCHelper) GetBlockNumber(ctx context.Context) (uint64, error) {
	result, err := r.client.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, chainadapter.NewRetryableError(
			chainadapter.ErrCodeRPCUnavailable,
			"eth_blockNumber RPC failed",
			nil,
			err,
		)
	}

	var blockHex string
	if err := json.Unmarshal(result, &blockHex); err != nil {
		return 0, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to parse block number",
			err,
		)
	}

	blockNumber, err := hexutil.DecodeUint64(blockHex)
	if err != nil {
		return 0, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to decode block number hex",
			err,
		)
	}

	return blockNumber, nil
}

// GetBalance retrieves the native-asset balance of address at the latest
// block.
func (r *RPCHelper) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	result, err := r.client.Call(ctx, "eth_getBalance", []interface{}{address, "latest"})
	if err != nil {
		return nil, chainadapter.NewRetryableError(
			chainadapter.ErrCodeRPCUnavailable,
			"eth_getBalance RPC failed",
			nil,
			err,
		)
	}

	var balanceHex string
	if err := json.Unmarshal(result, &balanceHex); err != nil {
		return nil, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to parse balance",
			err,
		)
	}

	balance, err := hexutil.DecodeBig(balanceHex)
	if err != nil {
		return nil, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to decode balance hex",
			err,
		)
	}

	return balance, nil
}

// EthCall performs a read-only contract call (eth_call) against the latest
// block and returns the raw return data.
func (r *RPCHelper) EthCall(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	txObj := map[string]interface{}{
		"to":   to.Hex(),
		"data": hexutil.Encode(data),
	}

	result, err := r.client.Call(ctx, "eth_call", []interface{}{txObj, "latest"})
	if err != nil {
		return nil, chainadapter.NewRetryableError(
			chainadapter.ErrCodeRPCUnavailable,
			fmt.Sprintf("eth_call RPC failed: %s", err.Error()),
			nil,
			err,
		)
	}

	var dataHex string
	if err := json.Unmarshal(result, &dataHex); err != nil {
		return nil, chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to parse eth_call result",
			err,
		)
	}

	return hexutil.Decode(dataHex)
}

// SendRawTransaction submits a signed, RLP-encoded transaction and returns
// its hash.
func (r *RPCHelper) SendRawTransaction(ctx context.Context, rawTxHex string) (string, error) {
	result, err := r.client.Call(ctx, "eth_sendRawTransaction", []interface{}{rawTxHex})
	if err != nil {
		return "", chainadapter.NewRetryableError(
			chainadapter.ErrCodeRPCUnavailable,
			fmt.Sprintf("eth_sendRawTransaction RPC failed: %s", err.Error()),
			nil,
			err,
		)
	}

	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil {
		return "", chainadapter.NewFatalError(
			"ERR_RPC_PARSE",
			"failed to parse transaction hash",
			err,
		)
	}

	return txHash, nil
}
