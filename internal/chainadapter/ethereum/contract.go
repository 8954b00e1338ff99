// Package ethereum - ERC-20 and router contract ABI bindings
package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// erc20ABIJSON covers the two ERC-20 calls the adapter makes: granting the
// router spend authority, and reading a balance.
const erc20ABIJSON = `[
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
]`

// routerABIJSON covers the router calls the adapter makes to read pending
// transfers and fulfil them. TransferParams mirrors the on-chain struct:
// token/srcChainId/dstChainId/recipient/amount plus the bookkeeping fields
// (sender, tokenIn, solverFee, nonce, executed, requestedAt) this solver's
// richer SwapRequest model carries.
const routerABIJSON = `[
	{"type":"function","name":"relayTokens","inputs":[{"name":"token","type":"address"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"requestId","type":"bytes32"},{"name":"srcChainId","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"getTransferParameters","inputs":[{"name":"requestId","type":"bytes32"}],"outputs":[{"name":"","type":"tuple","components":[
		{"name":"sender","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"tokenIn","type":"address"},
		{"name":"tokenOut","type":"address"},
		{"name":"amountOut","type":"uint256"},
		{"name":"srcChainId","type":"uint256"},
		{"name":"dstChainId","type":"uint256"},
		{"name":"solverFee","type":"uint256"},
		{"name":"nonce","type":"uint256"},
		{"name":"executed","type":"bool"},
		{"name":"requestedAt","type":"uint256"}
	]}],"stateMutability":"view"},
	{"type":"function","name":"getUnfulfilledSolverRefunds","inputs":[],"outputs":[{"name":"","type":"bytes32[]"}],"stateMutability":"view"},
	{"type":"function","name":"getFulfilledTransfers","inputs":[],"outputs":[{"name":"","type":"bytes32[]"}],"stateMutability":"view"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)
var routerABI = mustParseABI(routerABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("ethereum: invalid embedded ABI: %v", err))
	}
	return parsed
}

// transferParams is the decoded shape of Router.getTransferParameters,
// field-for-field matching the ABI tuple above.
type transferParams struct {
	Sender      common.Address
	Recipient   common.Address
	TokenIn     common.Address
	TokenOut    common.Address
	AmountOut   *big.Int
	SrcChainId  *big.Int
	DstChainId  *big.Int
	SolverFee   *big.Int
	Nonce       *big.Int
	Executed    bool
	RequestedAt *big.Int
}

func encodeApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}

func encodeBalanceOf(account common.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", account)
}

func decodeBalanceOf(data []byte) (*big.Int, error) {
	out, err := erc20ABI.Unpack("balanceOf", data)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func encodeRelayTokens(token, recipient common.Address, amount *big.Int, requestID [32]byte, srcChainID *big.Int) ([]byte, error) {
	return routerABI.Pack("relayTokens", token, recipient, amount, requestID, srcChainID)
}

func encodeGetTransferParameters(requestID [32]byte) ([]byte, error) {
	return routerABI.Pack("getTransferParameters", requestID)
}

func decodeTransferParameters(data []byte) (transferParams, error) {
	var params transferParams
	out, err := routerABI.Unpack("getTransferParameters", data)
	if err != nil {
		return params, err
	}
	if len(out) != 1 {
		return params, fmt.Errorf("getTransferParameters: unexpected output count %d", len(out))
	}
	if err := routerABI.UnpackIntoInterface(&params, "getTransferParameters", data); err != nil {
		return params, err
	}
	return params, nil
}

func encodeGetUnfulfilledSolverRefunds() ([]byte, error) {
	return routerABI.Pack("getUnfulfilledSolverRefunds")
}

func encodeGetFulfilledTransfers() ([]byte, error) {
	return routerABI.Pack("getFulfilledTransfers")
}

func decodeRequestIDs(method string, data []byte) ([]swaptypes.RequestId, error) {
	out, err := routerABI.Unpack(method, data)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: unexpected output count %d", method, len(out))
	}
	raw, ok := out[0].([][32]byte)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	ids := make([]swaptypes.RequestId, len(raw))
	for i, r := range raw {
		ids[i] = swaptypes.RequestId(r)
	}
	return ids, nil
}

// bigToU256 converts a decoded ABI *big.Int into the solver's U256 type.
// Token amounts and chain ids always fit in 256 bits, so overflow never
// occurs for values this adapter decodes.
func bigToU256(b *big.Int) *swaptypes.U256 {
	u := new(swaptypes.U256)
	if b != nil {
		u.SetFromBig(b)
	}
	return u
}

// toSwapRequest converts a decoded on-chain transferParams into the
// solver's SwapRequest model.
func (p transferParams) toSwapRequest(requestID swaptypes.RequestId) swaptypes.SwapRequest {
	return swaptypes.SwapRequest{
		RequestId:   requestID,
		SrcChainId:  swaptypes.ChainId(p.SrcChainId.Uint64()),
		DstChainId:  swaptypes.ChainId(p.DstChainId.Uint64()),
		Sender:      swaptypes.Address(p.Sender),
		Recipient:   swaptypes.Address(p.Recipient),
		TokenIn:     swaptypes.Address(p.TokenIn),
		TokenOut:    swaptypes.Address(p.TokenOut),
		AmountOut:   bigToU256(p.AmountOut),
		SolverFee:   bigToU256(p.SolverFee),
		Nonce:       bigToU256(p.Nonce),
		Executed:    p.Executed,
		RequestedAt: bigToU256(p.RequestedAt),
	}
}
