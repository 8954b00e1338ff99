// Package ethereum - Transaction builder implementation
package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransactionBuilder assembles unsigned EIP-1559 contract-call transactions:
// ERC-20 approve and router relayTokens, the only two calls this adapter
// ever submits.
type TransactionBuilder struct {
	chainID *big.Int
}

// NewTransactionBuilder creates a new Ethereum transaction builder.
func NewTransactionBuilder(chainID int64) *TransactionBuilder {
	return &TransactionBuilder{chainID: big.NewInt(chainID)}
}

// Build constructs an unsigned EIP-1559 transaction that calls to with
// calldata data, carrying no native value.
func (tb *TransactionBuilder) Build(nonce, gasLimit uint64, maxFeePerGas, maxPriorityFeePerGas *big.Int, to common.Address, data []byte) *types.Transaction {
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   tb.chainID,
		Nonce:     nonce,
		GasFeeCap: maxFeePerGas,
		GasTipCap: maxPriorityFeePerGas,
		Gas:       gasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})
}

// ValidateChecksum validates an EIP-55 checksummed address.
func (tb *TransactionBuilder) ValidateChecksum(addr string) bool {
	address := common.HexToAddress(addr)
	return address.Hex() == addr
}

// SignTransaction signs tx with a raw private key. Test helper; production
// signing goes through EthereumSigner instead.
func (tb *TransactionBuilder) SignTransaction(tx *types.Transaction, privateKeyHex string) (*types.Transaction, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, err
	}

	signer := types.LatestSignerForChainID(tb.chainID)
	return types.SignTx(tx, signer, privateKey)
}
