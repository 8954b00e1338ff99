// Package ethereum - Transaction signing implementation
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// EthereumSigner signs outgoing relay transactions with a single ECDSA
// secp256k1 key, using EIP-155/EIP-1559 signing rules.
type EthereumSigner struct {
	privateKey *ecdsa.PrivateKey
	address    string
	chainID    *big.Int
}

// NewEthereumSigner creates a new Ethereum signer from a hex-encoded private key.
//
// Parameters:
// - privateKeyHex: Hex-encoded private key (64 characters, with or without "0x" prefix)
// - chainID: Ethereum chain ID (1 for mainnet, 5 for goerli, 11155111 for sepolia)
//
// Returns:
// - Signer instance
// - Error if private key is invalid
func NewEthereumSigner(privateKeyHex string, chainID int64) (*EthereumSigner, error) {
	// Remove "0x" prefix if present
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}

	// Decode private key
	privKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}

	// Parse private key
	privKey, err := crypto.ToECDSA(privKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	// Derive address from public key
	pubKey := privKey.Public()
	pubKeyECDSA, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	address := crypto.PubkeyToAddress(*pubKeyECDSA)

	return &EthereumSigner{
		privateKey: privKey,
		address:    address.Hex(), // Checksummed address
		chainID:    big.NewInt(chainID),
	}, nil
}

// SignTransaction signs an Ethereum transaction (EIP-1559 or legacy) with
// this signer's key and chain id.
//
// Parameters:
// - tx: Unsigned Ethereum transaction
//
// Returns:
// - Signed transaction
// - Error if signing fails
func (s *EthereumSigner) SignTransaction(tx *types.Transaction) (*types.Transaction, error) {
	signer := types.NewLondonSigner(s.chainID)

	signedTx, err := types.SignTx(tx, signer, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("transaction signing failed: %w", err)
	}

	return signedTx, nil
}

// GetAddress returns the checksummed Ethereum address controlled by this signer.
func (s *EthereumSigner) GetAddress() string {
	return s.address
}
