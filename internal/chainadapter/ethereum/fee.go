// Package ethereum - Fee estimation for EIP-1559 transactions
package ethereum

import (
	"context"
	"math/big"
)

// FeeEstimate is the gas price pair a builder needs for an EIP-1559
// transaction, plus the base fee it was computed from.
type FeeEstimate struct {
	BaseFee               *big.Int
	MaxFeePerGas          *big.Int
	MaxPriorityFeePerGas  *big.Int
}

// FeeEstimator derives EIP-1559 gas prices for approve/relay submissions.
// The solver has no user-facing speed selection, so there is a single
// estimation path: base fee from the latest block, priority fee from
// recent fee history, headroom applied to the base fee to absorb the next
// few blocks' drift before the transaction is likely to land.
type FeeEstimator struct {
	rpcHelper       *RPCHelper
	baseFeeHeadroom int64
}

// NewFeeEstimator creates a fee estimator applying a 2x headroom multiplier
// to the observed base fee, matching the teacher's "normal" speed tier.
func NewFeeEstimator(rpcHelper *RPCHelper) *FeeEstimator {
	return &FeeEstimator{rpcHelper: rpcHelper, baseFeeHeadroom: 2}
}

// Estimate reads the current base fee and recent priority fee and returns
// gasFeeCap/gasTipCap suitable for a types.DynamicFeeTx. Falls back to
// conservative fixed rates if the RPC calls fail.
func (f *FeeEstimator) Estimate(ctx context.Context) (FeeEstimate, error) {
	baseFee, err := f.rpcHelper.GetBaseFee(ctx)
	if err != nil {
		return f.fallbackEstimate(), nil
	}

	priorityFee, err := f.rpcHelper.GetFeeHistory(ctx, 10)
	if err != nil {
		priorityFee = big.NewInt(2e9)
	}

	maxFeePerGas := new(big.Int).Mul(baseFee, big.NewInt(f.baseFeeHeadroom))
	maxFeePerGas.Add(maxFeePerGas, priorityFee)

	return FeeEstimate{
		BaseFee:              baseFee,
		MaxFeePerGas:         maxFeePerGas,
		MaxPriorityFeePerGas: priorityFee,
	}, nil
}

// fallbackEstimate returns conservative fixed rates when RPC is unavailable:
// 30 Gwei base, 2 Gwei priority.
func (f *FeeEstimator) fallbackEstimate() FeeEstimate {
	baseFee := big.NewInt(30e9)
	priorityFee := big.NewInt(2e9)
	maxFeePerGas := new(big.Int).Mul(baseFee, big.NewInt(f.baseFeeHeadroom))
	maxFeePerGas.Add(maxFeePerGas, priorityFee)

	return FeeEstimate{
		BaseFee:              baseFee,
		MaxFeePerGas:         maxFeePerGas,
		MaxPriorityFeePerGas: priorityFee,
	}
}
