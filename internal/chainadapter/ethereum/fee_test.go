// Package ethereum - Unit tests for fee estimation
package ethereum

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeEstimator_Estimate(t *testing.T) {
	client := newFakeRPCClient()
	client.responses["eth_getBlockByNumber"] = json.RawMessage(`{"baseFeePerGas":"0x3b9aca00"}`) // 1 Gwei
	client.responses["eth_feeHistory"] = json.RawMessage(`{"reward":[["0x77359400"]]}`)           // 2 Gwei

	estimator := NewFeeEstimator(NewRPCHelper(client))
	estimate, err := estimator.Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1e9), estimate.BaseFee.Int64())
	assert.Equal(t, int64(2e9), estimate.MaxPriorityFeePerGas.Int64())
	// maxFeePerGas = 2x base fee + priority fee = 2e9 + 2e9 = 4e9
	assert.Equal(t, int64(4e9), estimate.MaxFeePerGas.Int64())
}

func TestFeeEstimator_Estimate_FallsBackOnRPCFailure(t *testing.T) {
	client := newFakeRPCClient()
	client.errs["eth_getBlockByNumber"] = assertError{"node unreachable"}

	estimator := NewFeeEstimator(NewRPCHelper(client))
	estimate, err := estimator.Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(30e9), estimate.BaseFee.Int64())
	assert.Equal(t, int64(2e9), estimate.MaxPriorityFeePerGas.Int64())
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
