// Package ethereum - Unit tests for RPC helper functions
package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/internal/chainadapter/rpc"
)

// fakeRPCClient is a scripted in-package stand-in for rpc.RPCClient.
type fakeRPCClient struct {
	responses map[string]json.RawMessage
	errs      map[string]error
	calls     []string
}

func newFakeRPCClient() *fakeRPCClient {
	return &fakeRPCClient{
		responses: make(map[string]json.RawMessage),
		errs:      make(map[string]error),
	}
}

func (f *fakeRPCClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	f.calls = append(f.calls, method)
	if err, ok := f.errs[method]; ok {
		return nil, err
	}
	if resp, ok := f.responses[method]; ok {
		return resp, nil
	}
	return nil, errors.New("fakeRPCClient: no response scripted for " + method)
}

func (f *fakeRPCClient) CallBatch(ctx context.Context, requests []rpc.RPCRequest) ([]json.RawMessage, error) {
	return nil, errors.New("not supported")
}

func (f *fakeRPCClient) Close() error { return nil }

func TestRPCHelper_GetTransactionCount(t *testing.T) {
	client := newFakeRPCClient()
	client.responses["eth_getTransactionCount"] = json.RawMessage(`"0x5"`)

	helper := NewRPCHelper(client)
	nonce, err := helper.GetTransactionCount(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), nonce)
}

func TestRPCHelper_GetTransactionCount_RPCFailure(t *testing.T) {
	client := newFakeRPCClient()
	client.errs["eth_getTransactionCount"] = errors.New("connection refused")

	helper := NewRPCHelper(client)
	_, err := helper.GetTransactionCount(context.Background(), "0xabc")
	require.Error(t, err)
	assert.True(t, chainadapter.IsRetryable(err))
}

func TestRPCHelper_GetBaseFee(t *testing.T) {
	client := newFakeRPCClient()
	client.responses["eth_getBlockByNumber"] = json.RawMessage(`{"baseFeePerGas":"0x3b9aca00"}`)

	helper := NewRPCHelper(client)
	baseFee, err := helper.GetBaseFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1e9), baseFee.Int64())
}

func TestRPCHelper_GetBaseFee_PreLondon(t *testing.T) {
	client := newFakeRPCClient()
	client.responses["eth_getBlockByNumber"] = json.RawMessage(`{}`)

	helper := NewRPCHelper(client)
	baseFee, err := helper.GetBaseFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), baseFee.Int64())
}

func TestRPCHelper_GetBalance(t *testing.T) {
	client := newFakeRPCClient()
	client.responses["eth_getBalance"] = json.RawMessage(`"0xde0b6b3a7640000"`)

	helper := NewRPCHelper(client)
	balance, err := helper.GetBalance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.String())
}

func TestRPCHelper_GetBlockNumber(t *testing.T) {
	client := newFakeRPCClient()
	client.responses["eth_blockNumber"] = json.RawMessage(`"0x10"`)

	helper := NewRPCHelper(client)
	blockNumber, err := helper.GetBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), blockNumber)
}

func TestRPCHelper_SendRawTransaction(t *testing.T) {
	client := newFakeRPCClient()
	client.responses["eth_sendRawTransaction"] = json.RawMessage(`"0xfeed"`)

	helper := NewRPCHelper(client)
	hash, err := helper.SendRawTransaction(context.Background(), "0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", hash)
}

func TestRPCHelper_EthCall(t *testing.T) {
	client := newFakeRPCClient()
	client.responses["eth_call"] = json.RawMessage(`"0x0000000000000000000000000000000000000000000000000000000000000001"`)

	helper := NewRPCHelper(client)
	result, err := helper.EthCall(context.Background(), common.HexToAddress("0xdeadbeef"), []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Len(t, result, 32)
}
