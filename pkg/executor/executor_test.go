package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/pkg/chainstate"
	"github.com/aaravm/onlyswaps-solver/pkg/inflight"
	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

type recordingAdapter struct {
	approveCalls int
	relayCalls   int
	relayErr     error
}

func (a *recordingAdapter) FetchState(ctx context.Context) (chainstate.State, error) {
	return chainstate.New(1), nil
}
func (a *recordingAdapter) SubscribeBlocks(ctx context.Context) (<-chan swaptypes.BlockEvent, error) {
	return nil, nil
}
func (a *recordingAdapter) Approve(ctx context.Context, token, router swaptypes.Address, amount *swaptypes.U256) (chainadapter.TxHandle, error) {
	a.approveCalls++
	return chainadapter.TxHandle{TxHash: "0xapprove"}, nil
}
func (a *recordingAdapter) RelayTokens(ctx context.Context, token, recipient swaptypes.Address, amount *swaptypes.U256, requestID swaptypes.RequestId, srcChainID swaptypes.ChainId) (chainadapter.TxHandle, error) {
	a.relayCalls++
	if a.relayErr != nil {
		return chainadapter.TxHandle{}, a.relayErr
	}
	return chainadapter.TxHandle{TxHash: "0xrelay"}, nil
}
func (a *recordingAdapter) GetTransferParameters(ctx context.Context, id swaptypes.RequestId) (swaptypes.SwapRequest, error) {
	return swaptypes.SwapRequest{}, nil
}
func (a *recordingAdapter) GetUnfulfilledRefunds(ctx context.Context) ([]swaptypes.RequestId, error) {
	return nil, nil
}
func (a *recordingAdapter) GetFulfilledTransfers(ctx context.Context) ([]swaptypes.RequestId, error) {
	return nil, nil
}
func (a *recordingAdapter) BalanceOf(ctx context.Context, token, addr swaptypes.Address) (*swaptypes.U256, error) {
	return nil, nil
}
func (a *recordingAdapter) NativeBalance(ctx context.Context, addr swaptypes.Address) (*swaptypes.U256, error) {
	return nil, nil
}

func testTrade() swaptypes.Trade {
	amount := swaptypes.U256{}
	amount.SetUint64(100)
	return swaptypes.Trade{
		RequestId:  swaptypes.RequestId{0xA},
		SrcChainId: 1,
		DstChainId: 2,
		SwapAmount: &amount,
	}
}

func TestRun_InsertsIntoCacheBeforeSubmitting(t *testing.T) {
	adapter := &recordingAdapter{}
	cache := inflight.New(0, 0)
	trade := testTrade()

	exec := New(
		map[swaptypes.ChainId]chainadapter.Adapter{2: adapter},
		map[swaptypes.ChainId]NetworkBinding{2: {}},
		cache, nil, nil,
	)
	exec.Run(context.Background(), []swaptypes.Trade{trade})

	assert.True(t, cache.Contains(trade.RequestId))
	assert.Equal(t, 1, adapter.approveCalls)
	assert.Equal(t, 1, adapter.relayCalls)
}

func TestRun_RelayFailureIsNonFatal(t *testing.T) {
	adapter := &recordingAdapter{relayErr: errors.New("already fulfilled")}
	cache := inflight.New(0, 0)
	trade := testTrade()

	exec := New(
		map[swaptypes.ChainId]chainadapter.Adapter{2: adapter},
		map[swaptypes.ChainId]NetworkBinding{2: {}},
		cache, nil, nil,
	)

	require.NotPanics(t, func() {
		exec.Run(context.Background(), []swaptypes.Trade{trade})
	})
	assert.True(t, cache.Contains(trade.RequestId))
}

func TestRun_MissingBindingSkipsTrade(t *testing.T) {
	adapter := &recordingAdapter{}
	cache := inflight.New(0, 0)
	trade := testTrade()

	exec := New(
		map[swaptypes.ChainId]chainadapter.Adapter{2: adapter},
		map[swaptypes.ChainId]NetworkBinding{}, // no binding for chain 2
		cache, nil, nil,
	)
	exec.Run(context.Background(), []swaptypes.Trade{trade})

	assert.Equal(t, 0, adapter.approveCalls)
	assert.Equal(t, 0, adapter.relayCalls)
}
