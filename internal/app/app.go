// Package app wires one block-event fan-in loop per running solver: a
// goroutine per chain feeding a shared channel, merged into a single
// consumer that drives the solver and hands its trades to the executor.
package app

import (
	"context"
	"errors"
	"sync"

	"github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/internal/observability"
	"github.com/aaravm/onlyswaps-solver/pkg/executor"
	"github.com/aaravm/onlyswaps-solver/pkg/solver"
	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// ErrStreamsEnded is returned by Run when every chain's block subscription
// has drained without the context being cancelled. A live solver's block
// feeds never end on their own; this is always a fault, never a graceful
// stop.
var ErrStreamsEnded = errors.New("app: all block subscriptions ended without cancellation")

// chainBlock pairs a BlockEvent with the chain id its subscription belongs
// to, since the fan-in channel carries events from every chain at once.
type chainBlock struct {
	chainID swaptypes.ChainId
	event   swaptypes.BlockEvent
}

// App runs the solver's block-driven reconciliation loop until its context
// is cancelled.
type App struct {
	chains   map[swaptypes.ChainId]chainadapter.Adapter
	solver   *solver.Solver
	executor *executor.Executor
	log      *observability.Logger
}

// New builds an App over an already-constructed Solver and Executor.
func New(chains map[swaptypes.ChainId]chainadapter.Adapter, s *solver.Solver, e *executor.Executor, log *observability.Logger) *App {
	return &App{chains: chains, solver: s, executor: e, log: log}
}

// Run subscribes to every chain's block stream, fans their events into a
// single channel, and for each received block runs the solver's
// reconciliation pass and hands any resulting trades to the executor. It
// blocks until ctx is cancelled or every subscription goroutine has
// exited, whichever happens first.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	blocks := make(chan chainBlock)
	var wg sync.WaitGroup

	for chainID, adapter := range a.chains {
		chainID, adapter := chainID, adapter
		sub, err := adapter.SubscribeBlocks(ctx)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-sub:
					if !ok {
						return
					}
					select {
					case blocks <- chainBlock{chainID: chainID, event: event}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return ErrStreamsEnded
		case b := <-blocks:
			a.onBlock(ctx, b.chainID, b.event)
		}
	}
}

func (a *App) onBlock(ctx context.Context, chainID swaptypes.ChainId, event swaptypes.BlockEvent) {
	trades, err := a.solver.OnBlock(ctx, chainID)
	if err != nil {
		a.log.Warnf("chain %d: solve pass for block %d failed: %v", chainID, event.BlockNumber, err)
		return
	}
	if len(trades) == 0 {
		return
	}
	a.log.Infof("chain %d: block %d emitted %d trade(s)", chainID, event.BlockNumber, len(trades))
	a.executor.Run(ctx, trades)
}
