// Command solver runs the cross-chain swap solver: it loads a network
// configuration file, connects one adapter per chain, and drives the
// reconciliation loop until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aaravm/onlyswaps-solver/internal/app"
	"github.com/aaravm/onlyswaps-solver/internal/audit"
	"github.com/aaravm/onlyswaps-solver/internal/chainadapter"
	"github.com/aaravm/onlyswaps-solver/internal/chainadapter/ethereum"
	"github.com/aaravm/onlyswaps-solver/internal/chainadapter/rpc"
	"github.com/aaravm/onlyswaps-solver/internal/config"
	"github.com/aaravm/onlyswaps-solver/internal/metrics"
	"github.com/aaravm/onlyswaps-solver/internal/observability"
	"github.com/aaravm/onlyswaps-solver/pkg/executor"
	"github.com/aaravm/onlyswaps-solver/pkg/inflight"
	"github.com/aaravm/onlyswaps-solver/pkg/solver"
	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

const (
	rateLimitMaxAttempts = 20
	rateLimitWindow      = time.Second
)

func main() {
	log := observability.NewLogger("solver ")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" && len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if configPath == "" {
		log.Fatalf("no config path: set CONFIG_PATH or pass it as the first argument")
	}

	privateKeyHex := os.Getenv("SOLVER_PRIVATE_KEY")
	if privateKeyHex == "" {
		log.Fatalf("SOLVER_PRIVATE_KEY is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	var auditLogger *audit.AuditLogger
	if path := os.Getenv("AUDIT_LOG_PATH"); path != "" {
		auditLogger, err = audit.NewAuditLogger(path)
		if err != nil {
			log.Fatalf("opening audit log: %v", err)
		}
	}

	solverMetrics := metrics.NewPrometheusMetrics()

	chains := make(map[swaptypes.ChainId]chainadapter.Adapter, len(cfg.Networks))
	bindings := make(map[swaptypes.ChainId]executor.NetworkBinding, len(cfg.Networks))

	for _, network := range cfg.Networks {
		signer, err := ethereum.NewEthereumSigner(privateKeyHex, int64(network.ChainID))
		if err != nil {
			log.Fatalf("chain %d: building signer: %v", network.ChainID, err)
		}

		transport, err := dialRPC(network.RPCURL)
		if err != nil {
			log.Fatalf("chain %d: connecting to %s: %v", network.ChainID, network.RPCURL, err)
		}

		rateLimited := rpc.NewRateLimitedRPCClient(transport, rateLimitMaxAttempts, rateLimitWindow)
		withMetrics := rpc.NewMetricsRPCClient(rateLimited, solverMetrics)

		chainID := network.TypedChainID()
		tokenAddr := common.Address(network.ParsedRUSDAddress())
		routerAddr := common.Address(network.ParsedRouterAddress())
		adapter := ethereum.NewEthereumAdapter(chainID, withMetrics, signer, tokenAddr, routerAddr, solverMetrics)

		chains[chainID] = adapter
		bindings[chainID] = executor.NetworkBinding{
			Router: network.ParsedRouterAddress(),
			Token:  network.ParsedRUSDAddress(),
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := inflight.New(0, 0)
	s, err := solver.New(ctx, chains, solver.WithCache(cache))
	if err != nil {
		log.Fatalf("initializing solver: %v", err)
	}

	exec := executor.New(chains, bindings, cache, auditLogger, log)
	runner := app.New(chains, s, exec, log)

	if port := os.Getenv("PORT"); port != "" {
		go serveMetrics(port, solverMetrics, log)
	}

	log.Infof("solver %q started across %d network(s)", cfg.Solver.SolverName, len(chains))

	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("block loop terminated: %v", err)
		os.Exit(1)
	}

	log.Infof("shutdown complete")
}

// dialRPC picks the WebSocket transport for ws(s):// URLs, matching the
// adapter's SubscribeBlocks requirement, and falls back to HTTP otherwise.
func dialRPC(url string) (rpc.RPCClient, error) {
	if strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://") {
		return rpc.NewWebSocketRPCClient(url)
	}
	return rpc.NewHTTPRPCClient(url, 10*time.Second)
}

func serveMetrics(port string, m metrics.SolverMetrics, log *observability.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, m.Export())
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := m.GetHealthStatus()
		if status.IsDown() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintf(w, "%s: %s\n", status.Status, status.Message)
	})
	addr := ":" + port
	log.Infof("metrics server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("metrics server stopped: %v", err)
	}
}
