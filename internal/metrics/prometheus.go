// Package metrics - Prometheus-compatible metrics exporter
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// PrometheusMetrics implements SolverMetrics with Prometheus-compatible export.
//
// Thread-safe implementation using sync.RWMutex for concurrent access.
type PrometheusMetrics struct {
	mu sync.RWMutex

	// Per-method RPC metrics
	rpcMetrics map[string]*methodStats

	// Solve/approve/relay operation metrics
	solveStats   *solveStats
	approveStats *operationStats
	relayStats   *operationStats

	// Latest observed auction price per request, for the gauge export.
	auctionPrices map[string]float64

	// Global counters
	totalRPCCalls      int64
	successfulRPCCalls int64
	failedRPCCalls     int64
	lastSuccessfulCall time.Time
}

// methodStats tracks statistics for a single RPC method.
type methodStats struct {
	totalCalls         int64
	successfulCalls    int64
	failedCalls        int64
	totalDuration      time.Duration
	minDuration        time.Duration
	maxDuration        time.Duration
	lastSuccessfulCall time.Time
	lastFailedCall     time.Time
}

// operationStats tracks statistics for Approve/Relay submissions.
type operationStats struct {
	totalCalls      int64
	successfulCalls int64
	failedCalls     int64
	totalDuration   time.Duration
}

// solveStats tracks statistics for Solver.OnBlock passes.
type solveStats struct {
	totalCalls    int64
	totalTrades   int64
	totalDuration time.Duration
}

// NewPrometheusMetrics creates a new Prometheus-compatible metrics recorder.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		rpcMetrics:    make(map[string]*methodStats),
		solveStats:    &solveStats{},
		approveStats:  &operationStats{},
		relayStats:    &operationStats{},
		auctionPrices: make(map[string]float64),
	}
}

// RecordRPCCall records a single RPC call with its duration and success status.
//
// Thread-safe: YES
func (p *PrometheusMetrics) RecordRPCCall(method string, duration time.Duration, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Update global counters
	p.totalRPCCalls++
	if success {
		p.successfulRPCCalls++
		p.lastSuccessfulCall = time.Now()
	} else {
		p.failedRPCCalls++
	}

	// Get or create method stats
	stats, exists := p.rpcMetrics[method]
	if !exists {
		stats = &methodStats{
			minDuration: duration, // Initialize with first duration
			maxDuration: duration,
		}
		p.rpcMetrics[method] = stats
	}

	// Update method stats
	stats.totalCalls++
	stats.totalDuration += duration

	if success {
		stats.successfulCalls++
		stats.lastSuccessfulCall = time.Now()
	} else {
		stats.failedCalls++
		stats.lastFailedCall = time.Now()
	}

	// Update min/max duration
	if duration < stats.minDuration || stats.minDuration == 0 {
		stats.minDuration = duration
	}
	if duration > stats.maxDuration {
		stats.maxDuration = duration
	}
}

// RecordSolve records one Solver.OnBlock pass for a chain.
func (p *PrometheusMetrics) RecordSolve(chainID string, duration time.Duration, tradesEmitted int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.solveStats.totalCalls++
	p.solveStats.totalDuration += duration
	p.solveStats.totalTrades += int64(tradesEmitted)
}

// RecordApprove records one Approve() submission.
func (p *PrometheusMetrics) RecordApprove(chainID string, duration time.Duration, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.approveStats.totalCalls++
	p.approveStats.totalDuration += duration
	if success {
		p.approveStats.successfulCalls++
	} else {
		p.approveStats.failedCalls++
	}
}

// RecordRelay records one RelayTokens() submission.
func (p *PrometheusMetrics) RecordRelay(chainID string, duration time.Duration, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.relayStats.totalCalls++
	p.relayStats.totalDuration += duration
	if success {
		p.relayStats.successfulCalls++
	} else {
		p.relayStats.failedCalls++
	}
}

// RecordAuctionPrice records the latest observed price for a live auction.
// A consumed or expired auction's last price simply stops being updated;
// nothing removes stale entries, matching the teacher's own fire-and-forget
// gauge style elsewhere in this package.
func (p *PrometheusMetrics) RecordAuctionPrice(requestID string, priceFloat float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.auctionPrices[requestID] = priceFloat
}

// GetMetrics returns aggregated metrics for all recorded operations.
func (p *PrometheusMetrics) GetMetrics() *AggregatedMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Calculate RPC metrics
	var totalRPCDuration time.Duration
	for _, stats := range p.rpcMetrics {
		totalRPCDuration += stats.totalDuration
	}

	rpcSuccessRate := 0.0
	if p.totalRPCCalls > 0 {
		rpcSuccessRate = float64(p.successfulRPCCalls) / float64(p.totalRPCCalls)
	}

	avgRPCDuration := time.Duration(0)
	if p.totalRPCCalls > 0 {
		avgRPCDuration = totalRPCDuration / time.Duration(p.totalRPCCalls)
	}

	// Solve metrics
	avgSolveDuration := time.Duration(0)
	if p.solveStats.totalCalls > 0 {
		avgSolveDuration = p.solveStats.totalDuration / time.Duration(p.solveStats.totalCalls)
	}

	// Approve metrics
	approveSuccessRate := 0.0
	if p.approveStats.totalCalls > 0 {
		approveSuccessRate = float64(p.approveStats.successfulCalls) / float64(p.approveStats.totalCalls)
	}
	avgApproveDuration := time.Duration(0)
	if p.approveStats.totalCalls > 0 {
		avgApproveDuration = p.approveStats.totalDuration / time.Duration(p.approveStats.totalCalls)
	}

	// Relay metrics
	relaySuccessRate := 0.0
	if p.relayStats.totalCalls > 0 {
		relaySuccessRate = float64(p.relayStats.successfulCalls) / float64(p.relayStats.totalCalls)
	}
	avgRelayDuration := time.Duration(0)
	if p.relayStats.totalCalls > 0 {
		avgRelayDuration = p.relayStats.totalDuration / time.Duration(p.relayStats.totalCalls)
	}

	return &AggregatedMetrics{
		TotalRPCCalls:      p.totalRPCCalls,
		SuccessfulRPCCalls: p.successfulRPCCalls,
		FailedRPCCalls:     p.failedRPCCalls,
		RPCSuccessRate:     rpcSuccessRate,
		AvgRPCDuration:     avgRPCDuration,
		LastSuccessfulCall: p.lastSuccessfulCall,

		TotalSolves:      p.solveStats.totalCalls,
		TotalTrades:      p.solveStats.totalTrades,
		AvgSolveDuration: avgSolveDuration,

		TotalApproves:      p.approveStats.totalCalls,
		SuccessfulApproves: p.approveStats.successfulCalls,
		FailedApproves:     p.approveStats.failedCalls,
		ApproveSuccessRate: approveSuccessRate,
		AvgApproveDuration: avgApproveDuration,

		TotalRelays:      p.relayStats.totalCalls,
		SuccessfulRelays: p.relayStats.successfulCalls,
		FailedRelays:     p.relayStats.failedCalls,
		RelaySuccessRate: relaySuccessRate,
		AvgRelayDuration: avgRelayDuration,
	}
}

// GetRPCMetrics returns aggregated metrics for a specific RPC method.
func (p *PrometheusMetrics) GetRPCMetrics(method string) *MethodMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats, exists := p.rpcMetrics[method]
	if !exists {
		return nil
	}

	successRate := 0.0
	if stats.totalCalls > 0 {
		successRate = float64(stats.successfulCalls) / float64(stats.totalCalls)
	}

	avgDuration := time.Duration(0)
	if stats.totalCalls > 0 {
		avgDuration = stats.totalDuration / time.Duration(stats.totalCalls)
	}

	return &MethodMetrics{
		Method:             method,
		TotalCalls:         stats.totalCalls,
		SuccessfulCalls:    stats.successfulCalls,
		FailedCalls:        stats.failedCalls,
		SuccessRate:        successRate,
		AvgDuration:        avgDuration,
		MinDuration:        stats.minDuration,
		MaxDuration:        stats.maxDuration,
		LastSuccessfulCall: stats.lastSuccessfulCall,
		LastFailedCall:     stats.lastFailedCall,
	}
}

// GetHealthStatus checks if the solver's RPC layer is healthy based on metrics.
//
// Degraded criteria:
//   - Success rate < 90%
//   - Average response time > 5 seconds
//   - No successful call in last 5 minutes
func (p *PrometheusMetrics) GetHealthStatus() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.getHealthStatusInternal()
}

// Export returns metrics in Prometheus text format.
//
// Example output:
//
//	# HELP solver_rpc_calls_total Total number of adapter RPC calls
//	# TYPE solver_rpc_calls_total counter
//	solver_rpc_calls_total{method="eth_getTransactionCount",status="success"} 42
func (p *PrometheusMetrics) Export() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var sb strings.Builder

	// RPC calls total
	sb.WriteString("# HELP solver_rpc_calls_total Total number of adapter RPC calls\n")
	sb.WriteString("# TYPE solver_rpc_calls_total counter\n")
	for method, stats := range p.rpcMetrics {
		sb.WriteString(fmt.Sprintf("solver_rpc_calls_total{method=\"%s\",status=\"success\"} %d\n",
			method, stats.successfulCalls))
		sb.WriteString(fmt.Sprintf("solver_rpc_calls_total{method=\"%s\",status=\"failure\"} %d\n",
			method, stats.failedCalls))
	}
	sb.WriteString("\n")

	// RPC duration
	sb.WriteString("# HELP solver_rpc_duration_seconds RPC call duration in seconds\n")
	sb.WriteString("# TYPE solver_rpc_duration_seconds summary\n")
	for method, stats := range p.rpcMetrics {
		if stats.totalCalls > 0 {
			avgSec := stats.totalDuration.Seconds() / float64(stats.totalCalls)
			sb.WriteString(fmt.Sprintf("solver_rpc_duration_seconds{method=\"%s\",quantile=\"avg\"} %.6f\n",
				method, avgSec))
			sb.WriteString(fmt.Sprintf("solver_rpc_duration_seconds{method=\"%s\",quantile=\"min\"} %.6f\n",
				method, stats.minDuration.Seconds()))
			sb.WriteString(fmt.Sprintf("solver_rpc_duration_seconds{method=\"%s\",quantile=\"max\"} %.6f\n",
				method, stats.maxDuration.Seconds()))
		}
	}
	sb.WriteString("\n")

	// Solve/approve/relay operations
	sb.WriteString("# HELP solver_operations_total Total number of solver pipeline operations\n")
	sb.WriteString("# TYPE solver_operations_total counter\n")
	sb.WriteString(fmt.Sprintf("solver_operations_total{operation=\"solve\"} %d\n", p.solveStats.totalCalls))
	sb.WriteString(fmt.Sprintf("solver_operations_total{operation=\"approve\",status=\"success\"} %d\n",
		p.approveStats.successfulCalls))
	sb.WriteString(fmt.Sprintf("solver_operations_total{operation=\"approve\",status=\"failure\"} %d\n",
		p.approveStats.failedCalls))
	sb.WriteString(fmt.Sprintf("solver_operations_total{operation=\"relay\",status=\"success\"} %d\n",
		p.relayStats.successfulCalls))
	sb.WriteString(fmt.Sprintf("solver_operations_total{operation=\"relay\",status=\"failure\"} %d\n",
		p.relayStats.failedCalls))
	sb.WriteString("\n")

	sb.WriteString("# HELP solver_trades_emitted_total Total number of trades emitted across all solve passes\n")
	sb.WriteString("# TYPE solver_trades_emitted_total counter\n")
	sb.WriteString(fmt.Sprintf("solver_trades_emitted_total %d\n", p.solveStats.totalTrades))
	sb.WriteString("\n")

	// Auction price gauge
	sb.WriteString("# HELP solver_auction_price Latest observed Dutch auction price for an in-flight request\n")
	sb.WriteString("# TYPE solver_auction_price gauge\n")
	for requestID, price := range p.auctionPrices {
		sb.WriteString(fmt.Sprintf("solver_auction_price{request_id=\"%s\"} %f\n", requestID, price))
	}
	sb.WriteString("\n")

	// Health status
	health := p.getHealthStatusInternal()
	healthValue := 0.0
	if health.Status == "OK" {
		healthValue = 1.0
	} else if health.Status == "Degraded" {
		healthValue = 0.5
	}
	sb.WriteString("# HELP solver_health_status Health status (1=OK, 0.5=Degraded, 0=Down)\n")
	sb.WriteString("# TYPE solver_health_status gauge\n")
	sb.WriteString(fmt.Sprintf("solver_health_status %.1f\n", healthValue))

	return sb.String()
}

// getHealthStatusInternal is an internal helper that assumes lock is already held.
func (p *PrometheusMetrics) getHealthStatusInternal() HealthStatus {
	status := HealthStatus{
		CheckedAt: time.Now(),
	}

	successRate := 0.0
	if p.totalRPCCalls > 0 {
		successRate = float64(p.successfulRPCCalls) / float64(p.totalRPCCalls)
	}

	var totalDuration time.Duration
	for _, stats := range p.rpcMetrics {
		totalDuration += stats.totalDuration
	}
	avgDuration := time.Duration(0)
	if p.totalRPCCalls > 0 {
		avgDuration = totalDuration / time.Duration(p.totalRPCCalls)
	}

	status.LowSuccessRate = successRate < 0.90 && p.totalRPCCalls > 0
	status.HighLatency = avgDuration > 5*time.Second
	status.NoRecentSuccess = !p.lastSuccessfulCall.IsZero() &&
		time.Since(p.lastSuccessfulCall) > 5*time.Minute

	if p.totalRPCCalls == 0 {
		status.Status = "OK"
		status.Message = "No RPC calls recorded yet"
		return status
	}

	if status.LowSuccessRate || status.HighLatency || status.NoRecentSuccess {
		status.Status = "Degraded"
		messages := []string{}
		if status.LowSuccessRate {
			messages = append(messages, fmt.Sprintf("low success rate (%.1f%%)", successRate*100))
		}
		if status.HighLatency {
			messages = append(messages, fmt.Sprintf("high latency (%v)", avgDuration))
		}
		if status.NoRecentSuccess {
			messages = append(messages, fmt.Sprintf("no recent success (%v ago)", time.Since(p.lastSuccessfulCall)))
		}
		status.Message = strings.Join(messages, ", ")
		return status
	}

	status.Status = "OK"
	status.Message = fmt.Sprintf("Success rate: %.1f%%, Avg latency: %v", successRate*100, avgDuration)
	return status
}

// Reset clears all recorded metrics.
func (p *PrometheusMetrics) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rpcMetrics = make(map[string]*methodStats)
	p.solveStats = &solveStats{}
	p.approveStats = &operationStats{}
	p.relayStats = &operationStats{}
	p.auctionPrices = make(map[string]float64)
	p.totalRPCCalls = 0
	p.successfulRPCCalls = 0
	p.failedRPCCalls = 0
	p.lastSuccessfulCall = time.Time{}
}

// Ensure PrometheusMetrics implements SolverMetrics
var _ SolverMetrics = (*PrometheusMetrics)(nil)
