package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TradeLogEntry is one approve-or-relay attempt logged for operational
// monitoring: which request, which step, and the outcome.
type TradeLogEntry struct {
	ID            string    `json:"id"`
	RequestId     string    `json:"requestId"`
	SrcChainId    uint64    `json:"srcChainId"`
	DstChainId    uint64    `json:"dstChainId"`
	Timestamp     time.Time `json:"timestamp"`
	Step          string    `json:"step"` // APPROVE, RELAY
	Status        string    `json:"status"` // SUCCESS, FAILURE
	TxHash        string    `json:"txHash,omitempty"`
	FailureReason string    `json:"failureReason,omitempty"`
}

// AuditLogger handles append-only audit logging.
type AuditLogger struct {
	filePath string
	mu       sync.Mutex
}

// NewAuditLogger creates a new audit logger with the specified file path.
func NewAuditLogger(filePath string) (*AuditLogger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	return &AuditLogger{
		filePath: filePath,
	}, nil
}

// LogTrade appends a trade log entry to the log file (NDJSON format).
func (l *AuditLogger) LogTrade(entry TradeLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if _, err := file.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}

	return nil
}

// ReadLog reads all trade log entries from the log file.
func (l *AuditLogger) ReadLog() ([]TradeLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []TradeLogEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	var entries []TradeLogEntry
	lines := string(data)

	start := 0
	for i := 0; i < len(lines); i++ {
		if lines[i] == '\n' {
			if i > start {
				var entry TradeLogEntry
				if err := json.Unmarshal([]byte(lines[start:i]), &entry); err == nil {
					entries = append(entries, entry)
				}
			}
			start = i + 1
		}
	}

	if start < len(lines) {
		var entry TradeLogEntry
		if err := json.Unmarshal([]byte(lines[start:]), &entry); err == nil {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
