// internal/logger/buffer.go
package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer keeps the most recent entries for the dashboard. Entries evicted
// from the ring are spilled to a file when one is configured.
type LogBuffer struct {
	mu           sync.Mutex
	ringBuffer   []LogEntry
	maxSize      int
	currentIndex int
	wrapped      bool
	spill        *SafeFileWriter
	logger       *zap.Logger

	// Stats
	totalEntries   uint64
	spilledEntries uint64
}

// NewLogBuffer creates a buffer holding maxSize entries. An empty
// spillFilePath disables spilling.
func NewLogBuffer(maxSize int, spillFilePath string, logger *zap.Logger) (*LogBuffer, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid log buffer size %d", maxSize)
	}
	lb := &LogBuffer{
		ringBuffer: make([]LogEntry, maxSize),
		maxSize:    maxSize,
		logger:     logger,
	}
	if spillFilePath != "" {
		spill, err := NewSafeFileWriter(spillFilePath, 0, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open spill file: %w", err)
		}
		lb.spill = spill
	}
	return lb, nil
}

// Write implements zapcore.WriteSyncer for JSON-encoded entries.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimSpace(p), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if err := lb.add(decodeEntry(line)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Sync flushes the spill file.
func (lb *LogBuffer) Sync() error {
	return lb.Flush()
}

func decodeEntry(line []byte) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEntry{Timestamp: time.Now(), Level: "info", Message: string(line)}
	}

	entry := LogEntry{Timestamp: time.Now()}
	if v, ok := raw["time"].(string); ok {
		if ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", v); err == nil {
			entry.Timestamp = ts
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.Logger, _ = raw["logger"].(string)
	delete(raw, "time")
	delete(raw, "level")
	delete(raw, "msg")
	delete(raw, "logger")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}

func (lb *LogBuffer) add(entry LogEntry) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	evicted, full := lb.ringBuffer[lb.currentIndex], lb.wrapped
	lb.ringBuffer[lb.currentIndex] = entry
	lb.currentIndex = (lb.currentIndex + 1) % lb.maxSize
	if lb.currentIndex == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++

	if !full {
		return nil
	}
	lb.spilledEntries++
	if lb.spill == nil {
		return nil
	}
	data, err := json.Marshal(evicted)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	return lb.spill.WriteLine(string(data))
}

// GetRecentLogs returns the most recent log entries (up to limit), oldest first
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.currentIndex
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.currentIndex
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ringBuffer[(start+i)%lb.maxSize])
	}
	return logs
}

// Flush forces a write of any buffered data to the spill file
func (lb *LogBuffer) Flush() error {
	if lb.spill == nil {
		return nil
	}
	return lb.spill.Flush()
}

// Close closes the spill file.
func (lb *LogBuffer) Close() error {
	if lb.spill == nil {
		return nil
	}
	total, evicted := lb.GetStats()
	lines, flushes := lb.spill.GetStats()
	lb.logger.Debug("Log buffer closed",
		zap.Uint64("total", total),
		zap.Uint64("evicted", evicted),
		zap.Uint64("spilled_lines", lines),
		zap.Uint64("spill_flushes", flushes))
	return lb.spill.Close()
}

// GetStats returns buffer statistics
func (lb *LogBuffer) GetStats() (total, evicted uint64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries, lb.spilledEntries
}
