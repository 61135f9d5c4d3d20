// internal/monitor/journal.go
package monitor

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/logger"
	"go.uber.org/zap"
)

// JournalEntry records one dispatched announcement.
type JournalEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	RaffleID  string    `json:"raffle_id"`
	Name      string    `json:"name"`
	Outcome   Outcome   `json:"outcome"`
	Media     bool      `json:"media"`
	Error     string    `json:"error,omitempty"`
}

// JournalHeaders is the CSV header row matching CSVRecord.
func JournalHeaders() []string {
	return []string{"timestamp", "kind", "key", "raffle_id", "name", "outcome", "media", "error"}
}

// CSVRecord renders the entry as one CSV row.
func (e JournalEntry) CSVRecord() []string {
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Kind,
		e.Key,
		e.RaffleID,
		e.Name,
		e.Outcome.String(),
		strconv.FormatBool(e.Media),
		e.Error,
	}
}

// JournalStats summarises the journal.
type JournalStats struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	// Persisted counts rows written to the CSV file.
	Persisted uint64 `json:"persisted,omitempty"`
}

// Journal keeps recent announcements in memory and, when a path is set,
// appends every one of them to a CSV file.
type Journal struct {
	mu         sync.RWMutex
	csvWriter  *logger.SafeCSVWriter
	entries    []JournalEntry
	maxEntries int
	stats      JournalStats
	logger     *zap.Logger
}

// NewJournal creates a journal. An empty csvPath keeps it in memory only.
func NewJournal(csvPath string, maxEntries int, zapLogger *zap.Logger) (*Journal, error) {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	j := &Journal{
		entries:    make([]JournalEntry, 0, maxEntries),
		maxEntries: maxEntries,
		logger:     zapLogger.Named("journal"),
	}
	if csvPath == "" {
		return j, nil
	}

	csvWriter, err := logger.NewSafeCSVWriter(csvPath, JournalHeaders(), 30*time.Second, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}
	j.csvWriter = csvWriter
	j.logger.Info("Announcement journal initialized", zap.String("csv_file", csvPath))
	return j, nil
}

// Record appends an entry.
func (j *Journal) Record(entry JournalEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if j.csvWriter != nil {
		if err := j.csvWriter.WriteRecord(entry.CSVRecord()); err != nil {
			j.logger.Error("Failed to write announcement to CSV",
				zap.String("key", entry.Key),
				zap.Error(err))
		}
	}

	if len(j.entries) >= j.maxEntries {
		j.entries = j.entries[1:]
	}
	j.entries = append(j.entries, entry)

	j.stats.Total++
	switch entry.Outcome {
	case OutcomeDelivered:
		j.stats.Delivered++
	case OutcomeFailed:
		j.stats.Failed++
	}
}

// Recent returns up to limit entries, newest last.
func (j *Journal) Recent(limit int) []JournalEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 || limit > len(j.entries) {
		limit = len(j.entries)
	}
	result := make([]JournalEntry, limit)
	copy(result, j.entries[len(j.entries)-limit:])
	return result
}

// Stats returns the running totals.
func (j *Journal) Stats() JournalStats {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stats := j.stats
	if j.csvWriter != nil {
		stats.Persisted, _ = j.csvWriter.GetStats()
	}
	return stats
}

// Close flushes the CSV file.
func (j *Journal) Close() error {
	if j.csvWriter == nil {
		return nil
	}
	return j.csvWriter.Close()
}
