package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/monitor"
	"go.uber.org/zap"
)

// ErrNoEntries is returned when nothing matches the export filters.
var ErrNoEntries = errors.New("no announcements match the export criteria")

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json"; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Options configures the export behavior
type Options struct {
	Format        Format
	StartTime     time.Time
	EndTime       time.Time
	Kind          string // creation or winner
	RaffleID      string
	OnlyDelivered bool
}

// Exporter writes announcement journal entries as CSV or JSON.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Filter applies options to entries and sorts the result oldest first.
func (e *Exporter) Filter(entries []monitor.JournalEntry, options Options) []monitor.JournalEntry {
	var filtered []monitor.JournalEntry
	for _, entry := range entries {
		if !options.StartTime.IsZero() && entry.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !entry.Timestamp.Before(options.EndTime) {
			continue
		}
		if options.Kind != "" && entry.Kind != options.Kind {
			continue
		}
		if options.RaffleID != "" && entry.RaffleID != options.RaffleID {
			continue
		}
		if options.OnlyDelivered && entry.Outcome != monitor.OutcomeDelivered {
			continue
		}
		filtered = append(filtered, entry)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})
	return filtered
}

// Write streams the filtered entries to w.
func (e *Exporter) Write(w io.Writer, entries []monitor.JournalEntry, options Options) (int, error) {
	filtered := e.Filter(entries, options)
	if len(filtered) == 0 {
		return 0, ErrNoEntries
	}

	var err error
	switch options.Format {
	case FormatCSV, "":
		err = writeCSV(w, filtered)
	case FormatJSON:
		err = e.writeJSON(w, filtered)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	return len(filtered), err
}

func writeCSV(w io.Writer, entries []monitor.JournalEntry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(monitor.JournalHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, entry := range entries {
		if err := writer.Write(entry.CSVRecord()); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (e *Exporter) writeJSON(w io.Writer, entries []monitor.JournalEntry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	data := struct {
		ExportTime time.Time              `json:"export_time"`
		Count      int                    `json:"count"`
		Summary    Summary                `json:"summary"`
		Entries    []monitor.JournalEntry `json:"entries"`
	}{
		ExportTime: e.now().UTC(),
		Count:      len(entries),
		Summary:    Summarize(entries),
		Entries:    entries,
	}
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary contains statistics for exported announcements
type Summary struct {
	Total         int       `json:"total"`
	Delivered     int       `json:"delivered"`
	Failed        int       `json:"failed"`
	Creations     int       `json:"creations"`
	Winners       int       `json:"winners"`
	WithMedia     int       `json:"with_media"`
	UniqueRaffles int       `json:"unique_raffles"`
	DeliveryRate  float64   `json:"delivery_rate"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
}

// Summarize expects entries sorted oldest first.
func Summarize(entries []monitor.JournalEntry) Summary {
	summary := Summary{Total: len(entries)}
	if len(entries) == 0 {
		return summary
	}
	summary.StartDate = entries[0].Timestamp
	summary.EndDate = entries[len(entries)-1].Timestamp

	raffles := make(map[string]bool)
	for _, entry := range entries {
		if entry.RaffleID != "" {
			raffles[entry.RaffleID] = true
		}
		switch entry.Outcome {
		case monitor.OutcomeDelivered:
			summary.Delivered++
		case monitor.OutcomeFailed:
			summary.Failed++
		}
		switch entry.Kind {
		case monitor.KindCreation:
			summary.Creations++
		case monitor.KindWinner:
			summary.Winners++
		}
		if entry.Media {
			summary.WithMedia++
		}
	}
	summary.UniqueRaffles = len(raffles)
	summary.DeliveryRate = float64(summary.Delivered) / float64(summary.Total) * 100
	return summary
}

// DailyReport groups one day of announcements by hour.
type DailyReport struct {
	Date            time.Time              `json:"date"`
	Summary         Summary                `json:"summary"`
	HourlyBreakdown []HourlyStats          `json:"hourly_breakdown"`
	Entries         []monitor.JournalEntry `json:"entries"`
}

// HourlyStats counts announcements within one hour
type HourlyStats struct {
	Hour      int `json:"hour"`
	Creations int `json:"creations"`
	Winners   int `json:"winners"`
	Failed    int `json:"failed"`
}

// BuildDailyReport collects the day containing date. ok is false when the
// day has no announcements.
func (e *Exporter) BuildDailyReport(entries []monitor.JournalEntry, date time.Time) (report DailyReport, ok bool) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	filtered := e.Filter(entries, Options{StartTime: startOfDay, EndTime: startOfDay.Add(24 * time.Hour)})
	if len(filtered) == 0 {
		return DailyReport{Date: startOfDay}, false
	}
	return DailyReport{
		Date:            startOfDay,
		Summary:         Summarize(filtered),
		HourlyBreakdown: hourlyBreakdown(filtered),
		Entries:         filtered,
	}, true
}

// ExportDailyReport writes daily_report_<date>.json into outputDir.
// It returns "" when the day has no announcements.
func (e *Exporter) ExportDailyReport(entries []monitor.JournalEntry, date time.Time, outputDir string) (string, error) {
	report, ok := e.BuildDailyReport(entries, date)
	if !ok {
		e.logger.Info("No announcements for daily report", zap.Time("date", report.Date))
		return "", nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", report.Date.Format("20060102")))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	e.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", report.Date),
		zap.Int("announcements", len(report.Entries)))
	return outputPath, nil
}

func hourlyBreakdown(entries []monitor.JournalEntry) []HourlyStats {
	hourly := make(map[int]*HourlyStats)
	for _, entry := range entries {
		hour := entry.Timestamp.Hour()
		stats, ok := hourly[hour]
		if !ok {
			stats = &HourlyStats{Hour: hour}
			hourly[hour] = stats
		}
		switch entry.Kind {
		case monitor.KindCreation:
			stats.Creations++
		case monitor.KindWinner:
			stats.Winners++
		}
		if entry.Outcome == monitor.OutcomeFailed {
			stats.Failed++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, ok := hourly[hour]; ok {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
