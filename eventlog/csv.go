package eventlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// CSVConfig maps log columns and controls parsing.
type CSVConfig struct {
	CaseIDColumn     string   // column name for the case ID (required)
	ActivityColumn   string   // column name for the activity (required)
	TimestampColumn  string   // column name for the timestamp (required)
	ResourceColumn   string   // column name for the resource (optional)
	TimestampLayouts []string // layouts to try, in order
	Delimiter        rune     // default comma
	SkipRows         int      // rows to discard before the header
}

// DefaultCSVConfig returns a configuration with common defaults.
func DefaultCSVConfig() CSVConfig {
	return CSVConfig{
		CaseIDColumn:    "case_id",
		ActivityColumn:  "activity",
		TimestampColumn: "timestamp",
		ResourceColumn:  "resource",
		TimestampLayouts: []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05.000",
			"2006-01-02",
			"01/02/2006 15:04:05",
			"01/02/2006",
		},
		Delimiter: ',',
	}
}

// ReadCSV parses an event log from CSV data. The first row after SkipRows
// is the header; configured columns are matched case-insensitively. Columns
// beyond the configured ones land in Event.Attributes, numbers as float64.
// Traces come back sorted by timestamp.
func ReadCSV(r io.Reader, config CSVConfig) (*Log, error) {
	if config.CaseIDColumn == "" || config.ActivityColumn == "" || config.TimestampColumn == "" {
		return nil, fmt.Errorf("csv: case ID, activity and timestamp columns are required")
	}
	if len(config.TimestampLayouts) == 0 {
		config.TimestampLayouts = DefaultCSVConfig().TimestampLayouts
	}

	reader := csv.NewReader(r)
	if config.Delimiter != 0 {
		reader.Comma = config.Delimiter
	}

	for i := 0; i < config.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("csv: skipping row %d: %w", i+1, err)
		}
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: reading header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	column := func(name string) (int, error) {
		idx, ok := colIndex[strings.ToLower(name)]
		if !ok {
			return -1, fmt.Errorf("csv: column %q not found in header %v", name, header)
		}
		return idx, nil
	}

	caseIdx, err := column(config.CaseIDColumn)
	if err != nil {
		return nil, err
	}
	activityIdx, err := column(config.ActivityColumn)
	if err != nil {
		return nil, err
	}
	timestampIdx, err := column(config.TimestampColumn)
	if err != nil {
		return nil, err
	}
	resourceIdx := -1
	if config.ResourceColumn != "" {
		if idx, ok := colIndex[strings.ToLower(config.ResourceColumn)]; ok {
			resourceIdx = idx
		}
	}

	log := NewLog()
	line := config.SkipRows + 1 // header consumed
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		if len(record) <= caseIdx || len(record) <= activityIdx || len(record) <= timestampIdx {
			return nil, fmt.Errorf("csv: line %d: missing columns", line)
		}

		caseID := strings.TrimSpace(record[caseIdx])
		activity := strings.TrimSpace(record[activityIdx])
		if caseID == "" {
			return nil, fmt.Errorf("csv: line %d: empty case ID", line)
		}
		if activity == "" {
			return nil, fmt.Errorf("csv: line %d: empty activity", line)
		}
		raw := strings.TrimSpace(record[timestampIdx])
		timestamp, err := parseTimestamp(raw, config.TimestampLayouts)
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: timestamp %q: %w", line, raw, err)
		}

		event := Event{
			CaseID:     caseID,
			Activity:   activity,
			Timestamp:  timestamp,
			Attributes: make(map[string]any),
		}
		if resourceIdx >= 0 && len(record) > resourceIdx {
			event.Resource = strings.TrimSpace(record[resourceIdx])
		}
		for i, value := range record {
			if i == caseIdx || i == activityIdx || i == timestampIdx || i == resourceIdx {
				continue
			}
			name := strings.TrimSpace(header[i])
			value = strings.TrimSpace(value)
			if name == "" || value == "" {
				continue
			}
			if num, err := strconv.ParseFloat(value, 64); err == nil {
				event.Attributes[name] = num
			} else {
				event.Attributes[name] = value
			}
		}
		log.AddEvent(event)
	}

	log.SortTraces()
	return log, nil
}

// parseTimestamp tries each layout in order.
func parseTimestamp(s string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched")
}
