package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// jsonlEvent is the wire shape of one event per line. Timestamps travel
// as RFC 3339 strings.
type jsonlEvent struct {
	CaseID     string         `json:"case_id"`
	Activity   string         `json:"activity"`
	Timestamp  time.Time      `json:"timestamp"`
	Resource   string         `json:"resource,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ReadJSONL parses an event log with one JSON event object per line.
// Blank lines are skipped; traces come back sorted by timestamp.
func ReadJSONL(r io.Reader) (*Log, error) {
	log := NewLog()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		var rec jsonlEvent
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("jsonl: line %d: %w", line, err)
		}
		if rec.CaseID == "" {
			return nil, fmt.Errorf("jsonl: line %d: missing case_id", line)
		}
		if rec.Activity == "" {
			return nil, fmt.Errorf("jsonl: line %d: missing activity", line)
		}
		if rec.Timestamp.IsZero() {
			return nil, fmt.Errorf("jsonl: line %d: missing timestamp", line)
		}
		attrs := rec.Attributes
		if attrs == nil {
			attrs = make(map[string]any)
		}
		log.AddEvent(Event{
			CaseID:     rec.CaseID,
			Activity:   rec.Activity,
			Timestamp:  rec.Timestamp,
			Resource:   rec.Resource,
			Attributes: attrs,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: %w", err)
	}
	log.SortTraces()
	return log, nil
}

// WriteJSONL writes the log one event per line, traces in case-ID order.
// The output round-trips through ReadJSONL.
func WriteJSONL(w io.Writer, log *Log) error {
	enc := json.NewEncoder(w)
	for _, trace := range log.Traces() {
		for _, e := range trace.Events {
			rec := jsonlEvent{
				CaseID:    e.CaseID,
				Activity:  e.Activity,
				Timestamp: e.Timestamp,
				Resource:  e.Resource,
			}
			if len(e.Attributes) > 0 {
				rec.Attributes = e.Attributes
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("jsonl: case %s: %w", e.CaseID, err)
			}
		}
	}
	return nil
}
