package eventlog

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestReadJSONL(t *testing.T) {
	data := `{"case_id":"c1","activity":"Start","timestamp":"2024-01-01T10:00:00Z"}
{"case_id":"c1","activity":"End","timestamp":"2024-01-01T11:00:00Z","resource":"alice","attributes":{"amount":100.5,"priority":"high"}}

{"case_id":"c2","activity":"Start","timestamp":"2024-01-01T10:15:00Z"}`

	log, err := ReadJSONL(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadJSONL failed: %v", err)
	}
	if log.NumCases() != 2 {
		t.Errorf("expected 2 cases, got %d", log.NumCases())
	}
	if log.NumEvents() != 3 {
		t.Errorf("expected 3 events, got %d", log.NumEvents())
	}

	end := log.Cases["c1"].Events[1]
	if end.Activity != "End" || end.Resource != "alice" {
		t.Errorf("unexpected event %q by %q", end.Activity, end.Resource)
	}
	if amount, ok := end.Attributes["amount"].(float64); !ok || amount != 100.5 {
		t.Errorf("expected amount 100.5, got %v", end.Attributes["amount"])
	}
	if priority, ok := end.Attributes["priority"].(string); !ok || priority != "high" {
		t.Errorf("expected priority %q, got %v", "high", end.Attributes["priority"])
	}
	want := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	if !end.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, end.Timestamp)
	}
}

func TestReadJSONLErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"invalid json", `{"case_id":`},
		{"missing case id", `{"activity":"A","timestamp":"2024-01-01T10:00:00Z"}`},
		{"missing activity", `{"case_id":"c1","timestamp":"2024-01-01T10:00:00Z"}`},
		{"missing timestamp", `{"case_id":"c1","activity":"A"}`},
		{"bad timestamp", `{"case_id":"c1","activity":"A","timestamp":"noonish"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadJSONL(strings.NewReader(tc.data)); err == nil {
				t.Error("expected error, got nil")
			} else {
				t.Logf("got: %v", err)
			}
		})
	}
}

func TestWriteJSONLRoundTrip(t *testing.T) {
	log := NewLog()
	log.AddEvent(Event{
		CaseID:     "c2",
		Activity:   "Pay",
		Timestamp:  time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		Resource:   "cashier",
		Attributes: map[string]any{"amount": 12.5},
	})
	log.AddEvent(Event{
		CaseID:     "c1",
		Activity:   "Order",
		Timestamp:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Resource:   "waiter",
		Attributes: map[string]any{},
	})
	log.AddEvent(Event{
		CaseID:     "c1",
		Activity:   "Serve",
		Timestamp:  time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Resource:   "waiter",
		Attributes: map[string]any{"table": "7"},
	})

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, log); err != nil {
		t.Fatalf("WriteJSONL failed: %v", err)
	}
	out := buf.String()

	// Cases are emitted in ID order regardless of insertion order.
	if strings.Index(out, `"c1"`) > strings.Index(out, `"c2"`) {
		t.Errorf("expected c1 lines before c2 lines:\n%s", out)
	}

	back, err := ReadJSONL(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ReadJSONL failed: %v", err)
	}
	if back.NumCases() != log.NumCases() || back.NumEvents() != log.NumEvents() {
		t.Errorf("round trip changed shape: %d/%d cases, %d/%d events",
			back.NumCases(), log.NumCases(), back.NumEvents(), log.NumEvents())
	}
	variant := back.Cases["c1"].ActivityVariant()
	if !reflect.DeepEqual(variant, []string{"Order", "Serve"}) {
		t.Errorf("expected variant [Order Serve], got %v", variant)
	}
	if got := back.Resources(); !reflect.DeepEqual(got, []string{"waiter", "cashier"}) {
		t.Errorf("expected resources [waiter cashier], got %v", got)
	}

	// Writing the parsed log again reproduces the bytes.
	var again bytes.Buffer
	if err := WriteJSONL(&again, back); err != nil {
		t.Fatalf("WriteJSONL failed: %v", err)
	}
	if again.String() != out {
		t.Errorf("second write differs from first:\n%s\nvs\n%s", again.String(), out)
	}
}
