package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func slogBuffer() (*SlogAdapter, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogAdapter(slog.New(handler)), &buf
}

func TestSlogAdapterLogsDataEvent(t *testing.T) {
	adapter, buf := slogBuffer()

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Category:     CategoryData,
		Data: &DataEvent{
			Size: 256,
			Data: []byte{0x01, 0x02},
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	// Parse JSON log entry
	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	// Verify key fields
	if logEntry["conn_id"] != "conn-123" {
		t.Errorf("conn_id: got %v, want %q", logEntry["conn_id"], "conn-123")
	}
	if logEntry["direction"] != "IN" {
		t.Errorf("direction: got %v, want %q", logEntry["direction"], "IN")
	}
	if logEntry["category"] != "DATA" {
		t.Errorf("category: got %v, want %q", logEntry["category"], "DATA")
	}
	if logEntry["size"] != float64(256) {
		t.Errorf("size: got %v, want 256", logEntry["size"])
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	adapter, buf := slogBuffer()

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-456",
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "DISCONNECTED",
			NewState: "CONNECTING",
		},
	})

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if logEntry["old_state"] != "DISCONNECTED" {
		t.Errorf("old_state: got %v, want DISCONNECTED", logEntry["old_state"])
	}
	if logEntry["new_state"] != "CONNECTING" {
		t.Errorf("new_state: got %v, want CONNECTING", logEntry["new_state"])
	}
}

func TestSlogAdapterLogsError(t *testing.T) {
	adapter, buf := slogBuffer()

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-789",
		Category:     CategoryError,
		Error: &ErrorEventData{
			Message: "broken pipe",
			Context: "write",
		},
	})

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if logEntry["error_msg"] != "broken pipe" {
		t.Errorf("error_msg: got %v, want broken pipe", logEntry["error_msg"])
	}
	if logEntry["error_context"] != "write" {
		t.Errorf("error_context: got %v, want write", logEntry["error_context"])
	}
}
