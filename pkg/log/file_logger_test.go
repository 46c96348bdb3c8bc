package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.qlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	// File should exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.qlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	event := Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Category:     CategoryData,
		Data: &DataEvent{
			Size: 100,
			Data: []byte{1, 2, 3},
		},
	}

	logger.Log(event)
	logger.Close()

	// Read the file and decode
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	if len(data) == 0 {
		t.Fatal("log file is empty")
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("failed to decode logged event: %v", err)
	}
	if decoded.ConnectionID != "conn-123" {
		t.Errorf("ConnectionID = %q, want conn-123", decoded.ConnectionID)
	}
	if decoded.Data == nil || decoded.Data.Size != 100 {
		t.Error("data payload lost in log file")
	}
}

func TestFileLoggerAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.qlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{Timestamp: time.Now(), ConnectionID: "first"})
	logger.Close()

	logger, err = NewFileLogger(path)
	if err != nil {
		t.Fatalf("reopening log file failed: %v", err)
	}
	logger.Log(Event{Timestamp: time.Now(), ConnectionID: "second"})
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	first, err := reader.Next()
	if err != nil {
		t.Fatalf("reading first event failed: %v", err)
	}
	second, err := reader.Next()
	if err != nil {
		t.Fatalf("reading second event failed: %v", err)
	}

	if first.ConnectionID != "first" || second.ConnectionID != "second" {
		t.Errorf("events out of order: %q, %q", first.ConnectionID, second.ConnectionID)
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.qlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	// Log after close is silently ignored
	logger.Log(Event{Timestamp: time.Now(), ConnectionID: "dropped"})
}

func TestFileLoggerConcurrentUse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.qlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				logger.Log(Event{Timestamp: time.Now(), ConnectionID: "conn"})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err != nil {
			break
		}
		count++
	}
	if count != 400 {
		t.Errorf("got %d events, want 400", count)
	}
}
