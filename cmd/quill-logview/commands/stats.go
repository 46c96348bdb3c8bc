package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/quill-messaging/quill-go/pkg/log"
)

// Stats summarizes the contents of a log file.
type Stats struct {
	TotalEvents int

	DataEvents  int
	StateEvents int
	ErrorEvents int

	BytesIn  int
	BytesOut int

	Connections map[string]int

	FirstEvent time.Time
	LastEvent  time.Time
}

// CollectStats reads the log file at path and aggregates statistics.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	stats := &Stats{Connections: make(map[string]int)}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.Connections[event.ConnectionID]++

		if stats.FirstEvent.IsZero() || event.Timestamp.Before(stats.FirstEvent) {
			stats.FirstEvent = event.Timestamp
		}
		if event.Timestamp.After(stats.LastEvent) {
			stats.LastEvent = event.Timestamp
		}

		switch event.Category {
		case log.CategoryData:
			stats.DataEvents++
			if event.Data != nil {
				if event.Direction == log.DirectionIn {
					stats.BytesIn += event.Data.Size
				} else {
					stats.BytesOut += event.Data.Size
				}
			}
		case log.CategoryState:
			stats.StateEvents++
		case log.CategoryError:
			stats.ErrorEvents++
		}
	}
}

// WriteStats writes the statistics to w in human-readable form.
func WriteStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Events:       %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "  data:       %d\n", stats.DataEvents)
	fmt.Fprintf(w, "  state:      %d\n", stats.StateEvents)
	fmt.Fprintf(w, "  error:      %d\n", stats.ErrorEvents)
	fmt.Fprintf(w, "Bytes in:     %d\n", stats.BytesIn)
	fmt.Fprintf(w, "Bytes out:    %d\n", stats.BytesOut)
	fmt.Fprintf(w, "Connections:  %d\n", len(stats.Connections))

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time span:    %s to %s (%s)\n",
			stats.FirstEvent.UTC().Format(time.RFC3339),
			stats.LastEvent.UTC().Format(time.RFC3339),
			stats.LastEvent.Sub(stats.FirstEvent).Round(time.Millisecond))
	}
}
