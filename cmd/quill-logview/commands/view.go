// Package commands implements the quill-logview CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/quill-messaging/quill-go/pkg/log"
)

// ParseDirectionFlag converts a -direction flag value to a Direction.
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction %q (want in or out)", s)
	}
}

// ParseCategoryFlag converts a -category flag value to a Category.
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "data":
		return log.CategoryData, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category %q (want data, state or error)", s)
	}
}

// View reads the log file at path and writes matching events to w in
// human-readable form.
func View(w io.Writer, path string, filter log.Filter) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	var typeLabel string
	switch {
	case event.Data != nil:
		typeLabel = "Data"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s\n", ts, connID, event.Direction, typeLabel)

	switch {
	case event.Data != nil:
		formatDataDetails(w, event.Data)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDataDetails(w io.Writer, d *log.DataEvent) {
	fmt.Fprintf(w, "  size: %d bytes", d.Size)
	if d.Truncated {
		fmt.Fprint(w, " (payload truncated)")
	}
	fmt.Fprintln(w)

	if len(d.Data) > 0 {
		fmt.Fprintf(w, "  data: %s\n", hexPreview(d.Data, 32))
	}
}

func formatStateChangeDetails(w io.Writer, s *log.StateChangeEvent) {
	if s.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s", s.OldState, s.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s", s.NewState)
	}
	if s.Reason != "" {
		fmt.Fprintf(w, " (%s)", s.Reason)
	}
	fmt.Fprintln(w)
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  error: %s", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, " [%s]", e.Context)
	}
	fmt.Fprintln(w)
}

// hexPreview renders up to max bytes of data as hex.
func hexPreview(data []byte, max int) string {
	if len(data) <= max {
		return hex.EncodeToString(data)
	}
	return hex.EncodeToString(data[:max]) + "..."
}
