package log

import (
	"time"
)

// Event represents a transport diagnostic event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates data flow for data events.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// RemoteAddr is the peer address (host:port).
	RemoteAddr string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Data        *DataEvent        `cbor:"6,keyasint,omitempty"` // Raw bytes moved
	StateChange *StateChangeEvent `cbor:"7,keyasint,omitempty"` // Connection state
	Error       *ErrorEventData   `cbor:"8,keyasint,omitempty"` // Transport errors
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates inbound data.
	DirectionIn Direction = 0
	// DirectionOut indicates outbound data.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryData indicates raw bytes read from or written to the connection.
	CategoryData Category = 0
	// CategoryState indicates a connection state change.
	CategoryState Category = 1
	// CategoryError indicates a transport error.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DataEvent captures raw bytes at the transport layer.
type DataEvent struct {
	// Size is the full payload size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the payload, possibly truncated for large payloads.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates Data holds only a prefix of the payload.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures a connection state transition.
type StateChangeEvent struct {
	// OldState is the state before the transition.
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the state after the transition.
	NewState string `cbor:"2,keyasint"`

	// Reason describes what caused the transition (optional).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures a transport error.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context gives additional detail about where the error occurred.
	Context string `cbor:"2,keyasint,omitempty"`
}
