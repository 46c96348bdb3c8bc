// Package log provides diagnostic event logging for the transport layer.
//
// Events are compact CBOR records describing connection state changes,
// raw data movement and transport errors, keyed by connection ID.
// Logging is a side concern: the transport emits events if a Logger is
// configured, and delivery order or error semantics of the transport
// are never affected by it.
//
// Implementations:
//   - FileLogger writes a CBOR event stream to a file
//   - SlogAdapter mirrors events into a slog.Logger for development
//   - MultiLogger fans out to several loggers
//   - Reader decodes a recorded stream back into events
package log
