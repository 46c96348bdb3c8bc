package log

// MultiLogger fans each event out to a set of loggers, in the order
// they were passed to NewMultiLogger. quill-probe uses it to capture a
// CBOR file with FileLogger while echoing events to the console
// through a SlogAdapter.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger over the given loggers. An
// empty set is valid and behaves like NoopLogger.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log forwards the event to every logger in order. Thread safety is
// delegated to the individual loggers.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
