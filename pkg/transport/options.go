package transport

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quill-messaging/quill-go/pkg/log"
)

// Default option values.
const (
	// DefaultConnectTimeout bounds Connect when the caller's context
	// carries no deadline of its own.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultReadChunkSize is the size of the buffer used for socket reads.
	DefaultReadChunkSize = 32 * 1024

	// DefaultSendQueueDepth is the number of outbound buffers Send can
	// hand off before it briefly blocks on the writer goroutine.
	DefaultSendQueueDepth = 64
)

// Options configures a Transport. Immutable once a Transport has been
// constructed with it; the zero value is usable and is filled in with
// defaults by New.
type Options struct {
	// ConnectTimeout aborts Connect after this duration (default: 30s).
	ConnectTimeout time.Duration

	// SendBufferSize is a socket send-buffer hint in bytes (0 = OS default).
	SendBufferSize int

	// ReceiveBufferSize is a socket receive-buffer hint in bytes
	// (0 = OS default). Also used as the read chunk size when set.
	ReceiveBufferSize int

	// TCPNoDelay disables Nagle's algorithm (default: true).
	TCPNoDelay bool

	// TCPKeepAlive is the TCP-level keep-alive period (0 = disabled).
	TCPKeepAlive time.Duration

	// TLS carries the secure-channel parameters. Consulted only when
	// the location scheme selects a secure connection.
	TLS *TLSConfig

	// Logger receives diagnostic events (optional). Logging never
	// affects event ordering or error semantics.
	Logger log.Logger
}

// DefaultOptions returns the default transport options.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: DefaultConnectTimeout,
		TCPNoDelay:     true,
	}
}

// withDefaults fills zero-value fields.
func (o Options) withDefaults() Options {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	return o
}

// readChunkSize returns the buffer size for socket reads.
func (o Options) readChunkSize() int {
	if o.ReceiveBufferSize > 0 {
		return o.ReceiveBufferSize
	}
	return DefaultReadChunkSize
}

// optionsFile is the YAML representation of Options.
type optionsFile struct {
	ConnectTimeoutMs  int  `yaml:"connectTimeoutMs"`
	SendBufferSize    int  `yaml:"sendBufferSize"`
	ReceiveBufferSize int  `yaml:"receiveBufferSize"`
	TCPNoDelay        *bool `yaml:"tcpNoDelay"`
	TCPKeepAliveSec   int  `yaml:"tcpKeepAliveSec"`

	Secure *secureFile `yaml:"secure"`
}

// secureFile is the YAML representation of the secure-channel parameters.
type secureFile struct {
	Enabled            bool   `yaml:"enabled"`
	CAFile             string `yaml:"caFile"`
	CertFile           string `yaml:"certFile"`
	KeyFile            string `yaml:"keyFile"`
	ServerName         string `yaml:"serverName"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// LoadOptionsFile reads Options from a YAML file.
func LoadOptionsFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read options file: %w", err)
	}

	var f optionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Options{}, fmt.Errorf("failed to parse options file: %w", err)
	}

	opts := DefaultOptions()
	if f.ConnectTimeoutMs > 0 {
		opts.ConnectTimeout = time.Duration(f.ConnectTimeoutMs) * time.Millisecond
	}
	opts.SendBufferSize = f.SendBufferSize
	opts.ReceiveBufferSize = f.ReceiveBufferSize
	if f.TCPNoDelay != nil {
		opts.TCPNoDelay = *f.TCPNoDelay
	}
	if f.TCPKeepAliveSec > 0 {
		opts.TCPKeepAlive = time.Duration(f.TCPKeepAliveSec) * time.Second
	}

	if f.Secure != nil && f.Secure.Enabled {
		tlsCfg, err := loadSecureFile(f.Secure)
		if err != nil {
			return Options{}, err
		}
		opts.TLS = tlsCfg
	}

	return opts, nil
}
