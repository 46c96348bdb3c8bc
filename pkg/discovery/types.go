package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the mDNS service type for Quill endpoints.
	ServiceType = "_quill._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default Quill endpoint port.
	DefaultPort = 7411
)

// TXT record key constants.
const (
	// TXTKeyID is the endpoint identifier.
	TXTKeyID = "id"

	// TXTKeyScheme is the transport scheme ("tcp", "tls").
	TXTKeyScheme = "sc"

	// TXTKeyVersion is the protocol version.
	TXTKeyVersion = "vn"
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidVersion      = errors.New("invalid protocol version")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
)

// Endpoint describes a discovered (or advertised) Quill endpoint.
type Endpoint struct {
	// Instance is the mDNS instance name.
	Instance string

	// Host is the mDNS host name.
	Host string

	// Port is the endpoint port.
	Port uint16

	// Addresses are the resolved IP addresses (all interfaces).
	Addresses []string

	// ID is the endpoint identifier from the TXT record.
	ID string

	// Scheme is the transport scheme ("tcp" or "tls").
	Scheme string

	// Version is the protocol version from the TXT record.
	Version int
}

// Location returns a transport location URI for the endpoint,
// preferring a resolved address over the mDNS host name.
func (e *Endpoint) Location() string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = "tcp"
	}

	host := e.Host
	if len(e.Addresses) > 0 {
		host = e.Addresses[0]
	}

	port := e.Port
	if port == 0 {
		port = DefaultPort
	}

	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(int(port))))
}
