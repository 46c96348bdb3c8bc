package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for Find.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}

// MDNSBrowser browses for Quill endpoints via zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &MDNSBrowser{config: config}
}

// Browse searches for endpoints until the context is cancelled.
// The returned channel is closed when browsing completes. Services
// seen on multiple interfaces are emitted once, keyed by instance name.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Endpoint, error) {
	out := make(chan *Endpoint)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go func() {
		defer close(out)

		seen := make(map[string]struct{})

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				ep := entryToEndpoint(entry)
				if ep == nil {
					continue
				}

				if _, found := seen[ep.Instance]; found {
					continue
				}
				seen[ep.Instance] = struct{}{}

				select {
				case out <- ep:
				case <-ctx.Done():
					return
				}

			case _, ok := <-removed:
				if !ok {
					continue
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// Find searches for a specific endpoint by instance name.
// Returns ErrNotFound when the browse timeout elapses first.
func (b *MDNSBrowser) Find(ctx context.Context, instance string) (*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	endpoints, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for ep := range endpoints {
		if ep.Instance == instance {
			return ep, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, instance)
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToEndpoint converts a zeroconf entry to an Endpoint.
func entryToEndpoint(entry *zeroconf.ServiceEntry) *Endpoint {
	txt := StringsToTXTRecords(entry.Text)
	ep, err := DecodeEndpointTXT(txt)
	if err != nil {
		return nil
	}

	// Collect addresses
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	ep.Instance = entry.Instance
	ep.Host = entry.HostName
	ep.Port = uint16(entry.Port)
	ep.Addresses = addrs

	return ep
}
