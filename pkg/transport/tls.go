package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig holds the secure-channel parameters for a Transport.
type TLSConfig struct {
	// Certificate is the client certificate presented to the server.
	// Optional; leave zero when the server does not require one.
	Certificate tls.Certificate

	// RootCAs is the pool of trusted CA certificates for verifying the
	// server. Nil uses the host's root set.
	RootCAs *x509.CertPool

	// ServerName is the expected server name for certificate
	// verification and SNI. Defaults to the location host.
	ServerName string

	// ALPN lists the application protocols to negotiate (optional).
	ALPN []string

	// MinVersion is the minimum TLS version (default: TLS 1.3).
	MinVersion uint16

	// InsecureSkipVerify disables certificate verification.
	// Only for testing - never use in production!
	InsecureSkipVerify bool

	// VerifyPeerCertificate is an optional callback for custom certificate verification.
	VerifyPeerCertificate func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error
}

// newClientTLSConfig builds the crypto/tls configuration for a secure
// transport connecting to host.
func newClientTLSConfig(cfg *TLSConfig, host string) *tls.Config {
	if cfg == nil {
		cfg = &TLSConfig{}
	}

	minVersion := cfg.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS13
	}

	serverName := cfg.ServerName
	if serverName == "" {
		serverName = host
	}

	tlsConf := &tls.Config{
		MinVersion: minVersion,

		RootCAs: cfg.RootCAs,

		ServerName: serverName,

		NextProtos: cfg.ALPN,

		// Curve preferences for key exchange
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		VerifyPeerCertificate: cfg.VerifyPeerCertificate,

		// For testing only
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if len(cfg.Certificate.Certificate) > 0 {
		tlsConf.Certificates = []tls.Certificate{cfg.Certificate}
	}

	return tlsConf
}

// loadSecureFile builds a TLSConfig from the YAML secure section.
func loadSecureFile(f *secureFile) (*TLSConfig, error) {
	cfg := &TLSConfig{
		ServerName:         f.ServerName,
		InsecureSkipVerify: f.InsecureSkipVerify,
	}

	if f.CAFile != "" {
		pem, err := os.ReadFile(f.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no CA certificates found in %s", f.CAFile)
		}
		cfg.RootCAs = pool
	}

	if f.CertFile != "" || f.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(f.CertFile, f.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificate = cert
	}

	return cfg, nil
}
