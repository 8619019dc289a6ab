package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig holds TLS/mTLS configuration for the HTTP server
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Server private key file (PEM)
	CAFile   string `mapstructure:"caFile"`   // CA certificate for client cert verification (mutual mode)

	MinVersion       string `mapstructure:"minVersion"`       // "1.2" or "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"
}

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS

	switch t.Mode {
	case "disabled":
		return nil
	case "server":
		if t.CertFile == "" || t.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required for server mode")
		}
	case "mutual":
		if t.CertFile == "" || t.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required for mutual mode")
		}
		if t.CAFile == "" {
			return fmt.Errorf("CA certificate file is required for mutual TLS mode")
		}
		switch t.ClientAuthPolicy {
		case "require", "request", "verify", "":
		default:
			return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", t.ClientAuthPolicy)
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	switch t.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}

	return nil
}

// BuildTLSConfig constructs a tls.Config for the configured mode.
// Returns nil for "disabled".
func (t *TLSConfig) BuildTLSConfig() (*tls.Config, error) {
	if t.Mode == "disabled" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   t.minVersion(),
	}

	if t.Mode == "mutual" {
		caPEM, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse CA certificate from %s", t.CAFile)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = t.clientAuthType()
	}

	return tlsConfig, nil
}

func (t *TLSConfig) minVersion() uint16 {
	if t.MinVersion == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func (t *TLSConfig) clientAuthType() tls.ClientAuthType {
	switch t.ClientAuthPolicy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
