package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
)

// TLSConfig enables HTTPS on the moderation API. With EnableMTLS set, callers
// must present a certificate signed by CACert.
type TLSConfig struct {
	Disabled            bool     `mapstructure:"disabled"`
	EnableMTLS          bool     `mapstructure:"enable_mtls"`
	DisableSystemCAPool bool     `mapstructure:"disable_system_ca_pool"`
	CACert              string   `mapstructure:"ca_cert"`
	Keys                TLSKeys  `mapstructure:"keys"`
	CipherSuites        []uint16 `mapstructure:"cipher_suites"`
	CurvePreferences    []uint16 `mapstructure:"curve_preferences"`
	MinVersion          string   `mapstructure:"min_version"`
	MaxVersion          string   `mapstructure:"max_version"`
}

type TLSKeys struct {
	PublicKey  string `mapstructure:"public_key"`
	PrivateKey string `mapstructure:"private_key"`
}

func BuildTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil || cfg.Disabled {
		return nil, nil
	}

	pub, err := resolvePath(cfg.Keys.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("resolve public key path: %w", err)
	}
	private, err := resolvePath(cfg.Keys.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("resolve private key path: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(pub, private)
	if err != nil {
		return nil, fmt.Errorf("load X509 key pair: %w", err)
	}

	var clientCAs *x509.CertPool
	if cfg.DisableSystemCAPool {
		clientCAs = x509.NewCertPool()
	} else {
		clientCAs, err = x509.SystemCertPool()
		if err != nil {
			return nil, err
		}
	}

	if cfg.CACert != "" {
		caPath, err := resolvePath(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("resolve CA cert path: %w", err)
		}
		caBytes, err := os.ReadFile(caPath) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		if ok := clientCAs.AppendCertsFromPEM(caBytes); !ok {
			return nil, fmt.Errorf("failed to append CA certificate from %s", cfg.CACert)
		}
	}

	var curvePrefs []tls.CurveID
	for _, c := range cfg.CurvePreferences {
		curvePrefs = append(curvePrefs, tls.CurveID(c))
	}

	config := &tls.Config{
		Certificates:     []tls.Certificate{cert},
		MinVersion:       tlsVersion(cfg.MinVersion, tls.VersionTLS12),
		MaxVersion:       tlsVersion(cfg.MaxVersion, tls.VersionTLS13),
		CurvePreferences: curvePrefs,
		CipherSuites:     cfg.CipherSuites,
		ClientCAs:        clientCAs,
	}
	if cfg.EnableMTLS {
		config.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return config, nil
}

// resolvePath anchors relative paths at the working directory.
func resolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, path), nil
}

func tlsVersion(version string, fallback uint16) uint16 {
	switch version {
	case "TLS12":
		return tls.VersionTLS12
	case "TLS13":
		return tls.VersionTLS13
	default:
		return fallback
	}
}
