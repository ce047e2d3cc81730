// Copyright (C) 2020  Lukas Dietrich <lukas@lukasdietrich.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package certs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/wire"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/briefpost/internal/log"
)

// WireSet provides the client tls config.
var WireSet = wire.NewSet(
	TLSOptionsFromViper,
	NewTLSConfig,
)

const (
	sourceNone  = "none"
	sourceFiles = "files"
)

func init() {
	viper.SetDefault("tls.source", sourceNone)
	viper.SetDefault("tls.insecure", false)
	viper.SetDefault("tls.files.ca", "")
	viper.SetDefault("tls.files.crt", "")
	viper.SetDefault("tls.files.key", "")
}

var (
	errMissingKeyPair = errors.New("certs: both certificate and key are required")
	errNoCertificates = errors.New("certs: no certificates found in ca file")
)

// TLSOptions configure the tls config used for STARTTLS.
type TLSOptions struct {
	// Source is either "none" or "files".
	Source string
	// Insecure disables the verification of server certificates.
	Insecure bool
	// CAFilename is a pem bundle replacing the system roots.
	CAFilename string
	// CertFilename and KeyFilename are an optional client certificate.
	CertFilename string
	KeyFilename  string
}

// TLSOptionsFromViper reads the options from the "tls" keys.
func TLSOptionsFromViper() TLSOptions {
	return TLSOptions{
		Source:       viper.GetString("tls.source"),
		Insecure:     viper.GetBool("tls.insecure"),
		CAFilename:   viper.GetString("tls.files.ca"),
		CertFilename: viper.GetString("tls.files.crt"),
		KeyFilename:  viper.GetString("tls.files.key"),
	}
}

type certSource interface {
	lastUpdate() (time.Time, error)
	load() (*tls.Certificate, error)
}

// newCertSource returns nil, if no client certificate is configured.
func newCertSource(fs afero.Fs, opts TLSOptions) (certSource, error) {
	switch opts.Source {
	case sourceNone, "":
		return nil, nil
	case sourceFiles:
		if opts.CertFilename == "" || opts.KeyFilename == "" {
			return nil, errMissingKeyPair
		}

		return newFilesCertSource(fs, opts.CertFilename, opts.KeyFilename), nil
	default:
		return nil, fmt.Errorf("certs: unknown certificate source %q", opts.Source)
	}
}

// NewTLSConfig creates a client tls config. The server name is left empty
// and must be set per connection. A configured client certificate is loaded
// lazily and reloaded, when its files change.
func NewTLSConfig(fs afero.Fs, opts TLSOptions) (*tls.Config, error) {
	source, err := newCertSource(fs, opts)
	if err != nil {
		return nil, err
	}

	config := tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.Insecure, // nolint:gosec
	}

	if opts.Insecure {
		log.Warn().Msg("verification of server certificates is disabled")
	}

	if opts.CAFilename != "" {
		if config.RootCAs, err = loadCertPool(fs, opts.CAFilename); err != nil {
			return nil, err
		}
	}

	if source == nil {
		return &config, nil
	}

	var (
		lastCert *tls.Certificate
		lastTime time.Time
		lock     sync.Mutex
	)

	config.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
		lock.Lock()
		defer lock.Unlock()

		newTime, err := source.lastUpdate()
		if err != nil {
			return nil, fmt.Errorf(
				"could not check for certificate updates: %w", err)
		}

		if newTime.After(lastTime) {
			newCert, err := source.load()
			if err != nil {
				return nil, fmt.Errorf(
					"could not load certificate: %w", err)
			}

			lastTime = newTime
			lastCert = newCert

			log.Debug().
				Time("updated", newTime).
				Msg("new client certificate loaded")
		}

		return lastCert, nil
	}

	return &config, nil
}

func loadCertPool(fs afero.Fs, filename string) (*x509.CertPool, error) {
	pem, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errNoCertificates
	}

	return pool, nil
}
