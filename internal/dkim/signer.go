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

package dkim

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-msgauth/dkim"
	"github.com/google/wire"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/briefpost/internal/mails"
	"github.com/lukasdietrich/briefpost/internal/payload"
)

// WireSet provides the optional Signer.
var WireSet = wire.NewSet(
	SignerOptionsFromViper,
	NewSigner,
)

func init() {
	viper.SetDefault("dkim.selector", "")
	viper.SetDefault("dkim.domain", "")
	viper.SetDefault("dkim.keyfile", "")
}

var (
	errMissingSelector = errors.New("dkim: a selector is required")
	errMissingKey      = errors.New("dkim: a key file is required")
	errMissingDomain   = errors.New("dkim: unable to determine signing domain")
	errNoPrivateKey    = errors.New("dkim: no private key found")
)

var defaultHeaderKeys = []string{
	"from",
	"to",
	"cc",
	"subject",
	"date",
	"mime-version",
	"content-type",
	"content-transfer-encoding",
	"message-id",
}

// SignerOptions configure the Signer. Signing is disabled when neither a
// selector nor a key file is set.
type SignerOptions struct {
	Selector string
	// Domain overrides the domain of the reverse-path.
	Domain  string
	KeyFile string
}

// SignerOptionsFromViper reads the options from the "dkim" keys.
func SignerOptionsFromViper() SignerOptions {
	return SignerOptions{
		Selector: viper.GetString("dkim.selector"),
		Domain:   viper.GetString("dkim.domain"),
		KeyFile:  viper.GetString("dkim.keyfile"),
	}
}

// Signer adds a DKIM-Signature header to messages. A nil *Signer leaves
// messages untouched.
type Signer struct {
	selector string
	domain   string
	key      crypto.Signer
}

// NewSigner loads the private key. It returns nil, if signing is disabled.
func NewSigner(fs afero.Fs, opts SignerOptions) (*Signer, error) {
	if opts.Selector == "" && opts.KeyFile == "" {
		return nil, nil
	}

	if opts.Selector == "" {
		return nil, errMissingSelector
	}

	if opts.KeyFile == "" {
		return nil, errMissingKey
	}

	pemData, err := afero.ReadFile(fs, opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("dkim: read private key: %w", err)
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, err
	}

	return &Signer{
		selector: opts.Selector,
		domain:   strings.ToLower(opts.Domain),
		key:      key,
	}, nil
}

// Transform returns a payload transform signing every variant of a message
// sent by from.
func (s *Signer) Transform(from mails.Address) payload.Transform {
	return func(msg []byte) ([]byte, error) {
		return s.Sign(msg, from)
	}
}

// Sign returns the message with a DKIM-Signature header prepended. Messages
// that already carry a signature are returned as is.
func (s *Signer) Sign(msg []byte, from mails.Address) ([]byte, error) {
	if s == nil || hasSignature(msg) {
		return msg, nil
	}

	domain := s.domain
	if domain == "" {
		domain = strings.ToLower(from.Domain())
	}

	if domain == "" {
		return nil, errMissingDomain
	}

	opts := dkim.SignOptions{
		Domain:                 domain,
		Selector:               s.selector,
		Signer:                 s.key,
		HeaderCanonicalization: dkim.CanonicalizationRelaxed,
		BodyCanonicalization:   dkim.CanonicalizationRelaxed,
		HeaderKeys:             defaultHeaderKeys,
	}

	var signed bytes.Buffer
	if err := dkim.Sign(&signed, bytes.NewReader(normalizeLineEndings(msg)), &opts); err != nil {
		return nil, fmt.Errorf("dkim: signing failed: %w", err)
	}

	return signed.Bytes(), nil
}

func parsePrivateKey(pemData []byte) (crypto.Signer, error) {
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			return nil, errNoPrivateKey
		}

		switch block.Type {
		case "RSA PRIVATE KEY":
			return x509.ParsePKCS1PrivateKey(block.Bytes)

		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}

			if signer, ok := key.(crypto.Signer); ok {
				return signer, nil
			}

			return nil, fmt.Errorf("dkim: unsupported private key %T", key)
		}

		pemData = rest
	}
}

// hasSignature reports whether the header section, which ends at the first
// empty line, contains a DKIM-Signature field.
func hasSignature(msg []byte) bool {
	header := msg

	for _, separator := range [...]string{"\r\n\r\n", "\n\n"} {
		if i := bytes.Index(msg, []byte(separator)); i >= 0 && i < len(header) {
			header = msg[:i+1]
		}
	}

	if bytes.HasPrefix(msg, []byte("\r\n")) || bytes.HasPrefix(msg, []byte("\n")) {
		return false
	}

	upper := bytes.ToUpper(header)

	return bytes.HasPrefix(upper, []byte("DKIM-SIGNATURE:")) ||
		bytes.Contains(upper, []byte("\nDKIM-SIGNATURE:"))
}

// normalizeLineEndings turns a message with bare LF line endings into one
// with CRLF. Messages with at least one CRLF are returned unchanged.
func normalizeLineEndings(msg []byte) []byte {
	if bytes.Contains(msg, []byte("\r\n")) || !bytes.Contains(msg, []byte("\n")) {
		return msg
	}

	return bytes.ReplaceAll(msg, []byte("\n"), []byte("\r\n"))
}
