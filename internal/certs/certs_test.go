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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

type CertsTestSuite struct {
	suite.Suite

	fs  afero.Fs
	crt []byte
	key []byte
}

func TestCertsTestSuite(t *testing.T) {
	suite.Run(t, new(CertsTestSuite))
}

func (s *CertsTestSuite) SetupTest() {
	s.fs = afero.NewMemMapFs()
	s.crt, s.key = s.selfSigned()
}

func (s *CertsTestSuite) selfSigned() ([]byte, []byte) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	s.Require().NoError(err)

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "relay.example.com"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	s.Require().NoError(err)

	keyDer, err := x509.MarshalECPrivateKey(key)
	s.Require().NoError(err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer})
}

func (s *CertsTestSuite) write(filename string, content []byte) {
	s.Require().NoError(afero.WriteFile(s.fs, filename, content, 0600))
}

func (s *CertsTestSuite) TestNone() {
	config, err := NewTLSConfig(s.fs, TLSOptions{Source: sourceNone})
	s.Require().NoError(err)

	s.Equal(uint16(tls.VersionTLS12), config.MinVersion)
	s.False(config.InsecureSkipVerify)
	s.Nil(config.RootCAs)
	s.Nil(config.GetClientCertificate)
}

func (s *CertsTestSuite) TestNoneSource() {
	for _, name := range []string{"", sourceNone} {
		source, err := newCertSource(s.fs, TLSOptions{Source: name})
		s.Require().NoError(err)
		s.Nil(source, "source %q", name)
	}
}

func (s *CertsTestSuite) TestInsecure() {
	config, err := NewTLSConfig(s.fs, TLSOptions{Insecure: true})
	s.Require().NoError(err)

	s.True(config.InsecureSkipVerify)
}

func (s *CertsTestSuite) TestUnknownSource() {
	_, err := NewTLSConfig(s.fs, TLSOptions{Source: "traefik"})
	s.Error(err)
}

func (s *CertsTestSuite) TestCertificateAuthority() {
	s.write("ca.pem", s.crt)

	config, err := NewTLSConfig(s.fs, TLSOptions{CAFilename: "ca.pem"})
	s.Require().NoError(err)

	s.NotNil(config.RootCAs)
}

func (s *CertsTestSuite) TestCertificateAuthorityErrors() {
	_, err := NewTLSConfig(s.fs, TLSOptions{CAFilename: "missing.pem"})
	s.Error(err)

	s.write("garbage.pem", []byte("no certificate"))

	_, err = NewTLSConfig(s.fs, TLSOptions{CAFilename: "garbage.pem"})
	s.ErrorIs(err, errNoCertificates)
}

func (s *CertsTestSuite) TestClientCertificate() {
	s.write("client.crt", s.crt)
	s.write("client.key", s.key)

	config, err := NewTLSConfig(s.fs, TLSOptions{
		Source:       sourceFiles,
		CertFilename: "client.crt",
		KeyFilename:  "client.key",
	})
	s.Require().NoError(err)
	s.Require().NotNil(config.GetClientCertificate)

	first, err := config.GetClientCertificate(nil)
	s.Require().NoError(err)
	s.NotEmpty(first.Certificate)

	second, err := config.GetClientCertificate(nil)
	s.Require().NoError(err)
	s.Same(first, second)

	future := time.Now().Add(time.Hour)
	s.Require().NoError(s.fs.Chtimes("client.crt", future, future))

	third, err := config.GetClientCertificate(nil)
	s.Require().NoError(err)
	s.NotSame(first, third)
}

func (s *CertsTestSuite) TestClientCertificateMissingKey() {
	_, err := NewTLSConfig(s.fs, TLSOptions{Source: sourceFiles, CertFilename: "client.crt"})
	s.ErrorIs(err, errMissingKeyPair)
}

func (s *CertsTestSuite) TestClientCertificateMissingFiles() {
	config, err := NewTLSConfig(s.fs, TLSOptions{
		Source:       sourceFiles,
		CertFilename: "client.crt",
		KeyFilename:  "client.key",
	})
	s.Require().NoError(err)

	_, err = config.GetClientCertificate(nil)
	s.Error(err)
}
