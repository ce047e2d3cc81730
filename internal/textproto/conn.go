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

// Package textproto implements the client side of line based mail
// protocols: sending commands and reading (multi-line) replies.
package textproto

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	errAlreadyTLS        = errors.New("textproto: already tls")
	errPlaintextBuffered = errors.New("textproto: plaintext received before tls handshake")
)

type variableNetConn struct {
	net.Conn
}

// Conn is a client connection to a mail server.
type Conn struct {
	raw   *variableNetConn
	isTLS bool

	reader *bufio.Reader
	writer *bufio.Writer
}

// NewConn wraps a network connection.
func NewConn(netConn net.Conn) *Conn {
	varConn := variableNetConn{Conn: netConn}

	_, isTLS := netConn.(*tls.Conn)

	return &Conn{
		raw:   &varConn,
		isTLS: isTLS,

		reader: bufio.NewReader(&varConn),
		writer: bufio.NewWriter(&varConn),
	}
}

// SetTimeout sets the deadline for read and write calls to a time now + d.
// A zero duration removes the deadline.
func (c *Conn) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return c.raw.SetDeadline(time.Time{})
	}

	return c.raw.SetDeadline(time.Now().Add(d))
}

// IsTLS reports whether the connection is encrypted.
func (c *Conn) IsTLS() bool {
	return c.isTLS
}

// UpgradeTLS performs a client handshake and replaces the underlying
// network connection with the tls connection. The upgrade is refused, if the
// server sent more than the reply to STARTTLS. On error the connection is
// unusable and must be closed.
func (c *Conn) UpgradeTLS(config *tls.Config) error {
	if c.isTLS {
		return errAlreadyTLS
	}

	if c.reader.Buffered() > 0 {
		return errPlaintextBuffered
	}

	tlsConn := tls.Client(c.raw.Conn, config)

	if err := tlsConn.Handshake(); err != nil {
		return err
	}

	c.raw.Conn = tlsConn
	c.isTLS = true

	return nil
}

// Cmd writes a single command line terminated by <CR> <LF> and flushes it.
func (c *Conn) Cmd(format string, args ...interface{}) error {
	if _, err := fmt.Fprintf(c.writer, format, args...); err != nil {
		return err
	}

	if _, err := c.writer.WriteString("\r\n"); err != nil {
		return err
	}

	return c.writer.Flush()
}

// Writer returns the buffered writer of the connection. Data written to it
// has to be flushed explicitly.
func (c *Conn) Writer() *bufio.Writer {
	return c.writer
}

// Close closes the underlying network connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}
