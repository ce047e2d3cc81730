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

package delivery

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/google/wire"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/briefpost/internal/crypto"
	"github.com/lukasdietrich/briefpost/internal/encoder"
	"github.com/lukasdietrich/briefpost/internal/log"
	"github.com/lukasdietrich/briefpost/internal/mails"
	"github.com/lukasdietrich/briefpost/internal/payload"
	"github.com/lukasdietrich/briefpost/internal/textproto"
	"github.com/lukasdietrich/briefpost/internal/transport"
)

// WireSet provides the Courier.
var WireSet = wire.NewSet(
	CourierOptionsFromViper,
	NewCourier,
)

func init() {
	viper.SetDefault("general.hostname", "localhost")
	viper.SetDefault("delivery.port", "25")
	viper.SetDefault("delivery.lmtp", false)
	viper.SetDefault("delivery.starttls", true)
	viper.SetDefault("delivery.timeout", 5*time.Minute)
}

var (
	// ErrNoRecipients is returned when the envelope has no forward-paths.
	ErrNoRecipients = errors.New("delivery: no recipients")
	// ErrNoneAccepted is returned when the server rejected every recipient.
	ErrNoneAccepted = errors.New("delivery: no recipient accepted")
)

// CourierOptions configure the Courier.
type CourierOptions struct {
	// Hostname is announced in EHLO, LHLO or HELO.
	Hostname string
	// Port is used by Dial.
	Port string
	// LMTP switches to LHLO and per recipient replies after the data.
	LMTP bool
	// StartTLS enables STARTTLS when the server announces it. If the server
	// then refuses the command, the transaction continues in plaintext.
	StartTLS bool
	// Timeout limits every command and every chunk of data.
	Timeout time.Duration
}

// CourierOptionsFromViper reads the options from the "general" and
// "delivery" keys.
func CourierOptionsFromViper() CourierOptions {
	return CourierOptions{
		Hostname: viper.GetString("general.hostname"),
		Port:     viper.GetString("delivery.port"),
		LMTP:     viper.GetBool("delivery.lmtp"),
		StartTLS: viper.GetBool("delivery.starttls"),
		Timeout:  viper.GetDuration("delivery.timeout"),
	}
}

// Courier performs a single mail transaction per call. It does not retry
// and it does not look up mail exchangers.
type Courier struct {
	opts    CourierOptions
	tls     *tls.Config
	encoder *encoder.Encoder
	sink    *transport.Sink
	idGen   crypto.IDGenerator
}

// NewCourier returns a Courier. The tls config is cloned for every STARTTLS
// and may be nil.
func NewCourier(
	opts CourierOptions,
	tlsConfig *tls.Config,
	encoder *encoder.Encoder,
	sink *transport.Sink,
	idGen crypto.IDGenerator,
) *Courier {
	return &Courier{
		opts:    opts,
		tls:     tlsConfig,
		encoder: encoder,
		sink:    sink,
		idGen:   idGen,
	}
}

// Dial opens a tcp connection to the configured port of host.
func (c *Courier) Dial(ctx context.Context, host string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.opts.Timeout}
	return dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, c.opts.Port))
}

// Send dials host and delivers the payload to it.
func (c *Courier) Send(ctx context.Context, host string, envelope mails.Envelope, p payload.Payload) ([]Result, error) {
	conn, err := c.Dial(ctx, host)
	if err != nil {
		return nil, err
	}

	defer conn.Close()

	return c.Deliver(ctx, conn, host, envelope, p)
}

// Deliver runs a mail transaction over an established connection. The
// returned results are in the order of envelope.To. On error the state of
// the connection is undefined and it should be closed. Canceling the
// context aborts the transaction without terminating the data.
func (c *Courier) Deliver(
	ctx context.Context,
	conn net.Conn,
	host string,
	envelope mails.Envelope,
	p payload.Payload,
) ([]Result, error) {
	if len(envelope.To) == 0 {
		return nil, ErrNoRecipients
	}

	id, err := c.idGen.GenerateID()
	if err != nil {
		return nil, err
	}

	ctx = log.WithSession(log.WithHost(ctx, host), id)

	stop := abortOnDone(ctx, conn)
	defer stop()

	s := session{
		Conn:    textproto.NewConn(conn),
		courier: c,
		host:    host,
	}

	log.InfoContext(ctx).
		Str("from", envelope.From.String()).
		Int("recipients", len(envelope.To)).
		Msg("starting transaction")

	results, err := s.transact(ctx, envelope, p)
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		err = ctxErr
	}

	if err != nil {
		log.WarnContext(ctx).
			Err(err).
			Msg("transaction aborted")

		return results, err
	}

	log.InfoContext(ctx).
		Int("summary", int(Summarize(results))).
		Msg("transaction completed")

	return results, nil
}

// abortOnDone moves the deadline of conn into the past once ctx is done, so
// that blocking reads and writes return.
func abortOnDone(ctx context.Context, conn net.Conn) func() {
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Unix(1, 0)) // nolint:errcheck
		case <-done:
		}
	}()

	return func() {
		close(done)
	}
}
