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
	"bufio"
	"context"
	"crypto/tls"

	"github.com/lukasdietrich/briefpost/internal/encoder"
	"github.com/lukasdietrich/briefpost/internal/extensions"
	"github.com/lukasdietrich/briefpost/internal/log"
	"github.com/lukasdietrich/briefpost/internal/mails"
	"github.com/lukasdietrich/briefpost/internal/payload"
	"github.com/lukasdietrich/briefpost/internal/textproto"
)

type session struct {
	*textproto.Conn

	courier *Courier
	host    string
}

func (s *session) transact(ctx context.Context, envelope mails.Envelope, p payload.Payload) ([]Result, error) {
	if err := s.greeting(ctx); err != nil {
		return nil, err
	}

	caps, err := s.hello(ctx)
	if err != nil {
		return nil, err
	}

	if s.courier.opts.StartTLS && !s.IsTLS() && caps.Supports(extensions.StartTLS) {
		upgraded, err := s.startTLS(ctx)
		if err != nil {
			return nil, err
		}

		// Capabilities announced in plaintext are discarded after the upgrade.
		if upgraded {
			if caps, err = s.hello(ctx); err != nil {
				return nil, err
			}
		}
	}

	frame, err := s.courier.encoder.EncodePayload(ctx, caps, p)
	if err != nil {
		return nil, err
	}

	sent := false
	defer func() {
		if stream, ok := frame.(encoder.StreamFrame); ok && !sent {
			stream.Close()
		}
	}()

	if err := s.mail(ctx, envelope.From, caps); err != nil {
		return nil, err
	}

	results, accepted, err := s.recipients(ctx, envelope.To)
	if err != nil {
		return results, err
	}

	if len(accepted) == 0 {
		s.quit(ctx)
		return results, ErrNoneAccepted
	}

	reply, err := s.command(ctx, "DATA")
	if err != nil {
		return results, err
	}

	if reply.Code != 354 {
		for _, i := range accepted {
			results[i] = resultOf(envelope.To[i], reply)
		}

		s.quit(ctx)
		return results, nil
	}

	sent = true
	if err := s.data(ctx, frame); err != nil {
		return results, err
	}

	if err := s.dataReplies(ctx, envelope.To, accepted, results); err != nil {
		return results, err
	}

	s.quit(ctx)
	return results, nil
}

func (s *session) greeting(ctx context.Context) error {
	if err := s.renew(ctx); err != nil {
		return err
	}

	reply, err := s.Expect(220)

	log.DebugContext(ctx).
		Int("code", reply.Code).
		Err(err).
		Msg("greeting")

	return err
}

func (s *session) hello(ctx context.Context) (extensions.Set, error) {
	name, err := mails.DomainToASCII(s.courier.opts.Hostname)
	if err != nil {
		return extensions.Set{}, err
	}

	verb := "EHLO"
	if s.courier.opts.LMTP {
		verb = "LHLO"
	}

	reply, err := s.expect(ctx, []int{250}, "%s %s", verb, name)
	if err == nil {
		caps := extensions.Parse(reply.Lines)

		log.DebugContext(ctx).
			Strs("extensions", caps.Names()).
			Msg("extensions announced")

		return caps, nil
	}

	if s.courier.opts.LMTP || !textproto.IsPermanent(err) {
		return extensions.Set{}, err
	}

	_, err = s.expect(ctx, []int{250}, "HELO %s", name)
	return extensions.Set{}, err
}

// startTLS upgrades the connection. A refusal of the command by the server
// is not an error, the session stays in plaintext.
func (s *session) startTLS(ctx context.Context) (bool, error) {
	if _, err := s.expect(ctx, []int{220}, "STARTTLS"); err != nil {
		if textproto.IsTransient(err) || textproto.IsPermanent(err) {
			log.WarnContext(ctx).
				Err(err).
				Msg("starttls refused, continuing in plaintext")

			return false, nil
		}

		return false, err
	}

	config := &tls.Config{MinVersion: tls.VersionTLS12}
	if s.courier.tls != nil {
		config = s.courier.tls.Clone()
	}

	config.ServerName = s.host

	if err := s.UpgradeTLS(config); err != nil {
		return false, err
	}

	log.DebugContext(ctx).Msg("connection upgraded to tls")

	return true, nil
}

func (s *session) mail(ctx context.Context, from mails.Address, caps extensions.Set) error {
	from, err := from.ToASCII()
	if err != nil {
		return err
	}

	if caps.Supports(extensions.EightBitMIME) {
		_, err = s.expect(ctx, []int{250}, "MAIL FROM:%s BODY=8BITMIME", from.Path())
	} else {
		_, err = s.expect(ctx, []int{250}, "MAIL FROM:%s", from.Path())
	}

	return err
}

func (s *session) recipients(ctx context.Context, to []mails.Address) ([]Result, []int, error) {
	var (
		results  = make([]Result, len(to))
		accepted = make([]int, 0, len(to))
	)

	for i, recipient := range to {
		ascii, err := recipient.ToASCII()
		if err != nil {
			return results, accepted, err
		}

		reply, err := s.command(ctx, "RCPT TO:%s", ascii.Path())
		if err != nil {
			return results, accepted, err
		}

		switch reply.Code {
		case 250, 251:
			accepted = append(accepted, i)
			results[i] = Result{Recipient: recipient, Status: StatusDeferred}

		default:
			results[i] = resultOf(recipient, reply)

			log.InfoContext(ctx).
				Str("recipient", recipient.String()).
				Int("code", reply.Code).
				Msg("recipient rejected")
		}
	}

	return results, accepted, nil
}

func (s *session) data(ctx context.Context, frame encoder.Frame) error {
	w := timeoutWriter{
		Writer:  s.Writer(),
		ctx:     ctx,
		session: s,
	}

	_, err := s.courier.sink.Write(ctx, &w, frame)
	return err
}

func (s *session) dataReplies(ctx context.Context, to []mails.Address, accepted []int, results []Result) error {
	if err := s.renew(ctx); err != nil {
		return err
	}

	if !s.courier.opts.LMTP {
		reply, err := s.ReadReply()
		if err != nil {
			return err
		}

		for _, i := range accepted {
			results[i] = resultOf(to[i], reply)
		}

		return nil
	}

	for _, i := range accepted {
		reply, err := s.ReadReply()
		if err != nil {
			return err
		}

		results[i] = resultOf(to[i], reply)
	}

	return nil
}

func (s *session) quit(ctx context.Context) {
	if _, err := s.expect(ctx, []int{221}, "QUIT"); err != nil {
		log.DebugContext(ctx).
			Err(err).
			Msg("could not quit session")
	}
}

// renew moves the deadline of the connection forward, unless the context is
// already done. A done context has moved the deadline into the past.
func (s *session) renew(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.SetTimeout(s.courier.opts.Timeout)
}

// command sends a command and returns the reply whatever its code is.
func (s *session) command(ctx context.Context, format string, args ...interface{}) (textproto.Reply, error) {
	if err := s.renew(ctx); err != nil {
		return textproto.Reply{}, err
	}

	if err := s.Cmd(format, args...); err != nil {
		return textproto.Reply{}, err
	}

	reply, err := s.ReadReply()

	log.TraceContext(ctx).
		Int("code", reply.Code).
		Err(err).
		Msgf(format, args...)

	return reply, err
}

// expect sends a command and fails with a *textproto.ReplyError on any code
// not listed.
func (s *session) expect(ctx context.Context, codes []int, format string, args ...interface{}) (textproto.Reply, error) {
	reply, err := s.command(ctx, format, args...)
	if err != nil {
		return reply, err
	}

	for _, code := range codes {
		if reply.Code == code {
			return reply, nil
		}
	}

	return reply, &textproto.ReplyError{Code: reply.Code, Text: reply.Text()}
}

// timeoutWriter renews the deadline of the connection for every chunk.
type timeoutWriter struct {
	*bufio.Writer

	ctx     context.Context
	session *session
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	if err := w.session.renew(w.ctx); err != nil {
		return 0, err
	}

	return w.Writer.Write(b)
}
