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

package textproto

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxReplyLines = 128

var (
	errMalformedReply = errors.New("textproto: malformed reply")
	errReplyTooLong   = errors.New("textproto: reply too long")
)

// Reply is a complete server reply.
type Reply struct {
	Code  int
	Lines []string
}

// Text joins the lines of the reply.
func (r Reply) Text() string {
	return strings.Join(r.Lines, "\n")
}

// ReplyError is a reply with an unexpected code.
type ReplyError struct {
	Code int
	Text string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%03d %s", e.Code, e.Text)
}

// Permanent reports a 5xx reply.
func (e *ReplyError) Permanent() bool {
	return e.Code >= 500 && e.Code < 600
}

// Transient reports a 4xx reply.
func (e *ReplyError) Transient() bool {
	return e.Code >= 400 && e.Code < 500
}

// IsPermanent reports whether err is or wraps a permanent ReplyError.
func IsPermanent(err error) bool {
	var replyErr *ReplyError
	return errors.As(err, &replyErr) && replyErr.Permanent()
}

// IsTransient reports whether err is or wraps a transient ReplyError.
func IsTransient(err error) bool {
	var replyErr *ReplyError
	return errors.As(err, &replyErr) && replyErr.Transient()
}

// ReadReply reads one reply, which may span multiple lines.
func (c *Conn) ReadReply() (Reply, error) {
	var reply Reply

	for {
		line, err := c.readLine()
		if err != nil {
			return reply, err
		}

		if len(line) < 3 {
			return reply, fmt.Errorf("%w: %q", errMalformedReply, line)
		}

		code, err := strconv.Atoi(line[:3])
		if err != nil || code < 100 || code > 599 {
			return reply, fmt.Errorf("%w: %q", errMalformedReply, line)
		}

		if reply.Code != 0 && reply.Code != code {
			return reply, fmt.Errorf("%w: code changed within reply", errMalformedReply)
		}

		reply.Code = code

		var more bool

		if len(line) > 3 {
			switch line[3] {
			case '-':
				more = true
			case ' ':
			default:
				return reply, fmt.Errorf("%w: %q", errMalformedReply, line)
			}

			reply.Lines = append(reply.Lines, line[4:])
		} else {
			reply.Lines = append(reply.Lines, "")
		}

		if !more {
			return reply, nil
		}

		if len(reply.Lines) >= maxReplyLines {
			return reply, errReplyTooLong
		}
	}
}

// Expect reads a reply and turns it into a *ReplyError, if its code does
// not match any of the expected codes.
func (c *Conn) Expect(codes ...int) (Reply, error) {
	reply, err := c.ReadReply()
	if err != nil {
		return reply, err
	}

	for _, code := range codes {
		if reply.Code == code {
			return reply, nil
		}
	}

	return reply, &ReplyError{Code: reply.Code, Text: reply.Text()}
}

func (c *Conn) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			err = io.ErrUnexpectedEOF
		}

		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}
