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

// Package payload describes the message data handed to the DATA phase of a
// mail transaction. A payload is either buffered or streamed and offers a
// 7-bit safe and an 8-bit variant of the same message.
package payload

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMissingAccessor is returned when a payload does not offer the
	// variant that has been selected for it.
	ErrMissingAccessor = errors.New("payload: missing accessor")
)

// Variant is the transfer encoding variant of a payload.
type Variant int

const (
	// SevenBit is the variant safe for servers without 8BITMIME.
	SevenBit Variant = iota
	// EightBit is the variant sent unmodified to 8BITMIME servers.
	EightBit
)

func (v Variant) String() string {
	switch v {
	case SevenBit:
		return "7bit"
	case EightBit:
		return "8bit"
	}

	return fmt.Sprintf("Variant(%d)", int(v))
}

// Payload is implemented by *Buffered and *Streamed only.
type Payload interface {
	isPayload()
}

// Buffered is a payload whose data is fully held in memory. The data
// returned by the accessors is expected to be dot-stuffed already.
type Buffered struct {
	SevenBit func() ([]byte, error)
	EightBit func() ([]byte, error)
}

func (*Buffered) isPayload() {}

// Bytes returns the data of the requested variant.
func (b *Buffered) Bytes(v Variant) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil buffered payload", ErrMissingAccessor)
	}

	accessor := b.SevenBit
	if v == EightBit {
		accessor = b.EightBit
	}

	if accessor == nil {
		return nil, fmt.Errorf("%w: buffered %s", ErrMissingAccessor, v)
	}

	return accessor()
}

// Streamed is a payload read from a stream that can be consumed once per
// accessor call. The data yielded by the streams is expected to be
// dot-stuffed already.
type Streamed struct {
	SevenBit func() (io.ReadCloser, error)
	EightBit func() (io.ReadCloser, error)
}

func (*Streamed) isPayload() {}

// Open returns a stream of the requested variant.
func (s *Streamed) Open(v Variant) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil streamed payload", ErrMissingAccessor)
	}

	accessor := s.SevenBit
	if v == EightBit {
		accessor = s.EightBit
	}

	if accessor == nil {
		return nil, fmt.Errorf("%w: streamed %s", ErrMissingAccessor, v)
	}

	return accessor()
}
