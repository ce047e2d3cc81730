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

package encoder

import (
	"github.com/lukasdietrich/briefpost/internal/extensions"
	"github.com/lukasdietrich/briefpost/internal/payload"
)

// Representation is the combination of payload shape and transfer encoding
// variant chosen for a message.
type Representation int

const (
	SevenBitBuffered Representation = iota
	EightBitBuffered
	SevenBitStreamed
	EightBitStreamed
)

func (r Representation) String() string {
	return [...]string{
		"7bit-buffered",
		"8bit-buffered",
		"7bit-streamed",
		"8bit-streamed",
	}[r]
}

// Variant returns the transfer encoding variant to read from the payload.
func (r Representation) Variant() payload.Variant {
	if r == EightBitBuffered || r == EightBitStreamed {
		return payload.EightBit
	}

	return payload.SevenBit
}

// Streamed reports whether the representation reads a stream.
func (r Representation) Streamed() bool {
	return r == SevenBitStreamed || r == EightBitStreamed
}

// Select picks the 8-bit variant if the server announced 8BITMIME and the
// 7-bit variant otherwise, keeping the shape of the payload. A nil
// Capabilities is treated as an empty set.
func Select(caps extensions.Capabilities, p payload.Payload) Representation {
	eightBit := caps != nil && caps.Supports(extensions.EightBitMIME)

	if _, ok := p.(*payload.Streamed); ok {
		if eightBit {
			return EightBitStreamed
		}

		return SevenBitStreamed
	}

	if eightBit {
		return EightBitBuffered
	}

	return SevenBitBuffered
}
