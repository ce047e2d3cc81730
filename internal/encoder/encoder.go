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

// Package encoder turns message payloads into the bytes sent after the DATA
// command, including the end-of-data marker.
package encoder

import (
	"context"
	"fmt"
	"io"

	"github.com/google/wire"

	"github.com/lukasdietrich/briefpost/internal/dataterm"
	"github.com/lukasdietrich/briefpost/internal/extensions"
	"github.com/lukasdietrich/briefpost/internal/log"
	"github.com/lukasdietrich/briefpost/internal/payload"
)

// WireSet provides the Encoder.
var WireSet = wire.NewSet(New)

// Frame is the encoded form of a payload. It is either a BufferFrame or a
// StreamFrame.
type Frame interface {
	isFrame()
}

// BufferFrame is a complete, terminated message in memory.
type BufferFrame []byte

func (BufferFrame) isFrame() {}

// StreamFrame yields the message and then its terminator. It must be closed
// by whoever consumes it.
type StreamFrame struct {
	io.ReadCloser
}

func (StreamFrame) isFrame() {}

// Encoder assembles frames. It holds no state, so a single Encoder can be
// shared by any number of sessions.
type Encoder struct{}

// New returns an Encoder.
func New() *Encoder {
	return &Encoder{}
}

// Encode encodes msg if it is a payload.Payload. Any other value is returned
// unchanged.
func (e *Encoder) Encode(ctx context.Context, caps extensions.Capabilities, msg interface{}) (interface{}, error) {
	p, ok := msg.(payload.Payload)
	if !ok {
		return msg, nil
	}

	return e.EncodePayload(ctx, caps, p)
}

// EncodePayload selects the representation of p and assembles its frame.
// The capabilities are only used for this one call.
func (e *Encoder) EncodePayload(ctx context.Context, caps extensions.Capabilities, p payload.Payload) (Frame, error) {
	repr := Select(caps, p)

	log.DebugContext(ctx).
		Stringer("representation", repr).
		Msg("encoding payload")

	if repr.Streamed() {
		streamed, _ := p.(*payload.Streamed)

		r, err := streamed.Open(repr.Variant())
		if err != nil {
			return nil, fmt.Errorf("encoder: %s: %w", repr, err)
		}

		return StreamFrame{dataterm.NewReader(ctx, r)}, nil
	}

	buffered, _ := p.(*payload.Buffered)

	data, err := buffered.Bytes(repr.Variant())
	if err != nil {
		return nil, fmt.Errorf("encoder: %s: %w", repr, err)
	}

	frame := make([]byte, 0, len(data)+len(dataterm.Terminator(data)))
	return BufferFrame(dataterm.Append(frame, data)), nil
}
