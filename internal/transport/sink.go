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

// Package transport writes encoded frames to a connection in bounded chunks.
package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/google/wire"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/briefpost/internal/encoder"
	"github.com/lukasdietrich/briefpost/internal/log"
)

// WireSet provides the Sink.
var WireSet = wire.NewSet(
	SinkOptionsFromViper,
	NewSink,
)

func init() {
	viper.SetDefault("transport.chunksize", "8kb")
}

const minChunkSize = 512

// SinkOptions configure the Sink.
type SinkOptions struct {
	ChunkSize int
}

// SinkOptionsFromViper reads the options from the "transport" keys.
func SinkOptionsFromViper() SinkOptions {
	return SinkOptions{
		ChunkSize: int(viper.GetSizeInBytes("transport.chunksize")),
	}
}

type flusher interface {
	Flush() error
}

// Sink delivers frames to a writer. Writers with a Flush method are flushed
// after every chunk.
type Sink struct {
	chunkSize int
}

// NewSink returns a Sink. Chunk sizes below 512 bytes are raised to 512.
func NewSink(opts SinkOptions) *Sink {
	chunkSize := opts.ChunkSize
	if chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}

	return &Sink{chunkSize: chunkSize}
}

// Write copies the frame to w and returns the number of bytes written. The
// context is checked before every chunk; once it is done nothing more is
// written. Stream frames are closed in any case.
func (s *Sink) Write(ctx context.Context, w io.Writer, frame encoder.Frame) (int64, error) {
	var (
		written int64
		chunks  int
		err     error
	)

	switch f := frame.(type) {
	case encoder.BufferFrame:
		written, chunks, err = s.writeBuffer(ctx, w, f)

	case encoder.StreamFrame:
		written, chunks, err = s.writeStream(ctx, w, f)

		if closeErr := f.Close(); err == nil {
			err = closeErr
		}

	default:
		return 0, fmt.Errorf("transport: unsupported frame %T", frame)
	}

	log.DebugContext(ctx).
		Int64("bytes", written).
		Int("chunks", chunks).
		Err(err).
		Msg("frame written")

	return written, err
}

func (s *Sink) writeBuffer(ctx context.Context, w io.Writer, data []byte) (int64, int, error) {
	var (
		written int64
		chunks  int
	)

	for len(data) > 0 {
		if err := ctx.Err(); err != nil {
			return written, chunks, err
		}

		chunk := data
		if len(chunk) > s.chunkSize {
			chunk = chunk[:s.chunkSize]
		}

		n, err := s.writeChunk(ctx, w, chunk)
		written += int64(n)
		chunks++

		if err != nil {
			return written, chunks, err
		}

		data = data[n:]
	}

	return written, chunks, nil
}

func (s *Sink) writeStream(ctx context.Context, w io.Writer, r io.Reader) (int64, int, error) {
	var (
		written int64
		chunks  int
		buffer  = make([]byte, s.chunkSize)
	)

	for {
		if err := ctx.Err(); err != nil {
			return written, chunks, err
		}

		n, readErr := io.ReadFull(r, buffer)

		if n > 0 {
			m, err := s.writeChunk(ctx, w, buffer[:n])
			written += int64(m)
			chunks++

			if err != nil {
				return written, chunks, err
			}
		}

		switch readErr {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return written, chunks, nil
		default:
			return written, chunks, readErr
		}
	}
}

func (s *Sink) writeChunk(ctx context.Context, w io.Writer, chunk []byte) (int, error) {
	n, err := w.Write(chunk)
	if err != nil {
		return n, err
	}

	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return n, err
		}
	}

	log.TraceContext(ctx).
		Int("size", n).
		Msg("chunk written")

	return n, nil
}
