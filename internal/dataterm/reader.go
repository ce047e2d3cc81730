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

package dataterm

import (
	"context"
	"io"
)

const (
	sRead int = iota
	sTerminate
	sEOF
	sFailed
)

// Reader forwards the bytes of an underlying reader and, once that reader is
// exhausted, yields the terminator for the bytes it has seen. The decision
// is made with the same rules as Terminator, using the last two bytes
// observed.
//
// The terminator is never produced when the underlying reader fails or the
// context is canceled. Both conditions are sticky.
type Reader struct {
	ctx context.Context
	r   io.Reader

	tail  [2]byte
	seen  int
	term  []byte
	state int
	err   error
}

// NewReader returns a Reader wrapping r. The context is checked before
// every read of r and before the terminator is handed out.
func NewReader(ctx context.Context, r io.Reader) *Reader {
	return &Reader{ctx: ctx, r: r}
}

func (d *Reader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	switch d.state {
	case sEOF:
		return 0, io.EOF
	case sFailed:
		return 0, d.err
	case sTerminate:
		if err := d.ctx.Err(); err != nil {
			return 0, d.fail(err)
		}

		return d.drain(b), nil
	}

	if err := d.ctx.Err(); err != nil {
		return 0, d.fail(err)
	}

	n, err := d.r.Read(b)
	d.observe(b[:n])

	switch {
	case err == io.EOF:
		d.term = Terminator(d.tail[:d.seen])
		d.state = sTerminate

		if n < len(b) {
			n += d.drain(b[n:])
		}

		return n, nil

	case err != nil:
		return n, d.fail(err)
	}

	return n, nil
}

// Close closes the underlying reader, if it is an io.Closer. Closing before
// the terminator was read abandons the data without terminating it.
func (d *Reader) Close() error {
	if d.state != sEOF && d.state != sFailed {
		d.state = sFailed
		d.err = errClosed
	}

	if closer, ok := d.r.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

func (d *Reader) drain(b []byte) int {
	n := copy(b, d.term)
	d.term = d.term[n:]

	if len(d.term) == 0 {
		d.state = sEOF
	}

	return n
}

func (d *Reader) fail(err error) error {
	d.state = sFailed
	d.err = err
	return err
}

func (d *Reader) observe(b []byte) {
	switch {
	case len(b) >= 2:
		copy(d.tail[:], b[len(b)-2:])
		d.seen = 2

	case len(b) == 1:
		if d.seen == 2 {
			d.tail[0] = d.tail[1]
			d.tail[1] = b[0]
		} else {
			d.tail[d.seen] = b[0]
			d.seen++
		}
	}
}
