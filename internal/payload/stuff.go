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

package payload

import (
	"io"
)

// Stuff applies the transparency procedure to a message: every line that
// starts with "." gets another "." prepended. The input is returned as is
// when no line needs to be changed.
func Stuff(data []byte) []byte {
	var (
		extra int
		bol   = true
	)

	for _, c := range data {
		if bol && c == '.' {
			extra++
		}

		bol = c == '\n'
	}

	if extra == 0 {
		return data
	}

	stuffed := make([]byte, 0, len(data)+extra)
	bol = true

	for _, c := range data {
		if bol && c == '.' {
			stuffed = append(stuffed, '.')
		}

		stuffed = append(stuffed, c)
		bol = c == '\n'
	}

	return stuffed
}

type stuffingReader struct {
	r   io.Reader
	bol bool
	err error

	in      []byte
	out     []byte
	pending []byte
}

// NewStuffingReader returns a reader applying the same transparency
// procedure as Stuff to the data read from r.
func NewStuffingReader(r io.Reader) io.Reader {
	return &stuffingReader{r: r, bol: true}
}

func (s *stuffingReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	if len(s.pending) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		s.fill(len(b))
	}

	n := copy(b, s.pending)
	s.pending = s.pending[n:]

	if len(s.pending) == 0 && s.err != nil {
		return n, s.err
	}

	return n, nil
}

func (s *stuffingReader) fill(size int) {
	if cap(s.in) < size {
		s.in = make([]byte, size)
	}

	n, err := s.r.Read(s.in[:size])
	s.err = err
	s.out = s.out[:0]

	for _, c := range s.in[:n] {
		if s.bol && c == '.' {
			s.out = append(s.out, '.')
		}

		s.out = append(s.out, c)
		s.bol = c == '\n'
	}

	s.pending = s.out
}

type readCloser struct {
	io.Reader
	io.Closer
}
