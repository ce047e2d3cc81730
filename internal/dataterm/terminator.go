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

// Package dataterm closes the data of a mail transaction with the
// end-of-data marker <CR> <LF> "." <CR> <LF>, taking into account how the
// data already ends.
package dataterm

const (
	cr  = '\r'
	lf  = '\n'
	dot = '.'
)

var (
	crlfDotCRLF = []byte{cr, lf, dot, cr, lf}
	lfDotCRLF   = []byte{lf, dot, cr, lf}
	dotCRLF     = []byte{dot, cr, lf}
)

// Terminator returns the bytes to append to data so that it is followed by
// exactly one end-of-data marker. Only the last two bytes of data are
// inspected. A trailing bare <LF> is not treated as a line break and is
// followed by the full marker.
//
// The returned slice is shared and must not be modified.
func Terminator(data []byte) []byte {
	n := len(data)
	if n == 0 {
		return crlfDotCRLF
	}

	switch data[n-1] {
	case cr:
		return lfDotCRLF
	case lf:
		if n > 1 && data[n-2] == cr {
			return dotCRLF
		}
	}

	return crlfDotCRLF
}

// Append appends data and its terminator to dst and returns the result.
func Append(dst, data []byte) []byte {
	term := Terminator(data)

	if cap(dst)-len(dst) < len(data)+len(term) {
		grown := make([]byte, len(dst), len(dst)+len(data)+len(term))
		copy(grown, dst)
		dst = grown
	}

	dst = append(dst, data...)
	return append(dst, term...)
}
