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
	"io/ioutil"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stuffingCases = []struct {
	raw      string
	expected string
}{
	{"", ""},
	{"no dots", "no dots"},
	{".", ".."},
	{".leading\r\n", "..leading\r\n"},
	{"a\r\n.b\r\n..c\r\n", "a\r\n..b\r\n...c\r\n"},
	{"mid.dle\r\n", "mid.dle\r\n"},
	{"bare\n.lf", "bare\n..lf"},
	{"cr only\r.x", "cr only\r.x"},
	{"end\r\n.", "end\r\n.."},
}

func TestStuff(t *testing.T) {
	for _, tt := range stuffingCases {
		assert.Equal(t, tt.expected, string(Stuff([]byte(tt.raw))), "%q", tt.raw)
	}
}

func TestStuffUnchangedReturnsInput(t *testing.T) {
	data := []byte("nothing to do\r\n")
	assert.Same(t, &data[0], &Stuff(data)[0])
}

func TestStuffingReader(t *testing.T) {
	for _, tt := range stuffingCases {
		for _, r := range []func() []byte{
			func() []byte {
				b, err := ioutil.ReadAll(NewStuffingReader(strings.NewReader(tt.raw)))
				require.NoError(t, err)
				return b
			},
			func() []byte {
				b, err := ioutil.ReadAll(NewStuffingReader(iotest.OneByteReader(strings.NewReader(tt.raw))))
				require.NoError(t, err)
				return b
			},
			func() []byte {
				b, err := ioutil.ReadAll(iotest.OneByteReader(NewStuffingReader(strings.NewReader(tt.raw))))
				require.NoError(t, err)
				return b
			},
		} {
			assert.Equal(t, tt.expected, string(r()), "%q", tt.raw)
		}
	}
}

func TestStuffingReaderError(t *testing.T) {
	r := NewStuffingReader(iotest.TimeoutReader(strings.NewReader(".first read\r\n")))

	b := make([]byte, 64)
	n, err := r.Read(b)
	require.NoError(t, err)
	assert.Equal(t, "..first read\r\n", string(b[:n]))

	_, err = r.Read(b)
	assert.Equal(t, iotest.ErrTimeout, err)
}
