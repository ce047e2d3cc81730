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
	"bytes"
	"context"
	"errors"
	"io"
	"io/ioutil"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader) string {
	b, err := ioutil.ReadAll(NewReader(context.Background(), r))
	require.NoError(t, err)
	return string(b)
}

func TestReaderMatchesTerminator(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"\r",
		"\n",
		"hello",
		"hello\r\n",
		"hello\r",
		"hello\n",
		"\r\n",
		"line 1\r\nline 2\r\n",
		"line 1\r\nline 2",
	}

	wrappers := map[string]func(io.Reader) io.Reader{
		"plain":    func(r io.Reader) io.Reader { return r },
		"one byte": iotest.OneByteReader,
		"half":     iotest.HalfReader,
		"data eof": iotest.DataErrReader,
	}

	for name, wrap := range wrappers {
		for _, input := range inputs {
			expected := string(Append(nil, []byte(input)))
			actual := readAll(t, wrap(strings.NewReader(input)))

			assert.Equal(t, expected, actual, "%s: %q", name, input)
		}
	}
}

func TestReaderSmallBuffer(t *testing.T) {
	r := NewReader(context.Background(), strings.NewReader("ab\r"))

	var (
		out bytes.Buffer
		b   = make([]byte, 1)
	)

	for {
		n, err := r.Read(b)
		out.Write(b[:n])

		if err == io.EOF {
			break
		}

		require.NoError(t, err)
	}

	assert.Equal(t, "ab\r\n.\r\n", out.String())
}

func TestReaderEmptyRead(t *testing.T) {
	r := NewReader(context.Background(), strings.NewReader("x"))

	n, err := r.Read(nil)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)
}

func TestReaderReadError(t *testing.T) {
	failure := errors.New("disk on fire")
	r := NewReader(context.Background(),
		io.MultiReader(strings.NewReader("partial\r\n"), iotest.ErrReader(failure)))

	b, err := ioutil.ReadAll(r)
	assert.True(t, errors.Is(err, failure))
	assert.Equal(t, "partial\r\n", string(b))

	// the failure is sticky and never turns into a terminator
	n, err := r.Read(make([]byte, 16))
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, failure))
}

func TestReaderCanceledBeforeRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := ioutil.ReadAll(NewReader(ctx, strings.NewReader("hello")))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, b)
}

func TestReaderCanceledBeforeTerminator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReader(ctx, strings.NewReader("hello"))

	b := make([]byte, 5)
	n, err := io.ReadFull(r, b)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b[:n]))

	cancel()

	rest, err := ioutil.ReadAll(r)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotContains(t, string(rest), ".\r\n")
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestReaderClose(t *testing.T) {
	underlying := &closeRecorder{Reader: strings.NewReader("hello")}
	r := NewReader(context.Background(), underlying)

	require.NoError(t, r.Close())
	assert.True(t, underlying.closed)

	_, err := r.Read(make([]byte, 16))
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestReaderCloseAfterEOF(t *testing.T) {
	r := NewReader(context.Background(), strings.NewReader("hello"))

	_, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	n, err := r.Read(make([]byte, 16))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}
