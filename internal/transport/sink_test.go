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

package transport

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/lukasdietrich/briefpost/internal/dataterm"
	"github.com/lukasdietrich/briefpost/internal/encoder"
)

func TestSinkOptionsFromViper(t *testing.T) {
	viper.Set("transport.chunksize", "16kb")

	expected := SinkOptions{ChunkSize: 16 * 1024}
	actual := SinkOptionsFromViper()
	assert.Equal(t, expected, actual)
}

func TestNewSinkMinimumChunkSize(t *testing.T) {
	assert.Equal(t, minChunkSize, NewSink(SinkOptions{}).chunkSize)
	assert.Equal(t, 4096, NewSink(SinkOptions{ChunkSize: 4096}).chunkSize)
}

type recorder struct {
	bytes.Buffer

	writes  int
	flushes int
	onWrite func()
	err     error
}

func (r *recorder) Write(b []byte) (int, error) {
	r.writes++

	if r.onWrite != nil {
		r.onWrite()
	}

	if r.err != nil {
		return 0, r.err
	}

	return r.Buffer.Write(b)
}

func (r *recorder) Flush() error {
	r.flushes++
	return nil
}

type closeRecorder struct {
	*strings.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestSinkTestSuite(t *testing.T) {
	suite.Run(t, new(SinkTestSuite))
}

type SinkTestSuite struct {
	suite.Suite

	sink   *Sink
	out    *recorder
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *SinkTestSuite) SetupTest() {
	s.sink = NewSink(SinkOptions{ChunkSize: minChunkSize})
	s.out = new(recorder)
	s.ctx, s.cancel = context.WithCancel(context.Background())
}

func (s *SinkTestSuite) TearDownTest() {
	s.cancel()
}

func (s *SinkTestSuite) streamFrame(data string) (encoder.StreamFrame, *closeRecorder) {
	underlying := &closeRecorder{Reader: strings.NewReader(data)}
	return encoder.StreamFrame{ReadCloser: dataterm.NewReader(s.ctx, underlying)}, underlying
}

func (s *SinkTestSuite) TestBufferFrame() {
	data := strings.Repeat("x", 1200) + "\r\n.\r\n"

	n, err := s.sink.Write(s.ctx, s.out, encoder.BufferFrame(data))
	s.Require().NoError(err)
	s.Assert().EqualValues(len(data), n)
	s.Assert().Equal(data, s.out.String())
	s.Assert().Equal(3, s.out.writes)
	s.Assert().Equal(3, s.out.flushes)
}

func (s *SinkTestSuite) TestEmptyBufferFrame() {
	n, err := s.sink.Write(s.ctx, s.out, encoder.BufferFrame(nil))
	s.Require().NoError(err)
	s.Assert().Zero(n)
	s.Assert().Zero(s.out.writes)
}

func (s *SinkTestSuite) TestStreamFrame() {
	data := strings.Repeat("y", 1024)
	frame, underlying := s.streamFrame(data)

	n, err := s.sink.Write(s.ctx, s.out, frame)
	s.Require().NoError(err)
	s.Assert().EqualValues(len(data)+5, n)
	s.Assert().Equal(data+"\r\n.\r\n", s.out.String())
	s.Assert().Equal(3, s.out.writes)
	s.Assert().True(underlying.closed)
}

func (s *SinkTestSuite) TestStreamFrameCanceled() {
	data := strings.Repeat("z", 2000)
	frame, underlying := s.streamFrame(data)

	s.out.onWrite = s.cancel

	_, err := s.sink.Write(s.ctx, s.out, frame)
	s.Assert().True(errors.Is(err, context.Canceled))
	s.Assert().Equal(1, s.out.writes)
	s.Assert().NotContains(s.out.String(), ".\r\n")
	s.Assert().True(underlying.closed)
}

func (s *SinkTestSuite) TestBufferFrameCanceled() {
	data := strings.Repeat("w", 1500) + "\r\n.\r\n"

	s.out.onWrite = s.cancel

	n, err := s.sink.Write(s.ctx, s.out, encoder.BufferFrame(data))
	s.Assert().True(errors.Is(err, context.Canceled))
	s.Assert().EqualValues(minChunkSize, n)
	s.Assert().NotContains(s.out.String(), ".\r\n")
}

func (s *SinkTestSuite) TestWriteError() {
	failure := errors.New("connection reset")
	s.out.err = failure

	_, err := s.sink.Write(s.ctx, s.out, encoder.BufferFrame("data\r\n.\r\n"))
	s.Assert().True(errors.Is(err, failure))

	frame, underlying := s.streamFrame("data")

	_, err = s.sink.Write(s.ctx, s.out, frame)
	s.Assert().True(errors.Is(err, failure))
	s.Assert().True(underlying.closed)
}

func (s *SinkTestSuite) TestUnsupportedFrame() {
	_, err := s.sink.Write(s.ctx, ioutil.Discard, nil)
	s.Assert().Error(err)
}
