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

package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

func TestLogEventTestSuite(t *testing.T) {
	suite.Run(t, new(LogEventTestSuite))
}

type LogEventTestSuite struct {
	baseLogTestSuite
}

func (s *LogEventTestSuite) TestTrace() {
	Trace().Msg("TestTrace")
	s.assertMsg("{\"level\":\"trace\",\"message\":\"TestTrace\"}\n")
}

func (s *LogEventTestSuite) TestTraceContext() {
	TraceContext(WithHost(context.TODO(), "h1")).Msg("TestTraceContext")
	s.assertMsg("{\"level\":\"trace\",\"host\":\"h1\",\"message\":\"TestTraceContext\"}\n")
}

func (s *LogEventTestSuite) TestDebugContext() {
	DebugContext(WithHost(context.TODO(), "h2")).Msg("TestDebugContext")
	s.assertMsg("{\"level\":\"debug\",\"host\":\"h2\",\"message\":\"TestDebugContext\"}\n")
}

func (s *LogEventTestSuite) TestWarn() {
	Warn().Msg("TestWarn")
	s.assertMsg("{\"level\":\"warn\",\"message\":\"TestWarn\"}\n")
}

func (s *LogEventTestSuite) TestErrorContext() {
	ErrorContext(WithHost(context.TODO(), "h5")).Msg("TestErrorContext")
	s.assertMsg("{\"level\":\"error\",\"host\":\"h5\",\"message\":\"TestErrorContext\"}\n")
}

func (s *LogEventTestSuite) TestSetLevel() {
	s.Require().NoError(SetLevel("warn"))

	Info().Msg("TestSetLevel")
	s.assertMsg("")

	Warn().Msg("TestSetLevel")
	s.assertMsg("{\"level\":\"warn\",\"message\":\"TestSetLevel\"}\n")
}

func (s *LogEventTestSuite) TestSetLevelUnknown() {
	s.Assert().Error(SetLevel("loud"))
}
