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

	"github.com/rs/zerolog"
)

type fieldSession struct{}
type fieldHost struct{}
type fieldMessage struct{}

// WithSession attaches the id of an outbound session to the context.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, fieldSession{}, session)
}

// WithHost attaches the remote host of an outbound session to the context.
func WithHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, fieldHost{}, host)
}

// WithMessage attaches the name of the message being transferred.
func WithMessage(ctx context.Context, message string) context.Context {
	return context.WithValue(ctx, fieldMessage{}, message)
}

func appendContextFields(ctx context.Context, event *zerolog.Event) *zerolog.Event {
	if session, ok := ctx.Value(fieldSession{}).(string); ok {
		event.Str("session", session)
	}

	if host, ok := ctx.Value(fieldHost{}).(string); ok {
		event.Str("host", host)
	}

	if message, ok := ctx.Value(fieldMessage{}).(string); ok {
		event.Str("mail", message)
	}

	return event
}
