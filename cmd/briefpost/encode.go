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

package main

import (
	"bufio"
	"context"
	"errors"
	"io/ioutil"
	"os"

	"github.com/spf13/afero"

	"github.com/lukasdietrich/briefpost/internal/encoder"
	"github.com/lukasdietrich/briefpost/internal/extensions"
	"github.com/lukasdietrich/briefpost/internal/log"
	"github.com/lukasdietrich/briefpost/internal/payload"
	"github.com/lukasdietrich/briefpost/internal/storage"
	"github.com/lukasdietrich/briefpost/internal/transport"
)

type encodeCommand struct {
	Fs      afero.Fs
	Cache   storage.Cache
	Encoder *encoder.Encoder
	Sink    *transport.Sink
}

func (e *encodeCommand) run(ctx context.Context, inv invocation) error {
	if len(inv.args) != 1 {
		return errors.New("usage: briefpost encode FILE")
	}

	p, release, err := openPayload(ctx, e.Fs, e.Cache, inv.args[0])
	if err != nil {
		return err
	}

	defer release()

	var caps extensions.Set
	if inv.eightBitMIME {
		caps = extensions.New(extensions.EightBitMIME)
	}

	frame, err := e.Encoder.EncodePayload(ctx, caps, p)
	if err != nil {
		return err
	}

	stdout := bufio.NewWriter(os.Stdout)

	n, err := e.Sink.Write(ctx, stdout, frame)
	if err != nil {
		return err
	}

	log.DebugContext(ctx).
		Int64("bytes", n).
		Msg("message encoded")

	return nil
}

// openPayload returns the payload of a message file. The name "-" reads the
// message from stdin into the cache. With transforms the message is loaded
// into memory.
func openPayload(
	ctx context.Context,
	fs afero.Fs,
	cache storage.Cache,
	name string,
	transforms ...payload.Transform,
) (payload.Payload, func(), error) {
	if name != "-" {
		if len(transforms) > 0 {
			msg, err := afero.ReadFile(fs, name)
			if err != nil {
				return nil, nil, err
			}

			return payload.FromMessage(msg, transforms...), func() {}, nil
		}

		if _, err := fs.Stat(name); err != nil {
			return nil, nil, err
		}

		return payload.FromFile(fs, name), func() {}, nil
	}

	entry, err := cache.Write(ctx, os.Stdin)
	if err != nil {
		return nil, nil, err
	}

	release := func() {
		if err := entry.Release(ctx); err != nil {
			log.WarnContext(ctx).
				Err(err).
				Msg("could not release cached message")
		}
	}

	if len(transforms) == 0 {
		return payload.FromCache(entry), release, nil
	}

	msg, ok := entry.Bytes()
	if !ok {
		r, err := entry.Reader()
		if err != nil {
			release()
			return nil, nil, err
		}

		if msg, err = ioutil.ReadAll(r); err != nil {
			release()
			return nil, nil, err
		}
	}

	return payload.FromMessage(msg, transforms...), release, nil
}
