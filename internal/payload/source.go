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
	"io/ioutil"

	"github.com/spf13/afero"

	"github.com/lukasdietrich/briefpost/internal/storage"
)

// Transform rewrites a message variant before it is dot-stuffed.
type Transform func(msg []byte) ([]byte, error)

// FromMessage returns a buffered payload for a raw message. The 8-bit
// variant is the message itself, the 7-bit variant is produced by
// ToSevenBit. The transforms are applied to each variant on its own, then
// both variants are dot-stuffed.
func FromMessage(msg []byte, transforms ...Transform) *Buffered {
	return &Buffered{
		SevenBit: func() ([]byte, error) {
			converted, err := ToSevenBit(msg)
			if err != nil {
				return nil, err
			}

			return transform(converted, transforms)
		},
		EightBit: func() ([]byte, error) {
			return transform(msg, transforms)
		},
	}
}

func transform(msg []byte, transforms []Transform) ([]byte, error) {
	var err error

	for _, t := range transforms {
		if msg, err = t(msg); err != nil {
			return nil, err
		}
	}

	return Stuff(msg), nil
}

// FromFile returns a streamed payload reading a raw message file. The file
// is opened again on every accessor call.
func FromFile(fs afero.Fs, filename string) *Streamed {
	return fromOpener(func() (io.ReadCloser, error) {
		return fs.Open(filename)
	})
}

// FromCache returns a payload for a cached message. Entries held in memory
// become buffered payloads, entries evaded to disk become streamed payloads.
func FromCache(entry storage.CacheEntry) Payload {
	if data, ok := entry.Bytes(); ok {
		return FromMessage(data)
	}

	return fromOpener(func() (io.ReadCloser, error) {
		r, err := entry.Reader()
		if err != nil {
			return nil, err
		}

		return ioutil.NopCloser(r), nil
	})
}

type opener func() (io.ReadCloser, error)

func fromOpener(open opener) *Streamed {
	return &Streamed{
		SevenBit: func() (io.ReadCloser, error) {
			eightBit, err := scan8Bit(open)
			if err != nil {
				return nil, err
			}

			r, err := open()
			if err != nil {
				return nil, err
			}

			if !eightBit {
				return readCloser{NewStuffingReader(r), r}, nil
			}

			converted := NewSevenBitReader(r)
			return readCloser{NewStuffingReader(converted), closers{converted, r}}, nil
		},
		EightBit: func() (io.ReadCloser, error) {
			r, err := open()
			if err != nil {
				return nil, err
			}

			return readCloser{NewStuffingReader(r), r}, nil
		},
	}
}

func scan8Bit(open opener) (bool, error) {
	r, err := open()
	if err != nil {
		return false, err
	}

	defer r.Close()

	b := make([]byte, 32*1024)

	for {
		n, err := r.Read(b)
		if Is8Bit(b[:n]) {
			return true, nil
		}

		if err == io.EOF {
			return false, nil
		}

		if err != nil {
			return false, err
		}
	}
}

type closers []io.Closer

func (c closers) Close() error {
	var first error

	for _, closer := range c {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
