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

package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/briefpost/internal/crypto"
	"github.com/lukasdietrich/briefpost/internal/log"
)

func init() {
	viper.SetDefault("storage.cache.foldername", "data/cache")
	viper.SetDefault("storage.cache.memorylimit", "1mb")
}

// CacheOptions configure where and when messages are evaded to disk.
type CacheOptions struct {
	Foldername  string
	MemoryLimit int64
}

// CacheOptionsFromViper reads the options from the "storage.cache" keys.
func CacheOptionsFromViper() CacheOptions {
	return CacheOptions{
		Foldername:  viper.GetString("storage.cache.foldername"),
		MemoryLimit: int64(viper.GetSizeInBytes("storage.cache.memorylimit")),
	}
}

// Cache holds outgoing messages until they are encoded. Small messages are
// kept in memory, larger ones are written to a temporary file.
type Cache interface {
	// Write consumes r completely and returns the cached content.
	Write(ctx context.Context, r io.Reader) (CacheEntry, error)
}

// CacheEntry is a cached message.
type CacheEntry interface {
	// Reader returns a reader starting at the beginning of the content. The
	// content can be read any number of times, but not concurrently.
	Reader() (io.Reader, error)
	// Bytes returns the content if it is held in memory.
	Bytes() ([]byte, bool)
	// Size returns the length of the content.
	Size() int64
	// Release frees all resources of the entry.
	Release(ctx context.Context) error
}

type cache struct {
	fs          afero.Fs
	idGen       crypto.IDGenerator
	memoryLimit int64
}

// NewCache creates the cache folder and returns a Cache using it.
func NewCache(fs afero.Fs, idGen crypto.IDGenerator, opts CacheOptions) (Cache, error) {
	if err := fs.MkdirAll(opts.Foldername, 0700); err != nil {
		return nil, err
	}

	return &cache{
		fs:          afero.NewBasePathFs(fs, opts.Foldername),
		idGen:       idGen,
		memoryLimit: opts.MemoryLimit,
	}, nil
}

func (c *cache) Write(ctx context.Context, r io.Reader) (CacheEntry, error) {
	var memory bytes.Buffer

	n, err := io.Copy(&memory, io.LimitReader(r, c.memoryLimit))
	if err != nil {
		return nil, err
	}

	if n < c.memoryLimit {
		return memoryEntry{data: memory.Bytes()}, nil
	}

	id, err := c.idGen.GenerateID()
	if err != nil {
		return nil, err
	}

	file, err := c.fs.Create(id)
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx).
		Str("filename", id).
		Int64("memoryLimit", c.memoryLimit).
		Msg("message exceeding memory limit, evading to file")

	size, err := io.Copy(file, io.MultiReader(&memory, r))
	if err != nil {
		log.WarnContext(ctx).
			Str("filename", id).
			Err(err).
			Msg("could not write cache file")

		c.discard(ctx, id, file)
		return nil, err
	}

	return fileEntry{id: id, file: file, fs: c.fs, size: size}, nil
}

func (c *cache) discard(ctx context.Context, id string, file afero.File) {
	if err := file.Close(); err != nil {
		log.WarnContext(ctx).
			Str("filename", id).
			Err(err).
			Msg("could not close partial cache file")
	}

	if err := c.fs.Remove(id); err != nil {
		log.WarnContext(ctx).
			Str("filename", id).
			Err(err).
			Msg("could not remove partial cache file")
	}
}

type memoryEntry struct {
	data []byte
}

func (e memoryEntry) Reader() (io.Reader, error) {
	return bytes.NewReader(e.data), nil
}

func (e memoryEntry) Bytes() ([]byte, bool) {
	return e.data, true
}

func (e memoryEntry) Size() int64 {
	return int64(len(e.data))
}

func (memoryEntry) Release(context.Context) error {
	return nil
}

type fileEntry struct {
	id   string
	file afero.File
	fs   afero.Fs
	size int64
}

func (e fileEntry) Reader() (io.Reader, error) {
	if _, err := e.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	return e.file, nil
}

func (fileEntry) Bytes() ([]byte, bool) {
	return nil, false
}

func (e fileEntry) Size() int64 {
	return e.size
}

func (e fileEntry) Release(ctx context.Context) error {
	log.InfoContext(ctx).
		Str("filename", e.id).
		Msg("removing cache file")

	if err := e.file.Close(); err != nil {
		return err
	}

	return e.fs.Remove(e.id)
}
