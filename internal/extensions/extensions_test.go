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

package extensions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	set := Parse([]string{
		"mx.example.com greets you",
		"PIPELINING",
		"SIZE 35882577",
		"8bitmime",
		"AUTH PLAIN LOGIN",
		"",
	})

	assert.Equal(t, 4, set.Len())
	assert.True(t, set.Supports(EightBitMIME))
	assert.True(t, set.Supports("8BitMime"))
	assert.True(t, set.Supports(Pipelining))
	assert.False(t, set.Supports(StartTLS))

	size, ok := set.Param(Size)
	assert.True(t, ok)
	assert.Equal(t, "35882577", size)

	auth, ok := set.Param("auth")
	assert.True(t, ok)
	assert.Equal(t, "PLAIN LOGIN", auth)

	assert.Equal(t, []string{"8BITMIME", "AUTH", "PIPELINING", "SIZE"}, set.Names())
}

func TestParseGreetingOnly(t *testing.T) {
	set := Parse([]string{"mx.example.com"})

	assert.Equal(t, 0, set.Len())
	assert.False(t, set.Supports(EightBitMIME))
}

func TestZeroSet(t *testing.T) {
	var set Set

	assert.False(t, set.Supports(EightBitMIME))
	assert.Empty(t, set.Names())
}

func TestNew(t *testing.T) {
	set := New("8bitmime", StartTLS)

	assert.True(t, set.Supports(EightBitMIME))
	assert.True(t, set.Supports("starttls"))
	assert.False(t, set.Supports(SMTPUTF8))

	param, ok := set.Param(StartTLS)
	assert.True(t, ok)
	assert.Empty(t, param)
}
