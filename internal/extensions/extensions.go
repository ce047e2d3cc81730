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

// Package extensions holds the set of service extensions a server announced
// in its reply to EHLO or LHLO.
package extensions

import (
	"sort"
	"strings"
)

// Well known extension keywords.
const (
	EightBitMIME = "8BITMIME"
	Pipelining   = "PIPELINING"
	StartTLS     = "STARTTLS"
	Size         = "SIZE"
	SMTPUTF8     = "SMTPUTF8"
)

// Capabilities answers membership queries for extension keywords.
type Capabilities interface {
	// Supports reports whether the keyword was announced. Keywords are
	// compared case insensitive.
	Supports(name string) bool
}

// Set is an immutable set of extension keywords and their parameters.
// The zero value is an empty set.
type Set struct {
	params map[string]string
}

// New returns a Set containing the given keywords without parameters.
func New(names ...string) Set {
	params := make(map[string]string, len(names))
	for _, name := range names {
		params[strings.ToUpper(name)] = ""
	}

	return Set{params: params}
}

// Parse builds a Set from the text lines of a positive EHLO reply. The first
// line is the greeting of the server and does not name an extension.
func Parse(lines []string) Set {
	if len(lines) < 2 {
		return Set{}
	}

	params := make(map[string]string, len(lines)-1)

	for _, line := range lines[1:] {
		fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
		if fields[0] == "" {
			continue
		}

		var param string
		if len(fields) > 1 {
			param = strings.TrimSpace(fields[1])
		}

		params[strings.ToUpper(fields[0])] = param
	}

	return Set{params: params}
}

func (s Set) Supports(name string) bool {
	_, ok := s.params[strings.ToUpper(name)]
	return ok
}

// Param returns the parameter string announced along with the keyword.
func (s Set) Param(name string) (string, bool) {
	param, ok := s.params[strings.ToUpper(name)]
	return param, ok
}

// Len returns the number of keywords in the set.
func (s Set) Len() int {
	return len(s.params)
}

// Names returns the keywords in lexical order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.params))
	for name := range s.params {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
