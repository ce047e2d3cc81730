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

package mails

import (
	"errors"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidAddressFormat is used for addresses of zero length or without
	// an "@" sign.
	ErrInvalidAddressFormat = errors.New("address: invalid format")

	// ErrPathTooLong is used for addresses, that are too long or contain a path
	// that is too long according to RFC#5321.
	ErrPathTooLong = errors.New("address: path too long")

	// ZeroAddress is the null reverse-path "<>".
	ZeroAddress Address
)

// Address is a string of the form "local-part@domain".
type Address struct {
	raw string
	at  int
}

// ParseAddress splits an address at the "@" sign and checks for size limits.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "<"), ">")

	if len(raw) == 0 {
		return ZeroAddress, ErrInvalidAddressFormat
	}

	at := strings.LastIndex(raw, "@")
	if at < 1 || at == len(raw)-1 {
		return ZeroAddress, ErrInvalidAddressFormat
	}

	// see RFC#5321 4.5.3.1
	if at > 64 || len(raw)-at > 256 || len(raw) > 256 {
		return ZeroAddress, ErrPathTooLong
	}

	return Address{raw, at}, nil
}

// IsZero reports whether a is the null reverse-path.
func (a Address) IsZero() bool {
	return a.raw == ""
}

// String returns the address without angle brackets.
func (a Address) String() string {
	return a.raw
}

// Path returns the address enclosed in angle brackets as used in the MAIL
// and RCPT commands. The zero address becomes "<>".
func (a Address) Path() string {
	return "<" + a.raw + ">"
}

// LocalPart returns the part left of the "@" sign (exclusive).
func (a Address) LocalPart() string {
	if a.IsZero() {
		return ""
	}

	return a.raw[:a.at]
}

// Domain return the part right of the "@" sign (exclusive).
func (a Address) Domain() string {
	if a.IsZero() {
		return ""
	}

	return a.raw[a.at+1:]
}

// ToASCII returns the address with its domain transformed to punycode.
func (a Address) ToASCII() (Address, error) {
	if a.IsZero() {
		return a, nil
	}

	domain, err := DomainToASCII(a.Domain())
	if err != nil {
		return a, err
	}

	return Address{a.LocalPart() + "@" + domain, a.at}, nil
}

// DomainToUnicode normalizes a punycode domain to unicode and applies the
// NFC normal form.
func DomainToUnicode(domain string) (string, error) {
	mapped, err := idna.Lookup.ToUnicode(domain)
	if err != nil {
		return domain, err
	}

	return norm.NFC.String(mapped), nil
}

// DomainToASCII transforms a unicode domain to punycode.
func DomainToASCII(domain string) (string, error) {
	mapped, err := DomainToUnicode(domain)
	if err != nil {
		return domain, err
	}

	return idna.Lookup.ToASCII(mapped)
}
