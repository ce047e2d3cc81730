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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
)

var (
	// ErrNotConvertible is returned for 8-bit messages that cannot be turned
	// into a 7-bit representation without understanding their structure.
	ErrNotConvertible = errors.New("payload: message not convertible to 7bit")
)

const (
	headerTransferEncoding = "Content-Transfer-Encoding"
	headerContentType      = "Content-Type"
	headerMIMEVersion      = "MIME-Version"
)

// Is8Bit reports whether data contains bytes outside of the 7-bit range.
func Is8Bit(data []byte) bool {
	for _, c := range data {
		if c >= 0x80 {
			return true
		}
	}

	return false
}

// ToSevenBit returns a 7-bit representation of a message. Messages without
// 8-bit data are returned unchanged. Otherwise the body is re-encoded as
// quoted-printable, the transfer encoding header is replaced and a
// MIME-Version header is added, if there is none.
func ToSevenBit(msg []byte) ([]byte, error) {
	if !Is8Bit(msg) {
		return msg, nil
	}

	var buffer bytes.Buffer
	buffer.Grow(len(msg) + len(msg)/8)

	if err := convertSevenBit(&buffer, bytes.NewReader(msg)); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// NewSevenBitReader converts a message containing 8-bit data while it is
// read. Closing the returned reader stops the conversion.
func NewSevenBitReader(r io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(convertSevenBit(pw, r))
	}()

	return pr
}

func convertSevenBit(w io.Writer, r io.Reader) error {
	body := bufio.NewReader(r)

	lines, err := readHeaderLines(body)
	if err != nil {
		return err
	}

	if err := checkHeader(lines); err != nil {
		return err
	}

	header := bufio.NewWriter(w)

	var skip, hasVersion bool

	for _, line := range lines {
		if !isContinuation(line) {
			skip = isField(line, headerTransferEncoding)
			hasVersion = hasVersion || isField(line, headerMIMEVersion)
		}

		if !skip {
			header.Write(line) // nolint:errcheck
		}
	}

	if !hasVersion {
		header.WriteString(headerMIMEVersion + ": 1.0\r\n") // nolint:errcheck
	}

	header.WriteString(headerTransferEncoding + ": quoted-printable\r\n\r\n") // nolint:errcheck
	if err := header.Flush(); err != nil {
		return err
	}

	qp := quotedprintable.NewWriter(w)
	if _, err := io.Copy(qp, body); err != nil {
		return err
	}

	return qp.Close()
}

// readHeaderLines consumes the header section including the empty line
// separating it from the body. The separator is not returned.
func readHeaderLines(r *bufio.Reader) ([][]byte, error) {
	var lines [][]byte

	for {
		line, err := r.ReadBytes('\n')

		if len(line) > 0 {
			if isBlank(line) {
				return lines, nil
			}

			lines = append(lines, line)
		}

		if err == io.EOF {
			return lines, nil
		}

		if err != nil {
			return nil, err
		}
	}
}

func checkHeader(lines [][]byte) error {
	raw := bytes.Join(lines, nil)

	if Is8Bit(raw) {
		return fmt.Errorf("%w: 8-bit header", ErrNotConvertible)
	}

	if len(raw) > 0 && raw[len(raw)-1] != '\n' {
		raw = append(raw, '\r', '\n')
	}

	raw = append(raw, '\r', '\n')

	fields, err := textproto.NewReader(bufio.NewReader(bytes.NewReader(raw))).ReadMIMEHeader()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConvertible, err)
	}

	if contentType := fields.Get(headerContentType); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotConvertible, err)
		}

		if strings.HasPrefix(mediaType, "multipart/") || strings.HasPrefix(mediaType, "message/") {
			return fmt.Errorf("%w: composite type %s", ErrNotConvertible, mediaType)
		}
	}

	return nil
}

func isBlank(line []byte) bool {
	return len(bytes.TrimRight(line, "\r\n")) == 0
}

func isContinuation(line []byte) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

func isField(line []byte, name string) bool {
	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		return false
	}

	return strings.EqualFold(string(bytes.TrimSpace(line[:colon])), name)
}
