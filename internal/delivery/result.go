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

package delivery

import (
	"fmt"

	"github.com/lukasdietrich/briefpost/internal/mails"
	"github.com/lukasdietrich/briefpost/internal/textproto"
)

// Status is the outcome of a transaction for a single recipient.
type Status int

const (
	// StatusDelivered means the server accepted responsibility for the mail.
	StatusDelivered Status = iota
	// StatusDeferred means the server rejected the recipient or the data
	// with a transient error.
	StatusDeferred
	// StatusFailed means the server rejected the recipient or the data
	// permanently.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusDeferred:
		return "deferred"
	case StatusFailed:
		return "failed"
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of a transaction for a single recipient.
type Result struct {
	Recipient mails.Address
	Status    Status
	Code      int
	Text      string
}

func statusOf(code int) Status {
	switch {
	case code >= 200 && code < 300:
		return StatusDelivered
	case code >= 500:
		return StatusFailed
	}

	return StatusDeferred
}

func resultOf(recipient mails.Address, reply textproto.Reply) Result {
	return Result{
		Recipient: recipient,
		Status:    statusOf(reply.Code),
		Code:      reply.Code,
		Text:      reply.Text(),
	}
}

// SendResult summarizes the results of all recipients of a transaction.
type SendResult int

const (
	_ SendResult = 1 << iota
	// SomeDeferred means at least one recipient is still pending, because of a
	// transient error.
	SomeDeferred
	// SomeFailed means at least one recipient permanently failed.
	SomeFailed
	// SomeDelivered means at least one recipient was delivered successfully.
	SomeDelivered
)

// Summarize combines the status of every result.
func Summarize(results []Result) SendResult {
	var summary SendResult

	for _, result := range results {
		switch result.Status {
		case StatusDelivered:
			summary |= SomeDelivered
		case StatusDeferred:
			summary |= SomeDeferred
		case StatusFailed:
			summary |= SomeFailed
		}
	}

	return summary
}

// Has reports whether all bits of flag are set.
func (s SendResult) Has(flag SendResult) bool {
	return s&flag == flag
}
