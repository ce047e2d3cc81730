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
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/lukasdietrich/briefpost/internal/delivery"
	"github.com/lukasdietrich/briefpost/internal/dkim"
	"github.com/lukasdietrich/briefpost/internal/mails"
	"github.com/lukasdietrich/briefpost/internal/payload"
	"github.com/lukasdietrich/briefpost/internal/storage"
)

type sendCommand struct {
	Fs      afero.Fs
	Cache   storage.Cache
	Courier *delivery.Courier
	Signer  *dkim.Signer
}

func (s *sendCommand) run(ctx context.Context, inv invocation) error {
	if len(inv.args) != 2 {
		return errors.New("usage: briefpost send --from ADDRESS --to ADDRESS HOST FILE")
	}

	envelope, err := parseEnvelope(inv.from, inv.to)
	if err != nil {
		return err
	}

	host, err := mails.DomainToASCII(inv.args[0])
	if err != nil {
		return err
	}

	var transforms []payload.Transform
	if s.Signer != nil {
		transforms = append(transforms, s.Signer.Transform(envelope.From))
	}

	p, release, err := openPayload(ctx, s.Fs, s.Cache, inv.args[1], transforms...)
	if err != nil {
		return err
	}

	defer release()

	results, err := s.Courier.Send(ctx, host, envelope, p)
	for _, result := range results {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%03d %s\n",
			result.Recipient, result.Status, result.Code, result.Text)
	}

	if err != nil {
		return err
	}

	if summary := delivery.Summarize(results); !summary.Has(delivery.SomeDelivered) {
		return errors.New("no recipient was delivered")
	}

	return nil
}

func parseEnvelope(from string, to []string) (mails.Envelope, error) {
	var envelope mails.Envelope

	if from != "" {
		address, err := mails.ParseAddress(from)
		if err != nil {
			return envelope, fmt.Errorf("invalid reverse-path %q: %w", from, err)
		}

		envelope.From = address
	}

	if len(to) == 0 {
		return envelope, delivery.ErrNoRecipients
	}

	for _, raw := range to {
		address, err := mails.ParseAddress(raw)
		if err != nil {
			return envelope, fmt.Errorf("invalid forward-path %q: %w", raw, err)
		}

		envelope.To = append(envelope.To, address)
	}

	return envelope, nil
}
