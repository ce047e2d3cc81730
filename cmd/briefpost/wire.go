//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/lukasdietrich/briefpost/internal/certs"
	"github.com/lukasdietrich/briefpost/internal/crypto"
	"github.com/lukasdietrich/briefpost/internal/delivery"
	"github.com/lukasdietrich/briefpost/internal/dkim"
	"github.com/lukasdietrich/briefpost/internal/encoder"
	"github.com/lukasdietrich/briefpost/internal/storage"
	"github.com/lukasdietrich/briefpost/internal/transport"
)

var baseSet = wire.NewSet(
	crypto.NewIDGenerator,
	storage.WireSet,
	encoder.WireSet,
	transport.WireSet,
)

func newEncodeCommand() (*encodeCommand, error) {
	panic(wire.Build(
		wire.Struct(new(encodeCommand), "*"),
		baseSet,
	))
}

func newSendCommand() (*sendCommand, error) {
	panic(wire.Build(
		wire.Struct(new(sendCommand), "*"),
		baseSet,
		certs.WireSet,
		delivery.WireSet,
		dkim.WireSet,
	))
}
