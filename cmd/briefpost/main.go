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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/briefpost/internal/log"
)

const usageText = `
Usage:
  briefpost [OPTIONS] COMMAND ARGS

  Encode and hand over mail messages.

Version:
  %s

Commands:
  encode FILE        Write the DATA section of a message to stdout
  send HOST FILE     Deliver a message to HOST

  FILE may be "-" to read the message from stdin.

Options:
%s
`

var (
	// Version is set at compile-time.
	Version string
)

func init() {
	viper.SetDefault("log.level", "info")
}

// invocation holds the flags and arguments of a single run.
type invocation struct {
	eightBitMIME bool
	from         string
	to           []string
	args         []string
}

func main() {
	var (
		configFilename string
		envFilename    string
		inv            invocation
	)

	flags := pflag.NewFlagSet("briefpost", pflag.ContinueOnError)
	flags.StringVarP(&configFilename, "config", "c", "", "Path to a configuration file")
	flags.StringVarP(&envFilename, "env-file", "e", "", "Path to a file of environment variables")
	flags.BoolVar(&inv.eightBitMIME, "8bitmime", false, "Assume the receiver supports 8BITMIME (encode only)")
	flags.StringVarP(&inv.from, "from", "f", "", "Reverse-path of the envelope (send only)")
	flags.StringSliceVarP(&inv.to, "to", "t", nil, "Forward-paths of the envelope (send only)")
	flags.Usage = printUsage(flags)

	if err := flags.Parse(os.Args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}

		log.Fatal().Err(err).Msg("could not parse flags")
	}

	inv.args = flags.Args()[min(2, flags.NArg()):]

	switch commandName := flags.Arg(1); commandName {
	case "encode", "send":
		setupConfig(configFilename, envFilename)
		setupLogger()
		printConfig()
		runCommand(commandName, inv)
	default:
		flags.Usage()
	}
}

type command interface {
	run(ctx context.Context, inv invocation) error
}

func runCommand(commandName string, inv invocation) {
	var (
		cmd command
		err error
	)

	switch commandName {
	case "encode":
		cmd, err = newEncodeCommand()
	case "send":
		cmd, err = newSendCommand()
	}

	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize the application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, inv); err != nil {
		stop()
		log.Fatal().Err(err).Str("command", commandName).Msg("command failed")
	}
}

func printUsage(flags *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, usageText,
			Version,
			flags.FlagUsages())
	}
}

func setupLogger() {
	level := viper.GetString("log.level")

	if err := log.SetLevel(level); err != nil {
		log.Fatal().Err(err).Msg("unknown log level")
	}

	log.Info().Str("level", level).Msg("log level set")
}

func setupConfig(filename, envFilename string) {
	if envFilename != "" {
		loadEnv(envFilename)
	}

	viper.SetTypeByDefaultValue(true)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix("BRIEFPOST")

	if filename != "" {
		readConfig(filename)
	} else {
		log.Info().Msg("no config file provided. using environment only")
	}
}

// loadEnv adds the variables of an env file to the environment. Variables
// that are already set take precedence.
func loadEnv(filename string) {
	log.Info().Str("filename", filename).Msg("loading environment")

	if err := godotenv.Load(filename); err != nil {
		log.Fatal().Err(err).Msg("could not load environment")
	}
}

func readConfig(filename string) {
	log.Info().Str("filename", filename).Msg("loading configuration")
	viper.SetConfigFile(filename)

	if err := viper.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Warn().Err(err).Msg("configuration file missing")
		} else {
			log.Fatal().Err(err).Msg("could not load configuration")
		}
	}
}

func printConfig() {
	keys := viper.AllKeys()
	sort.Strings(keys)

	for _, key := range keys {
		v, _ := json.Marshal(viper.Get(key))
		log.Debug().RawJSON(key, v).Msg("config")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}

	return b
}
