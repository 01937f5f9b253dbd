package cmd

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
)

var verbose = flag.Bool("v", false, "Enable debug logging")

// newLogger builds the console logger shared by all subcommands.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
