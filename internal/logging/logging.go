package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Options struct {
	Level   string
	Format  string
	NoColor bool

	// Output defaults to stderr.
	Output io.Writer
}

// InitDefault sets up a console logger at info level. It is used before flags are parsed.
func InitDefault() {
	Init(Options{Level: "info", Format: FormatConsole})
}

// Init configures the global zerolog logger.
func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer = out
	if opts.Format != FormatJSON {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    opts.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	if err != nil && opts.Level != "" {
		log.Warn().Str("level", opts.Level).Msg("unknown log level, falling back to info")
	}
}
