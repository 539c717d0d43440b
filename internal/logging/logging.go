// Package logging configures the global zerolog logger: a console writer on
// stdout, optionally mirrored to a size-rotated log file.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const TimeFormat = "2006-01-02 15:04:05"

// Options controls Setup.
type Options struct {
	Debug bool
	// File, when set, receives JSON log lines rotated by lumberjack.
	File string
	// Out is the console destination, os.Stdout when nil.
	Out     io.Writer
	NoColor bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup replaces the global logger and level. The returned closer releases the
// log file and must be closed on shutdown.
func Setup(opts Options) io.Closer {
	if opts.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	console := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    opts.NoColor,
		TimeFormat: TimeFormat,
	}

	if opts.File == "" {
		log.Logger = log.Output(console)
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, file)).With().Timestamp().Logger()
	log.Debug().Str("file", opts.File).Msg("Logging to file")
	return file
}
