// Package logging builds the log15 logger shared by every sweep component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/inconshreveable/log15"
)

const (
	EnvLogLevel  = "SWEEP_LOG_LEVEL"
	EnvLogFormat = "SWEEP_LOG_FORMAT"
)

const (
	FormatLogfmt   = "logfmt"
	FormatJSON     = "json"
	FormatTerminal = "terminal"
)

// Options controls how the root logger writes records
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New returns a root logger writing to opts.Output (stdout by default),
// after applying the SWEEP_LOG_* environment overrides.
func New(opts Options) log15.Logger {
	applyEnvOverrides(&opts)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	lvl, ok := ParseLevel(opts.Level)
	if !ok {
		lvl = log15.LvlInfo
	}

	logger := log15.New()
	logger.SetHandler(
		log15.LvlFilterHandler(
			lvl,
			log15.StreamHandler(out, formatFor(opts.Format)),
		),
	)
	return logger
}

// Discard returns a logger that drops everything
func Discard() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

func applyEnvOverrides(opts *Options) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		opts.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		opts.Format = v
	}
}

// ParseLevel maps a level name to a log15 level
func ParseLevel(raw string) (log15.Lvl, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "debug", "trace":
		return log15.LvlDebug, true
	case "info":
		return log15.LvlInfo, true
	case "warn", "warning":
		return log15.LvlWarn, true
	case "error":
		return log15.LvlError, true
	case "crit", "critical":
		return log15.LvlCrit, true
	default:
		return log15.LvlInfo, false
	}
}

func formatFor(name string) log15.Format {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FormatJSON:
		return log15.JsonFormat()
	case FormatTerminal:
		return log15.TerminalFormat()
	default:
		return log15.LogfmtFormat()
	}
}
