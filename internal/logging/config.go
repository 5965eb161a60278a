// Package logging configures the process-wide zerolog logger. It replaces
// the teacher's private smplog wrapper (not present in this retrieval pack)
// with direct zerolog usage — JSON when the configured format is json,
// console output otherwise (colored via go-colorable when go-isatty reports
// a terminal, plain when not), optional file rotation via lumberjack when a
// configured output names a file path.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogLevel  = "LOG_LEVEL"
	EnvBacktrace = "RUST_BACKTRACE" // read for operator-tooling parity; see REDESIGN FLAGS
)

// Format selects the on-disk/console encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config mirrors the [logging] section of default.toml (§6).
type Config struct {
	Level  string   // error|warn|info|debug|trace
	Format Format   // text|json
	Output []string // "stdout", "stderr", or a file path
}

// DefaultConfig matches the runtime default: info level, text format,
// stdout only.
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatText, Output: []string{"stdout"}}
}

var configureOnce sync.Once

// Configure installs the process-wide zerolog logger exactly once. Later
// calls are no-ops so tests and main() can both call it safely.
func Configure(cfg Config) {
	configureOnce.Do(func() {
		applyEnvOverrides(&cfg)
		log.Logger = build(cfg)
	})
}

func build(cfg Config) zerolog.Logger {
	level, ok := parseLevel(cfg.Level)
	if !ok {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	outputs := cfg.Output
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	writers := make([]io.Writer, 0, len(outputs))
	for _, out := range outputs {
		writers = append(writers, writerFor(out, cfg.Format))
	}

	var w io.Writer
	if len(writers) == 1 {
		w = writers[0]
	} else {
		w = io.MultiWriter(writers...)
	}

	logger := zerolog.New(w).With().Timestamp().Logger()

	if bt := os.Getenv(EnvBacktrace); bt != "" {
		logger.Trace().Str("RUST_BACKTRACE", bt).Msg("logging: backtrace env observed (no-op on this runtime)")
	}
	return logger
}

// writerFor resolves one [logging].output entry into an io.Writer: stdout
// and stderr get color-aware console formatting when the format is text and
// the stream is a TTY, any other value is treated as a file path rotated
// with lumberjack.
func writerFor(out string, format Format) io.Writer {
	switch out {
	case "stdout":
		return consoleOrJSON(os.Stdout, format)
	case "stderr":
		return consoleOrJSON(os.Stderr, format)
	default:
		return &lumberjack.Logger{
			Filename:   out,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
}

func consoleOrJSON(f *os.File, format Format) io.Writer {
	if format == FormatJSON {
		return f
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return zerolog.ConsoleWriter{Out: colorable.NewColorable(f), TimeFormat: time.RFC3339}
	}
	return zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true}
}

// SetLevel adjusts the global zerolog level at runtime, backing the Admin
// Control Socket's SetLogLevel command (§4.10).
func SetLevel(level string) error {
	parsed, ok := parseLevel(level)
	if !ok {
		return fmt.Errorf("logging: invalid level %q", level)
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevelName(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
}

func parseLevelName(raw string) (string, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled":
		return raw, true
	default:
		return "", false
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
