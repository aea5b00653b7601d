// Package logging builds the slog loggers the CLI, the router and the
// render engine share.
package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Level represents a log level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the log output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Format is the output format (text or json).
	Format Format

	// Output is the writer to send logs to. Defaults to os.Stderr.
	Output io.Writer

	// AddSource adds source file and line to log entries.
	AddSource bool

	// Color wraps text level labels in ANSI colours. It has no effect on
	// JSON output.
	Color bool
}

// DefaultConfig returns the defaults: info level text on stderr, coloured
// when stderr is a terminal.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: os.Stderr,
		Color:  ShouldColor(os.Stderr),
	}
}

// New creates a new slog.Logger with the given configuration.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	default:
		out := cfg.Output
		if cfg.Color {
			out = &colorWriter{w: out}
		}
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel parses a log level string, case-insensitively.
// Valid values: "debug", "info", "warn", "warning", "error".
// Returns LevelInfo if the string is not recognized.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat parses a log format string.
// Returns FormatText if the string is not recognized.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// ShouldColor reports whether w is a terminal that accepts colour. The
// NO_COLOR convention and TERM=dumb turn colour off.
func ShouldColor(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

var levelLabels = []struct {
	label []byte
	color string
}{
	{[]byte("level=ERROR"), ansiRed},
	{[]byte("level=WARN"), ansiYellow},
	{[]byte("level=INFO"), ansiGreen},
	{[]byte("level=DEBUG"), ansiCyan},
}

// colorWriter paints the level label of each record. The text handler
// writes one record per Write call.
type colorWriter struct {
	w io.Writer
}

func (c *colorWriter) Write(p []byte) (int, error) {
	for _, l := range levelLabels {
		i := bytes.Index(p, l.label)
		if i < 0 {
			continue
		}
		start := i + len("level=")
		end := i + len(l.label)
		painted := make([]byte, 0, len(p)+len(l.color)+len(ansiReset))
		painted = append(painted, p[:start]...)
		painted = append(painted, l.color...)
		painted = append(painted, p[start:end]...)
		painted = append(painted, ansiReset...)
		painted = append(painted, p[end:]...)
		if _, err := c.w.Write(painted); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	return c.w.Write(p)
}
