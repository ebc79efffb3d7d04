package log

import (
	"io"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Output wraps the destination writer. The zero value writes to stderr.
type Output struct {
	writer io.Writer
}

// Writer returns the destination, stderr when unset.
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// Config holds configuration for the logger
type Config struct {
	Level  Level
	Format Format
	Output Output

	// AddSource includes file:line in every entry.
	AddSource bool

	// Component is attached to every entry as "component".
	Component string

	// Reveal disables credential redaction. Only for local debugging.
	Reveal bool
}

// DefaultConfig keeps the CLI quiet: warnings and above, text, stderr.
// Stdout is reserved for command output.
func DefaultConfig() Config {
	return Config{
		Level:     LevelWarn,
		Format:    FormatText,
		Component: "authflow",
	}
}

// ServerConfig is used by the demo API server.
func ServerConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    FormatJSON,
		Component: "authflow-server",
	}
}
