// Package runlog writes the append-only run log.
//
// The log is a plain text file, one timestamped line per event, with a dashed
// separator marking run boundaries, so each execution leaves a well-formed
// block regardless of where it failed. It is not a structured/queryable
// format; zerolog's console writer renders the lines.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	separatorWidth = 50
	timeLayout     = "2006-01-02T15:04:05"
)

// Log writes timestamped lines and run separators to a single writer.
//
// Concurrency:
//   - The job is single-threaded; Log adds no locking of its own beyond what
//     zerolog provides.
type Log struct {
	zl   zerolog.Logger
	out  io.Writer
	file *os.File // non-nil only when opened via Open
}

// Open creates the log directory if needed and opens the file for appending.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runlog: create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runlog: open log file: %w", err)
	}
	l := New(f)
	l.file = f
	return l, nil
}

// New builds a Log writing to w. Tests pass a buffer.
func New(w io.Writer) *Log {
	cw := zerolog.ConsoleWriter{
		Out:     w,
		NoColor: true,
		FormatTimestamp: func(i any) string {
			t, err := time.Parse(time.RFC3339, fmt.Sprint(i))
			if err != nil {
				return fmt.Sprintf("[%v]", i)
			}
			return "[" + t.Format(timeLayout) + "]"
		},
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
	}
	return &Log{
		zl:  zerolog.New(cw).With().Timestamp().Logger(),
		out: w,
	}
}

// Infof logs an informational line.
func (l *Log) Infof(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

// Warnf logs a warning line (skipped item, missing optional field).
func (l *Log) Warnf(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

// Errorf logs an error line.
func (l *Log) Errorf(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

// Separator writes the dashed run-boundary line directly to the underlying
// writer, bypassing the timestamp formatting.
func (l *Log) Separator() {
	fmt.Fprintln(l.out, strings.Repeat("-", separatorWidth))
}

// Close closes the underlying file when the Log owns one.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
