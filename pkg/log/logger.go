// Structured logging for the hkl Go migration
//
// Provides a small logging system with support for:
// - Log levels (DEBUG, INFO, WARN, ERROR)
// - Structured fields (key-value pairs)
// - Text or JSON output
// - Per-component loggers with prefixes
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota

	// INFO level for general informational messages
	INFO

	// WARN level for warning messages
	WARN

	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a LogLevel
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// OutputFormat specifies the output format for log messages
type OutputFormat int

const (
	// FormatText outputs human-readable text format
	FormatText OutputFormat = iota
	// FormatJSON outputs machine-readable JSON format
	FormatJSON
)

// Fields is a map of structured logging fields
type Fields map[string]interface{}

// Logger is the main logging type
type Logger struct {
	mu         sync.Mutex
	prefix     string
	writer     io.Writer
	level      LogLevel
	timeFormat string
	outFormat  OutputFormat
	fields     Fields // Persistent fields attached to this logger
}

// New creates a logger writing to stderr at INFO level.
func New(prefix string) *Logger {
	return &Logger{
		prefix:     prefix,
		writer:     os.Stderr,
		level:      INFO,
		timeFormat: time.RFC3339,
	}
}

// SetLevel sets the minimum level that will be output
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput sets the destination writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// SetFormat sets the output format
func (l *Logger) SetFormat(f OutputFormat) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outFormat = f
}

// WithPrefix returns a child logger with an extended component prefix.
// Persistent fields are shared, not copied.
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := prefix
	if l.prefix != "" {
		p = l.prefix + "." + prefix
	}
	return &Logger{
		prefix:     p,
		writer:     l.writer,
		level:      l.level,
		timeFormat: l.timeFormat,
		outFormat:  l.outFormat,
		fields:     l.fields,
	}
}

// WithFields returns a child logger with additional persistent fields
func (l *Logger) WithFields(fields Fields) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		prefix:     l.prefix,
		writer:     l.writer,
		level:      l.level,
		timeFormat: l.timeFormat,
		outFormat:  l.outFormat,
		fields:     merged,
	}
}

func (l *Logger) output(level LogLevel, msg string, fields Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	now := time.Now().Format(l.timeFormat)

	if l.outFormat == FormatJSON {
		rec := map[string]interface{}{
			"time":  now,
			"level": level.String(),
			"msg":   msg,
		}
		if l.prefix != "" {
			rec["component"] = l.prefix
		}
		for k, v := range merged {
			rec[k] = v
		}
		b, err := json.Marshal(rec)
		if err != nil {
			fmt.Fprintf(l.writer, "%s [%s] %s (marshal error: %v)\n", now, level, msg, err)
			return
		}
		fmt.Fprintln(l.writer, string(b))
		return
	}

	var sb strings.Builder
	sb.WriteString(now)
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("]")
	if l.prefix != "" {
		sb.WriteString(" ")
		sb.WriteString(l.prefix)
		sb.WriteString(":")
	}
	sb.WriteString(" ")
	sb.WriteString(msg)

	if len(merged) > 0 {
		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, merged[k]))
		}
	}
	fmt.Fprintln(l.writer, sb.String())
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string) { l.output(DEBUG, msg, nil) }

// Debugf logs a formatted message at DEBUG level
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.output(DEBUG, fmt.Sprintf(format, args...), nil)
}

// Info logs a message at INFO level
func (l *Logger) Info(msg string) { l.output(INFO, msg, nil) }

// Infof logs a formatted message at INFO level
func (l *Logger) Infof(format string, args ...interface{}) {
	l.output(INFO, fmt.Sprintf(format, args...), nil)
}

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string) { l.output(WARN, msg, nil) }

// Warnf logs a formatted message at WARN level
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.output(WARN, fmt.Sprintf(format, args...), nil)
}

// Error logs a message at ERROR level
func (l *Logger) Error(msg string) { l.output(ERROR, msg, nil) }

// Errorf logs a formatted message at ERROR level
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.output(ERROR, fmt.Sprintf(format, args...), nil)
}

// WarnFields logs a message at WARN level with one-shot fields
func (l *Logger) WarnFields(msg string, fields Fields) { l.output(WARN, msg, fields) }

// DebugFields logs a message at DEBUG level with one-shot fields
func (l *Logger) DebugFields(msg string, fields Fields) { l.output(DEBUG, msg, fields) }

var (
	defaultMu     sync.Mutex
	defaultLogger = New("")
)

// Default returns the package-level default logger
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger
}

// SetDefault replaces the package-level default logger
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
