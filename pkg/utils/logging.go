package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// LogLevel represents the logging level
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string log level
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(level) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s", level)
	}
}

// NewProcessLogger returns the text logger used for startup and lifecycle messages.
func NewProcessLogger(levelStr string, output io.Writer) (*StructuredLogger, error) {
	level, err := ParseLogLevel(levelStr)
	if err != nil {
		return nil, err
	}
	if output == nil {
		output = os.Stderr
	}

	return NewStructuredLogger(&StructuredLoggerConfig{
		Level:  level,
		Output: output,
		Format: FormatText,
	})
}

// OpenDiagnosticLog creates the diagnostic log sink at filename. Every record is one JSON line written
// with a single Write call, so the file is line buffered. Without rotation the file is truncated on open.
func OpenDiagnosticLog(filename string, rotation *RotationConfig) (*StructuredLogger, error) {
	if filename == "" {
		return nil, fmt.Errorf("diagnostic log filename is required")
	}

	config := &StructuredLoggerConfig{
		Level:  TRACE,
		Format: FormatJSON,
	}

	if rotation != nil && rotation.MaxSize > 0 {
		rc := *rotation
		rc.Filename = filename
		rc.Truncate = true
		config.Rotation = &rc
		return NewStructuredLogger(config)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostic log: %w", err)
	}
	config.Output = file

	logger, err := NewStructuredLogger(config)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	logger.closer = file
	return logger, nil
}
