package utils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		want  string
	}{
		{TRACE, "TRACE"},
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{FATAL, "FATAL"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"trace", TRACE, false},
		{"DEBUG", DEBUG, false},
		{"info", INFO, false},
		{"warning", WARN, false},
		{"Error", ERROR, false},
		{"fatal", FATAL, false},
		{"verbose", INFO, true},
		{"", INFO, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewProcessLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewProcessLogger("warn", &buf)
	if err != nil {
		t.Fatalf("NewProcessLogger() error = %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", Fields{"root": "/srv"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("INFO entry written at WARN level")
	}
	if !strings.Contains(out, "[WARN] shown {root=/srv}") {
		t.Errorf("unexpected output: %q", out)
	}

	if _, err := NewProcessLogger("loud", &buf); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestOpenDiagnosticLog(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "blokfs.log")

	if err := os.WriteFile(logFile, []byte("stale content from a previous mount\n"), 0644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	logger, err := OpenDiagnosticLog(logFile, nil)
	if err != nil {
		t.Fatalf("OpenDiagnosticLog() error = %v", err)
	}

	logger.Trace("read", Fields{"filename": "/data/a.txt", "offset": 0, "size": 4096})
	logger.Trace("read", Fields{"filename": "/data/a.txt", "offset": 4096, "size": 4096})

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Error("log was not truncated on open")
	}

	var lines int
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		if entry.Fields["filename"] != "/data/a.txt" {
			t.Errorf("filename = %v", entry.Fields["filename"])
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("got %d records, want 2", lines)
	}
}

func TestOpenDiagnosticLogErrors(t *testing.T) {
	if _, err := OpenDiagnosticLog("", nil); err == nil {
		t.Error("expected error for empty filename")
	}

	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "blokfs.log")
	if _, err := OpenDiagnosticLog(missing, nil); err == nil {
		t.Error("expected error for unwritable location")
	}
}

func TestOpenDiagnosticLogWithRotation(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "blokfs.log")

	logger, err := OpenDiagnosticLog(logFile, &RotationConfig{MaxSize: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("OpenDiagnosticLog() error = %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Info("mounted")

	info, err := os.Stat(logFile)
	if err != nil {
		t.Fatalf("stat log: %v", err)
	}
	if info.Size() == 0 {
		t.Error("rotated diagnostic log is empty")
	}
}
