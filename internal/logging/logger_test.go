package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imagededup/internal/config"
	"imagededup/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "imagededup.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "scan").Info("hashed file", logging.String("path", "/tmp/a b.jpg"), logging.Int("size", 42))
	logger.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO  scan: hashed file") {
		t.Fatalf("expected level, component and message, got %q", line)
	}
	if !strings.Contains(line, `path="/tmp/a b.jpg"`) || !strings.Contains(line, "size=42") {
		t.Fatalf("expected formatted fields, got %q", line)
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("expected debug line to be filtered, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no color codes in file output, got %q", line)
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithScanID(context.Background(), "scan-1")
	logging.WithContext(ctx, logger).Warn("unreadable", logging.String(logging.FieldPath, "/x.jpg"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["level"] != "warn" || entry["msg"] != "unreadable" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["scan_id"] != "scan-1" || entry["path"] != "/x.jpg" {
		t.Fatalf("expected context fields, got %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "decode failed", "image_unreadable", logging.String(logging.FieldImpact, "excluded from similar groups"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["event_type"] != "image_unreadable" || entry["error_hint"] == nil {
		t.Fatalf("expected injected fields, got %v", entry)
	}
	if entry["impact"] != "excluded from similar groups" {
		t.Fatalf("expected caller impact preserved, got %v", entry["impact"])
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := logging.NewProgressSampler(25)
	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{0, "hashing", true},
		{10, "hashing", false},
		{26, "hashing", true},
		{30, "hashing", false},
		{100, "hashing", true},
		{100, "hashing", false},
		{5, "grouping", true},
		{-1, "grouping", false},
	}
	for i, step := range steps {
		if got := sampler.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d (%v %q): got %v want %v", i, step.percent, step.phase, got, step.want)
		}
	}
}

func TestFileWarningAttachesPathAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.FileWarning(logger, "fingerprint not saved", "store_write_failed", "/photos/a.jpg", errors.New("disk full"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["path"] != "/photos/a.jpg" || entry["error"] != "disk full" {
		t.Fatalf("expected path and error, got %v", entry)
	}
	if entry["event_type"] != "store_write_failed" || entry["impact"] == nil {
		t.Fatalf("expected enforced fields, got %v", entry)
	}
}
