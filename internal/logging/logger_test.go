package logging_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sweeper/internal/logging"
	"sweeper/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWithContextCarriesAnnotations(t *testing.T) {
	ctx := services.WithGID(context.Background(), "abc123")
	ctx = services.WithTitle(ctx, "Show.S01E02")
	ctx = services.WithStage(ctx, "extracting")

	fields := logging.ContextFields(ctx)
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	keys := map[string]bool{}
	for _, f := range fields {
		keys[f.Key] = true
	}
	for _, want := range []string{logging.FieldGID, logging.FieldTitle, logging.FieldStage} {
		if !keys[want] {
			t.Fatalf("missing field %s in %v", want, keys)
		}
	}
}

func TestErrorAttrDropsNil(t *testing.T) {
	if attr := logging.Error(nil); !attr.Equal(slog.Attr{}) {
		t.Fatalf("expected empty attr for nil error, got %v", attr)
	}
	args := logging.Args(logging.Error(nil), logging.String("k", "v"))
	if len(args) != 1 {
		t.Fatalf("expected nil error filtered from args, got %d entries", len(args))
	}
}

func TestConsoleOutputShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweeper.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	child := logging.WithComponent(logger, "processor")
	child.Info("moved file", logging.String("dest", "/tmp/x y"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.Contains(line, "INFO processor: moved file") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, `dest="/tmp/x y"`) {
		t.Fatalf("expected quoted attr value, got %q", line)
	}
}

func TestDebugFilteredAtInfoLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweeper.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("should not appear")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty log, got %q", string(data))
	}
}
