package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sweeper/internal/config"
	"sweeper/internal/extract"
	"sweeper/internal/logging"
)

type fakeExecutor struct {
	calls   int
	binary  string
	args    []string
	output  []string
	err     error
	onRun   func(destDir string)
	destDir string
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	f.calls++
	f.binary = binary
	f.args = args
	for _, line := range f.output {
		onStdout(line)
	}
	if f.onRun != nil {
		f.onRun(f.destDir)
	}
	return f.err
}

func newClient(t *testing.T, exec *fakeExecutor) *extract.Client {
	t.Helper()
	cfg := config.Default()
	return extract.New(&cfg, logging.NewNop(), extract.WithExecutor(exec))
}

func writeParts(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("archive-bytes"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestExtractSingleInvocationForPartSet(t *testing.T) {
	dir := t.TempDir()
	parts := writeParts(t, dir, "release.part2.rar", "release.part1.rar", "release.part3.rar")
	dest := filepath.Join(dir, "stage", "release")

	exec := &fakeExecutor{}
	client := newClient(t, exec)

	root, err := client.Extract(context.Background(), parts, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if root != dest {
		t.Fatalf("root = %s, want %s", root, dest)
	}
	if exec.calls != 1 {
		t.Fatalf("tool invocations = %d, want 1", exec.calls)
	}
	// Sorted order puts part1 first; the tool gets only that path.
	if want := filepath.Join(dir, "release.part1.rar"); exec.args[3] != want {
		t.Fatalf("tool argument = %s, want %s", exec.args[3], want)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	parts := writeParts(t, dir, "payload.tar.gz")

	client := newClient(t, &fakeExecutor{})
	_, err := client.Extract(context.Background(), parts, filepath.Join(dir, "out"))

	var exErr *extract.Error
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *extract.Error, got %v", err)
	}
	if exErr.Reason != extract.ReasonUnsupportedFormat {
		t.Fatalf("reason = %s", exErr.Reason)
	}
}

func TestExtractMissingPartOnDisk(t *testing.T) {
	dir := t.TempDir()
	parts := writeParts(t, dir, "release.part1.rar")
	parts = append(parts, filepath.Join(dir, "release.part2.rar"))

	client := newClient(t, &fakeExecutor{})
	_, err := client.Extract(context.Background(), parts, filepath.Join(dir, "out"))

	var exErr *extract.Error
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *extract.Error, got %v", err)
	}
	if exErr.Reason != extract.ReasonMissingPart {
		t.Fatalf("reason = %s", exErr.Reason)
	}
}

func TestExtractCorruptArchiveCleansPartialOutput(t *testing.T) {
	dir := t.TempDir()
	parts := writeParts(t, dir, "release.rar")
	dest := filepath.Join(dir, "stage", "release")

	exec := &fakeExecutor{
		err:     errors.New("exit status 3"),
		output:  []string{"Extracting release/show.mkv", "CRC failed in release/show.mkv"},
		destDir: dest,
		onRun: func(destDir string) {
			_ = os.MkdirAll(destDir, 0o755)
			_ = os.WriteFile(filepath.Join(destDir, "show.mkv"), []byte("partial"), 0o644)
		},
	}
	client := newClient(t, exec)

	_, err := client.Extract(context.Background(), parts, dest)
	var exErr *extract.Error
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *extract.Error, got %v", err)
	}
	if exErr.Reason != extract.ReasonCorruptArchive {
		t.Fatalf("reason = %s", exErr.Reason)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("partial output left behind: %v", statErr)
	}
}

func TestExtractZipAndSevenZipToolSelection(t *testing.T) {
	dir := t.TempDir()

	zipParts := writeParts(t, dir, "bundle.zip")
	exec := &fakeExecutor{}
	client := newClient(t, exec)
	if _, err := client.Extract(context.Background(), zipParts, filepath.Join(dir, "z")); err != nil {
		t.Fatalf("zip Extract: %v", err)
	}
	if exec.binary != "unzip" {
		t.Fatalf("binary = %s, want unzip", exec.binary)
	}

	sevenParts := writeParts(t, dir, "bundle.7z")
	exec = &fakeExecutor{}
	client = newClient(t, exec)
	if _, err := client.Extract(context.Background(), sevenParts, filepath.Join(dir, "s")); err != nil {
		t.Fatalf("7z Extract: %v", err)
	}
	if exec.binary != "7z" {
		t.Fatalf("binary = %s, want 7z", exec.binary)
	}
}

func TestExtractNoSources(t *testing.T) {
	client := newClient(t, &fakeExecutor{})
	_, err := client.Extract(context.Background(), nil, t.TempDir())

	var exErr *extract.Error
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *extract.Error, got %v", err)
	}
	if exErr.Reason != extract.ReasonMissingPart {
		t.Fatalf("reason = %s", exErr.Reason)
	}
}
