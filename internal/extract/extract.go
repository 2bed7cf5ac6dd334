package extract

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"sweeper/internal/config"
	"sweeper/internal/logging"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives the external archive tools (unrar, 7z, unzip).
type Client struct {
	unrarBin string
	sevenBin string
	unzipBin string
	timeout  time.Duration
	exec     Executor
	logger   *slog.Logger
}

// New constructs an extraction client from config.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		unrarBin: cfg.UnrarBinary(),
		sevenBin: cfg.SevenZipBinary(),
		unzipBin: cfg.UnzipBinary(),
		timeout:  time.Duration(cfg.Extraction.Timeout) * time.Second,
		exec:     commandExecutor{},
		logger:   logging.WithComponent(logger, "extract"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Extract unpacks one logical archive, supplied as its full ordered part
// set, into destDir. Exactly one tool invocation is made regardless of the
// number of parts; the tool reassembles volumes from siblings on disk. On
// success the extraction root (destDir) is returned. On failure partial
// output is removed and an *Error carries the reason.
func (c *Client) Extract(ctx context.Context, sources []string, destDir string) (string, error) {
	if len(sources) == 0 {
		return "", newError(ReasonMissingPart, "no source files supplied", nil)
	}

	ordered := append([]string(nil), sources...)
	sort.Strings(ordered)
	first := ordered[0]

	binary, args, err := c.command(first, destDir)
	if err != nil {
		return "", err
	}

	for _, src := range ordered {
		if _, statErr := os.Stat(src); statErr != nil {
			return "", newError(ReasonMissingPart, fmt.Sprintf("part unavailable: %s", filepath.Base(src)), statErr)
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", newError(ReasonDestination, fmt.Sprintf("create %s", destDir), err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.InfoContext(ctx, "extracting archive",
		logging.String("archive", filepath.Base(first)),
		logging.Int("parts", len(ordered)),
		logging.String("dest", destDir))

	var output []string
	runErr := c.exec.Run(runCtx, binary, args, func(line string) {
		output = append(output, line)
	})
	if runErr != nil {
		_ = os.RemoveAll(destDir)
		return "", classifyFailure(runCtx, runErr, output)
	}
	return destDir, nil
}

// command selects the tool invocation for the archive's format.
func (c *Client) command(first, destDir string) (string, []string, error) {
	ext := strings.ToLower(filepath.Ext(first))
	switch {
	case ext == ".rar" || isRarVolume(ext):
		return c.unrarBin, []string{"x", "-o+", "-y", first, destDir + string(os.PathSeparator)}, nil
	case ext == ".zip":
		return c.unzipBin, []string{"-o", first, "-d", destDir}, nil
	case ext == ".7z":
		return c.sevenBin, []string{"x", "-y", "-o" + destDir, first}, nil
	default:
		return "", nil, newError(ReasonUnsupportedFormat, fmt.Sprintf("no tool for %s", ext), nil)
	}
}

func isRarVolume(ext string) bool {
	if len(ext) < 4 || !strings.HasPrefix(ext, ".r") {
		return false
	}
	for _, r := range ext[2:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func classifyFailure(ctx context.Context, runErr error, output []string) *Error {
	if errors.Is(runErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(ReasonTimeout, "tool exceeded extraction timeout", runErr)
	}

	joined := strings.ToLower(strings.Join(output, "\n"))
	detail := lastNonEmpty(output)
	switch {
	case strings.Contains(joined, "crc") || strings.Contains(joined, "checksum") || strings.Contains(joined, "corrupt") || strings.Contains(joined, "damaged"):
		return newError(ReasonCorruptArchive, detail, runErr)
	case strings.Contains(joined, "cannot find volume") || strings.Contains(joined, "missing volume") || strings.Contains(joined, "unexpected end of archive"):
		return newError(ReasonMissingPart, detail, runErr)
	case strings.Contains(joined, "permission denied") || strings.Contains(joined, "no space left"):
		return newError(ReasonDestination, detail, runErr)
	default:
		return newError(ReasonToolFailure, detail, runErr)
	}
}

func lastNonEmpty(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	consume := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onStdout != nil {
				onStdout(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go consume(stdout)
	go consume(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
