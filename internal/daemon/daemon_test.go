package daemon_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sweeper/internal/aria2"
	"sweeper/internal/config"
	"sweeper/internal/daemon"
	"sweeper/internal/logging"
	"sweeper/internal/services"
	"sweeper/internal/testsupport"
)

type fakeConn struct {
	mu        sync.Mutex
	downloads map[string]aria2.Download
	events    chan string
	closed    bool
}

func newFakeConn(downloads ...aria2.Download) *fakeConn {
	conn := &fakeConn{
		downloads: make(map[string]aria2.Download),
		events:    make(chan string, 8),
	}
	for _, d := range downloads {
		conn.downloads[d.GID] = d
	}
	return conn
}

func (f *fakeConn) TellStatus(_ context.Context, gid string) (aria2.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	download, ok := f.downloads[gid]
	if !ok {
		return aria2.Download{}, services.Wrap(services.ErrNotFound, "querying", "tellStatus", gid, nil)
	}
	return download, nil
}

func (f *fakeConn) Downloads(_ context.Context) ([]aria2.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]aria2.Download, 0, len(f.downloads))
	for _, d := range f.downloads {
		all = append(all, d)
	}
	return all, nil
}

func (f *fakeConn) Forget(_ context.Context, gid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.downloads, gid)
	return nil
}

func (f *fakeConn) Events() <-chan string { return f.events }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func staticDialer(conn *fakeConn) daemon.Dialer {
	return func(context.Context, *config.Config, *slog.Logger) (daemon.Connection, error) {
		return conn, nil
	}
}

func TestRunReplaysCompletedDownloadsOnConnect(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := filepath.Join(cfg.Paths.DownloadDir, "show.S01E02.mkv")
	testsupport.WriteFile(t, src, "episode-bytes")

	conn := newFakeConn(aria2.Download{
		GID: "g1", Name: "show.S01E02.mkv", Status: "complete", Files: []string{src},
	})

	d, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithDialer(staticDialer(conn)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	dest := filepath.Join(cfg.Paths.EndedDir, "series", "show.S01E02.mkv")
	waitFor(t, func() bool { return testsupport.Exists(t, dest) })

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestRunProcessesPushedEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	conn := newFakeConn()

	d, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithDialer(staticDialer(conn)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	src := filepath.Join(cfg.Paths.DownloadDir, "movie.2024.mkv")
	testsupport.WriteFile(t, src, "movie-bytes")
	conn.mu.Lock()
	conn.downloads["g2"] = aria2.Download{
		GID: "g2", Name: "movie.2024.mkv", Status: "complete", Files: []string{src},
	}
	conn.mu.Unlock()
	conn.events <- "g2"

	dest := filepath.Join(cfg.Paths.EndedDir, "movies", "movie.2024.mkv")
	waitFor(t, func() bool { return testsupport.Exists(t, dest) })

	cancel()
	<-done
}

func TestSecondInstanceRefusesToStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	conn := newFakeConn()

	first, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithDialer(staticDialer(conn)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- first.Run(ctx) }()

	lockPath := filepath.Join(cfg.Paths.LogDir, "sweeperd.lock")
	waitFor(t, func() bool { return testsupport.Exists(t, lockPath) })

	second, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithDialer(staticDialer(newFakeConn())))
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Run(ctx); err == nil {
		t.Fatal("expected second instance to refuse startup")
	}

	cancel()
	<-done
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
